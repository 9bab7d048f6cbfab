package domain

import "time"

var MetadataFieldTypes = []string{"string", "number", "boolean", "date"}

// MetadataField describes a custom metadata key tenants may attach to documents.
type MetadataField struct {
	Key         string    `gorm:"column:key;primaryKey;size:128" json:"key"`
	Type        string    `gorm:"column:type;size:16;not null" json:"type"`
	Description string    `gorm:"column:description" json:"description"`
	Indexed     bool      `gorm:"column:indexed;not null" json:"indexed"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (MetadataField) TableName() string { return "rag_metadata_fields" }

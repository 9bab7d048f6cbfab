package domain

import "time"

// DocumentRecord is the registry entry for an uploaded raw document.
type DocumentRecord struct {
	DocID       string    `gorm:"column:doc_id;primaryKey;size:64" json:"doc_id"`
	Tenant      string    `gorm:"column:tenant;index" json:"tenant"`
	Filename    string    `gorm:"column:filename;not null" json:"filename"`
	StorageKey  string    `gorm:"column:storage_key;not null" json:"storage_key"`
	ContentType string    `gorm:"column:content_type" json:"content_type,omitempty"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (DocumentRecord) TableName() string { return "rag_documents" }

// RawStorageKey is the object store location of an uploaded file.
func RawStorageKey(tenant, docID, filename string) string {
	return "raw/" + tenant + "/" + docID + "/" + filename
}

package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ChunkPayload is the searchable, embedding-free view of an indexed chunk.
type ChunkPayload struct {
	Tenant    string    `json:"tenant"`
	Scope     string    `json:"scope"`
	DocID     string    `json:"doc_id"`
	ChunkID   string    `json:"chunk_id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"chunk_text"`
}

// Chunk is a payload plus its embedding, as written to the index.
type Chunk struct {
	ChunkPayload
	Embedding []float32 `json:"-"`
}

// Key is the deterministic index id for the chunk.
func (c ChunkPayload) Key() string {
	return ChunkKey(c.Tenant, c.DocID, c.ChunkID)
}

func ChunkKey(tenant, docID, chunkID string) string {
	return fmt.Sprintf("%s:%s:%s", tenant, docID, chunkID)
}

// ChunkID returns the 1-based chunk identifier used by ingestion ("c1", "c2", ...).
func ChunkID(ordinal int) string {
	return fmt.Sprintf("c%d", ordinal)
}

// ChunkRecord is the relational row backing keyword search and the chunk lookup endpoint.
type ChunkRecord struct {
	ID        string         `gorm:"column:id;primaryKey;size:512" json:"id"`
	Tenant    string         `gorm:"column:tenant;not null;index:idx_rag_chunks_tenant_doc,priority:1" json:"tenant"`
	DocID     string         `gorm:"column:doc_id;not null;index:idx_rag_chunks_tenant_doc,priority:2" json:"doc_id"`
	Scope     string         `gorm:"column:scope;not null" json:"scope"`
	ChunkID   string         `gorm:"column:chunk_id;not null" json:"chunk_id"`
	Source    string         `gorm:"column:source" json:"source"`
	Text      string         `gorm:"column:text;type:text;not null" json:"chunk_text"`
	Embedding datatypes.JSON `gorm:"column:embedding" json:"-"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (ChunkRecord) TableName() string { return "rag_chunks" }

func NewChunkRecord(c Chunk) (*ChunkRecord, error) {
	var emb datatypes.JSON
	if len(c.Embedding) > 0 {
		raw, err := json.Marshal(c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("encode embedding: %w", err)
		}
		emb = datatypes.JSON(raw)
	}
	return &ChunkRecord{
		ID:        c.Key(),
		Tenant:    c.Tenant,
		DocID:     c.DocID,
		Scope:     c.Scope,
		ChunkID:   c.ChunkID,
		Source:    c.Source,
		Text:      c.Text,
		Embedding: emb,
		CreatedAt: c.CreatedAt,
	}, nil
}

func (r *ChunkRecord) Payload() ChunkPayload {
	return ChunkPayload{
		Tenant:    r.Tenant,
		Scope:     r.Scope,
		DocID:     r.DocID,
		ChunkID:   r.ChunkID,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
		Text:      r.Text,
	}
}

// Vector decodes the stored embedding. A record without one yields nil.
func (r *ChunkRecord) Vector() ([]float32, error) {
	if len(r.Embedding) == 0 {
		return nil, nil
	}
	var out []float32
	if err := json.Unmarshal(r.Embedding, &out); err != nil {
		return nil, fmt.Errorf("decode embedding for %s: %w", r.ID, err)
	}
	return out, nil
}

// Package search is the tenant-filtered hybrid index used by ingestion and retrieval.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendQdrant = "qdrant"
)

var (
	ErrNotFound       = errors.New("chunk not found")
	ErrTenantRequired = errors.New("tenant filter required")
)

// DimensionError reports a vector whose length differs from the deployment dimension.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", e.Want, e.Got)
}

// Index is the contract between the RAG services and the search backend. Every
// search is filtered by tenant; docID narrows to one document when non-empty.
type Index interface {
	KeywordSearch(ctx context.Context, tenant, query string, topK int, docID string) ([]domain.RetrievalHit, error)
	// VectorSearch scores are cosine similarity shifted by +1.
	VectorSearch(ctx context.Context, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error)
	// UpsertChunk overwrites any chunk with the same tenant:doc_id:chunk_id and returns that id.
	UpsertChunk(ctx context.Context, c domain.Chunk) (string, error)
	CountChunks(ctx context.Context, tenant, scope, docID string) (int64, error)
	GetChunk(ctx context.Context, id string) (domain.ChunkPayload, error)
	Ping(ctx context.Context) error
	EnsureIndex(ctx context.Context) error
	IndexExists(ctx context.Context) (bool, error)
}

func checkTenant(tenant string) error {
	if strings.TrimSpace(tenant) == "" {
		return ErrTenantRequired
	}
	return nil
}

func checkDim(want int, v []float32) error {
	if want > 0 && len(v) != want {
		return &DimensionError{Want: want, Got: len(v)}
	}
	return nil
}

func checkChunk(c domain.Chunk, dim int) error {
	if err := checkTenant(c.Tenant); err != nil {
		return err
	}
	if strings.TrimSpace(c.DocID) == "" || strings.TrimSpace(c.ChunkID) == "" {
		return errors.New("chunk requires doc_id and chunk_id")
	}
	return checkDim(dim, c.Embedding)
}

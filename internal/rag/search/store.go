package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/chunks"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

// VectorBackend is an external nearest-neighbour store. qdrant.ChunkStore satisfies it.
type VectorBackend interface {
	UpsertChunk(ctx context.Context, c domain.Chunk) error
	Search(ctx context.Context, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error)
	Ping(ctx context.Context) error
	EnsureCollection(ctx context.Context) error
	CollectionExists(ctx context.Context) (bool, error)
}

type storeIndex struct {
	log     *logger.Logger
	chunks  repos.ChunkRepo
	vectors VectorBackend
	dim     int
}

// NewStoreIndex serves keyword search, counts and lookups from the chunk table.
// Vector search goes to vectors when set and to the chunk table otherwise.
func NewStoreIndex(log *logger.Logger, chunkRepo repos.ChunkRepo, vectors VectorBackend, dim int) Index {
	return &storeIndex{
		log:     log.With("component", "SearchIndex"),
		chunks:  chunkRepo,
		vectors: vectors,
		dim:     dim,
	}
}

func (s *storeIndex) UpsertChunk(ctx context.Context, c domain.Chunk) (string, error) {
	if err := checkChunk(c, s.dim); err != nil {
		return "", err
	}
	rec, err := domain.NewChunkRecord(c)
	if err != nil {
		return "", err
	}
	if err := s.chunks.Upsert(ctx, nil, rec); err != nil {
		return "", fmt.Errorf("upsert chunk row %s: %w", rec.ID, err)
	}
	if s.vectors != nil {
		if err := s.vectors.UpsertChunk(ctx, c); err != nil {
			return "", fmt.Errorf("upsert chunk vector %s: %w", rec.ID, err)
		}
	}
	return rec.ID, nil
}

func (s *storeIndex) KeywordSearch(ctx context.Context, tenant, query string, topK int, docID string) ([]domain.RetrievalHit, error) {
	if err := checkTenant(tenant); err != nil {
		return nil, err
	}
	return s.chunks.KeywordSearch(ctx, nil, tenant, query, topK, docID)
}

func (s *storeIndex) VectorSearch(ctx context.Context, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error) {
	if err := checkTenant(tenant); err != nil {
		return nil, err
	}
	if err := checkDim(s.dim, qvec); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []domain.RetrievalHit{}, nil
	}
	if s.vectors != nil {
		return s.vectors.Search(ctx, tenant, qvec, topK, docID)
	}
	return s.chunks.VectorSearch(ctx, nil, tenant, qvec, topK, docID)
}

func (s *storeIndex) CountChunks(ctx context.Context, tenant, scope, docID string) (int64, error) {
	if err := checkTenant(tenant); err != nil {
		return 0, err
	}
	return s.chunks.Count(ctx, nil, tenant, scope, docID)
}

func (s *storeIndex) GetChunk(ctx context.Context, id string) (domain.ChunkPayload, error) {
	rec, err := s.chunks.GetByID(ctx, nil, strings.TrimSpace(id))
	if errors.Is(err, chunks.ErrNotFound) {
		return domain.ChunkPayload{}, ErrNotFound
	}
	if err != nil {
		return domain.ChunkPayload{}, err
	}
	return rec.Payload(), nil
}

func (s *storeIndex) Ping(ctx context.Context) error {
	if err := s.chunks.Ping(ctx); err != nil {
		return fmt.Errorf("chunk store: %w", err)
	}
	if s.vectors != nil {
		if err := s.vectors.Ping(ctx); err != nil {
			return fmt.Errorf("vector store: %w", err)
		}
	}
	return nil
}

func (s *storeIndex) EnsureIndex(ctx context.Context) error {
	if err := s.chunks.EnsureSearchIndex(ctx); err != nil {
		return fmt.Errorf("ensure chunk search index: %w", err)
	}
	if s.vectors != nil {
		if err := s.vectors.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("ensure vector collection: %w", err)
		}
	}
	s.log.Info("Search index ready", "vector_backend", s.vectors != nil)
	return nil
}

func (s *storeIndex) IndexExists(ctx context.Context) (bool, error) {
	ok, err := s.chunks.SearchIndexExists(ctx)
	if err != nil || !ok {
		return false, err
	}
	if s.vectors == nil {
		return true, nil
	}
	return s.vectors.CollectionExists(ctx)
}

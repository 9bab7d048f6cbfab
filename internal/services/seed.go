package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/rag/search"
)

// SeedText is the fixed sample chunk used to smoke-test the index.
const SeedText = "This is a sample clause about termination and notice period for 30 days"

type SeedResult struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Tenant  string `json:"tenant"`
	DocID   string `json:"doc_id"`
	ChunkID string `json:"chunk_id"`
}

type ChunkResult struct {
	ID    string              `json:"id"`
	Chunk domain.ChunkPayload `json:"chunk"`
}

type HealthResult struct {
	Status string `json:"status"`
	Index  string `json:"index,omitempty"`
}

// IndexService covers the index maintenance and debug endpoints.
type IndexService interface {
	SeedChunk(ctx context.Context, tenant string) (*SeedResult, error)
	GetChunk(ctx context.Context, tenant, id string) (*ChunkResult, error)
	PingIndex(ctx context.Context) (*HealthResult, error)
	CheckIndex(ctx context.Context) (*HealthResult, error)
	EnsureIndex(ctx context.Context) error
}

type indexService struct {
	log      *logger.Logger
	embedder Embedder
	index    search.Index
	now      func() time.Time
}

func NewIndexService(baseLog *logger.Logger, embedder Embedder, index search.Index) IndexService {
	return &indexService{
		log:      baseLog.With("service", "IndexService"),
		embedder: embedder,
		index:    index,
		now:      time.Now,
	}
}

func (s *indexService) SeedChunk(ctx context.Context, tenant string) (*SeedResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, SeedText)
	if err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, "EMBEDDING_FAILED", err)
	}
	c := domain.Chunk{
		ChunkPayload: domain.ChunkPayload{
			Tenant:    tenant,
			Scope:     domain.ScopeCorpus,
			DocID:     uuid.NewString(),
			ChunkID:   domain.ChunkID(1),
			Source:    "seed",
			CreatedAt: s.now().UTC(),
			Text:      SeedText,
		},
		Embedding: vec,
	}
	id, err := s.index.UpsertChunk(ctx, c)
	if err != nil {
		return nil, indexWriteError(err)
	}
	return &SeedResult{Status: "ok", ID: id, Tenant: tenant, DocID: c.DocID, ChunkID: c.ChunkID}, nil
}

// GetChunk reports a chunk owned by another tenant as not found.
func (s *indexService) GetChunk(ctx context.Context, tenant, id string) (*ChunkResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	notFound := apierr.NotFound("CHUNK_NOT_FOUND", fmt.Sprintf("Chunk %s not found", id))
	p, err := s.index.GetChunk(ctx, id)
	if errors.Is(err, search.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, searchError("SEARCH_FAILED", err)
	}
	if p.Tenant != tenant {
		return nil, notFound
	}
	return &ChunkResult{ID: id, Chunk: p}, nil
}

func (s *indexService) PingIndex(ctx context.Context) (*HealthResult, error) {
	if err := s.index.Ping(ctx); err != nil {
		s.log.Warn("Search backend unreachable", "error", err)
		e := apierr.Upstream(http.StatusServiceUnavailable, "ES_UNAVAILABLE", err)
		e.Message = "Search backend is not reachable"
		return nil, e
	}
	return &HealthResult{Status: "ok", Index: "reachable"}, nil
}

func (s *indexService) CheckIndex(ctx context.Context) (*HealthResult, error) {
	ok, err := s.index.IndexExists(ctx)
	if err != nil {
		return nil, apierr.Upstream(http.StatusServiceUnavailable, "ES_UNAVAILABLE", err)
	}
	if !ok {
		e := apierr.Upstream(http.StatusServiceUnavailable, "INDEX_MISSING", errors.New("search index does not exist"))
		e.Message = "Search index does not exist"
		return nil, e
	}
	return &HealthResult{Status: "ok", Index: "exists"}, nil
}

func (s *indexService) EnsureIndex(ctx context.Context) error {
	if err := s.index.EnsureIndex(ctx); err != nil {
		return apierr.Upstream(http.StatusServiceUnavailable, "INDEX_SETUP_FAILED", err)
	}
	return nil
}

package search

import (
	"context"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/observability"
)

type instrumentedIndex struct {
	backend string
	inner   Index
	metrics *observability.Metrics
}

// Instrument records per-operation latency for inner. It returns inner unchanged
// when metrics are disabled.
func Instrument(backend string, inner Index, metrics *observability.Metrics) Index {
	if inner == nil || metrics == nil {
		return inner
	}
	return &instrumentedIndex{backend: backend, inner: inner, metrics: metrics}
}

func (s *instrumentedIndex) KeywordSearch(ctx context.Context, tenant, query string, topK int, docID string) ([]domain.RetrievalHit, error) {
	start := time.Now()
	out, err := s.inner.KeywordSearch(ctx, tenant, query, topK, docID)
	s.observe("keyword_search", err, time.Since(start))
	return out, err
}

func (s *instrumentedIndex) VectorSearch(ctx context.Context, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error) {
	start := time.Now()
	out, err := s.inner.VectorSearch(ctx, tenant, qvec, topK, docID)
	s.observe("vector_search", err, time.Since(start))
	return out, err
}

func (s *instrumentedIndex) UpsertChunk(ctx context.Context, c domain.Chunk) (string, error) {
	start := time.Now()
	id, err := s.inner.UpsertChunk(ctx, c)
	s.observe("upsert", err, time.Since(start))
	return id, err
}

func (s *instrumentedIndex) CountChunks(ctx context.Context, tenant, scope, docID string) (int64, error) {
	start := time.Now()
	n, err := s.inner.CountChunks(ctx, tenant, scope, docID)
	s.observe("count", err, time.Since(start))
	return n, err
}

func (s *instrumentedIndex) GetChunk(ctx context.Context, id string) (domain.ChunkPayload, error) {
	start := time.Now()
	p, err := s.inner.GetChunk(ctx, id)
	s.observe("get", err, time.Since(start))
	return p, err
}

func (s *instrumentedIndex) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

func (s *instrumentedIndex) EnsureIndex(ctx context.Context) error {
	return s.inner.EnsureIndex(ctx)
}

func (s *instrumentedIndex) IndexExists(ctx context.Context) (bool, error) {
	return s.inner.IndexExists(ctx)
}

func (s *instrumentedIndex) observe(operation string, err error, dur time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveIndexOperation(s.backend, operation, status, dur)
}

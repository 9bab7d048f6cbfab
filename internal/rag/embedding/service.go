package embedding

import (
	"context"
	"fmt"

	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/rag/vecmath"
)

// Service embeds text with the configured model and enforces the deployment dimension.
type Service struct {
	log     *logger.Logger
	cache   *ModelCache
	modelID string
	dim     int
}

func NewService(log *logger.Logger, cache *ModelCache, modelID string, dim int) *Service {
	return &Service{
		log:     log.With("service", "EmbeddingService"),
		cache:   cache,
		modelID: modelID,
		dim:     dim,
	}
}

func (s *Service) ModelID() string { return s.modelID }
func (s *Service) Dim() int        { return s.dim }

// Embed returns an L2-normalized vector of length Dim().
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	m, err := s.cache.Get(ctx, s.modelID)
	if err != nil {
		return nil, fmt.Errorf("load embedding model %q: %w", s.modelID, err)
	}
	vecs, err := m.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding model %q returned %d vectors for %d inputs", s.modelID, len(vecs), len(texts))
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		if len(v) != s.dim {
			return nil, fmt.Errorf("embedding dimension mismatch: expected=%d got=%d model=%s", s.dim, len(v), s.modelID)
		}
		cp := make([]float32, len(v))
		copy(cp, v)
		out[i] = vecmath.Normalize(cp)
	}
	return out, nil
}

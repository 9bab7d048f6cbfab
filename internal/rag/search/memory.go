package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/rag/lexical"
	"github.com/yungbote/rag-orchestrator/internal/rag/vecmath"
)

type memoryEntry struct {
	payload domain.ChunkPayload
	vec     []float32
}

// MemoryIndex keeps chunks in process. It backs local development and tests.
type MemoryIndex struct {
	dim    int
	mu     sync.RWMutex
	chunks map[string]memoryEntry
}

func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{dim: dim, chunks: map[string]memoryEntry{}}
}

func (m *MemoryIndex) UpsertChunk(ctx context.Context, c domain.Chunk) (string, error) {
	if err := checkChunk(c, m.dim); err != nil {
		return "", err
	}
	vec := make([]float32, len(c.Embedding))
	copy(vec, c.Embedding)
	key := c.Key()
	m.mu.Lock()
	m.chunks[key] = memoryEntry{payload: c.ChunkPayload, vec: vec}
	m.mu.Unlock()
	return key, nil
}

// candidates returns the tenant's chunks ordered by key so scoring ties are stable.
func (m *MemoryIndex) candidates(tenant, docID string) ([]string, []memoryEntry) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k, e := range m.chunks {
		if e.payload.Tenant != tenant {
			continue
		}
		if docID != "" && e.payload.DocID != docID {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]memoryEntry, len(keys))
	for i, k := range keys {
		entries[i] = m.chunks[k]
	}
	return keys, entries
}

func (m *MemoryIndex) KeywordSearch(ctx context.Context, tenant, query string, topK int, docID string) ([]domain.RetrievalHit, error) {
	if err := checkTenant(tenant); err != nil {
		return nil, err
	}
	if topK <= 0 || strings.TrimSpace(query) == "" {
		return []domain.RetrievalHit{}, nil
	}
	keys, entries := m.candidates(tenant, docID)
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.payload.Text
	}
	scorer := lexical.NewScorer(texts)
	terms := lexical.Tokenize(query)
	hits := make([]domain.RetrievalHit, 0, len(entries))
	for i, e := range entries {
		s := scorer.Score(i, terms)
		if s <= 0 {
			continue
		}
		hits = append(hits, domain.RetrievalHit{ID: keys[i], Score: s, Payload: e.payload})
	}
	return domain.TopHits(hits, topK), nil
}

func (m *MemoryIndex) VectorSearch(ctx context.Context, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error) {
	if err := checkTenant(tenant); err != nil {
		return nil, err
	}
	if err := checkDim(m.dim, qvec); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []domain.RetrievalHit{}, nil
	}
	keys, entries := m.candidates(tenant, docID)
	hits := make([]domain.RetrievalHit, 0, len(entries))
	for i, e := range entries {
		if len(e.vec) != len(qvec) {
			continue
		}
		hits = append(hits, domain.RetrievalHit{ID: keys[i], Score: vecmath.ShiftedCosine(qvec, e.vec), Payload: e.payload})
	}
	return domain.TopHits(hits, topK), nil
}

func (m *MemoryIndex) CountChunks(ctx context.Context, tenant, scope, docID string) (int64, error) {
	if err := checkTenant(tenant); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.chunks {
		if e.payload.Tenant != tenant {
			continue
		}
		if scope != "" && e.payload.Scope != scope {
			continue
		}
		if docID != "" && e.payload.DocID != docID {
			continue
		}
		n++
	}
	return n, nil
}

func (m *MemoryIndex) GetChunk(ctx context.Context, id string) (domain.ChunkPayload, error) {
	m.mu.RLock()
	e, ok := m.chunks[id]
	m.mu.RUnlock()
	if !ok {
		return domain.ChunkPayload{}, ErrNotFound
	}
	return e.payload, nil
}

func (m *MemoryIndex) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryIndex) EnsureIndex(ctx context.Context) error {
	return nil
}

func (m *MemoryIndex) IndexExists(ctx context.Context) (bool, error) {
	return true, nil
}

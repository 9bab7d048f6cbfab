package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/rag-orchestrator/internal/data/repos/testutil"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/platform/qdrant"
)

func indexConfig(backend string, dim int) Config {
	cfg := configFromEnv()
	cfg.Index = IndexConfig{Backend: backend, EnsureIndex: true}
	cfg.Embedding = EmbeddingConfig{ModelID: "hash:4", Dim: dim}
	return cfg
}

func TestResolveSearchIndexSQL(t *testing.T) {
	db := testutil.DB(t)
	metrics := observability.NewMetrics()
	idx, err := resolveSearchIndex(context.Background(), logger.Nop(), indexConfig(IndexBackendSQL, 4), db, metrics)
	if err != nil {
		t.Fatalf("resolveSearchIndex: %v", err)
	}
	ctx := context.Background()
	c := domain.Chunk{
		ChunkPayload: domain.ChunkPayload{
			Tenant:  "acme",
			Scope:   domain.ScopeCorpus,
			DocID:   "d1",
			ChunkID: "c1",
			Source:  "a.txt",
			Text:    "termination notice",
		},
		Embedding: []float32{1, 0, 0, 0},
	}
	if _, err := idx.UpsertChunk(ctx, c); err != nil {
		t.Fatalf("UpsertChunk: %v", err)
	}
	if n, err := idx.CountChunks(ctx, "acme", "", "d1"); err != nil || n != 1 {
		t.Fatalf("CountChunks: %d err=%v", n, err)
	}
	if ok, err := idx.IndexExists(ctx); err != nil || !ok {
		t.Fatalf("IndexExists: %v err=%v", ok, err)
	}
}

func TestResolveSearchIndexMemoryNeedsNoDatabase(t *testing.T) {
	idx, err := resolveSearchIndex(context.Background(), logger.Nop(), indexConfig(IndexBackendMemory, 4), nil, nil)
	if err != nil || idx == nil {
		t.Fatalf("memory index: %v", err)
	}
}

func TestResolveSearchIndexErrors(t *testing.T) {
	origResolve := resolveQdrantConfig
	t.Cleanup(func() { resolveQdrantConfig = origResolve })

	cases := []struct {
		name    string
		backend string
		db      bool
		qdrant  func() (qdrant.Config, error)
		want    IndexProviderBootstrapErrorCode
	}{
		{name: "invalid backend", backend: "elastic", want: IndexProviderBootstrapErrorInvalidBackend},
		{name: "sql without db", backend: IndexBackendSQL, want: IndexProviderBootstrapErrorMissingDatabase},
		{
			name: "qdrant missing url", backend: IndexBackendQdrant, db: true,
			qdrant: func() (qdrant.Config, error) { return qdrant.Config{}, &qdrant.ConfigError{Code: qdrant.ConfigErrorMissingURL} },
			want:   IndexProviderBootstrapErrorMissingQdrantURL,
		},
		{
			name: "qdrant dim mismatch", backend: IndexBackendQdrant, db: true,
			qdrant: func() (qdrant.Config, error) {
				return qdrant.Config{URL: "http://qdrant:6333", Collection: "rag_chunks", VectorDim: 8}, nil
			},
			want: IndexProviderBootstrapErrorVectorDimMismatch,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.qdrant != nil {
				resolveQdrantConfig = tc.qdrant
			}
			cfg := indexConfig(tc.backend, 4)
			cfg.Index.EnsureIndex = false
			var err error
			if tc.db {
				_, err = resolveSearchIndex(context.Background(), logger.Nop(), cfg, testutil.DB(t), nil)
			} else {
				_, err = resolveSearchIndex(context.Background(), logger.Nop(), cfg, nil, nil)
			}
			var bootstrapErr *IndexProviderBootstrapError
			if !errors.As(err, &bootstrapErr) || bootstrapErr.Code != tc.want {
				t.Fatalf("code: want=%s got=%v", tc.want, err)
			}
		})
	}
}

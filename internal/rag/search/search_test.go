package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/testutil"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/observability"
)

func chunk(tenant, docID, chunkID, text string, emb []float32) domain.Chunk {
	return domain.Chunk{
		ChunkPayload: domain.ChunkPayload{
			Tenant:    tenant,
			Scope:     domain.ScopeCorpus,
			DocID:     docID,
			ChunkID:   chunkID,
			Source:    docID + ".txt",
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Text:      text,
		},
		Embedding: emb,
	}
}

func newIndexes(t *testing.T) map[string]Index {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return map[string]Index{
		"memory": NewMemoryIndex(3),
		"sql":    NewStoreIndex(log, repos.NewChunkRepo(db, log), nil, 3),
	}
}

func seedIndex(t *testing.T, idx Index) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []domain.Chunk{
		chunk("acme", "d1", "c1", "termination requires thirty days notice", []float32{1, 0, 0}),
		chunk("acme", "d1", "c2", "payment is due within fifteen days", []float32{0, 1, 0}),
		chunk("acme", "d2", "c1", "notice of termination must be written", []float32{0.6, 0.8, 0}),
		chunk("globex", "d9", "c1", "termination notice for globex only", []float32{1, 0, 0}),
	} {
		id, err := idx.UpsertChunk(ctx, c)
		if err != nil {
			t.Fatalf("UpsertChunk(%s): %v", c.Key(), err)
		}
		if id != c.Key() {
			t.Fatalf("UpsertChunk id: want=%s got=%s", c.Key(), id)
		}
	}
}

func TestIndexKeywordSearchIsTenantScoped(t *testing.T) {
	for name, idx := range newIndexes(t) {
		t.Run(name, func(t *testing.T) {
			seedIndex(t, idx)
			hits, err := idx.KeywordSearch(context.Background(), "acme", "termination notice", 10, "")
			if err != nil {
				t.Fatalf("KeywordSearch: %v", err)
			}
			if len(hits) != 2 {
				t.Fatalf("hits: want=2 got=%d (%+v)", len(hits), hits)
			}
			for _, h := range hits {
				if h.Payload.Tenant != "acme" {
					t.Fatalf("hit from another tenant: %+v", h)
				}
				if h.Score <= 0 {
					t.Fatalf("score: want>0 got=%v", h.Score)
				}
			}
			if hits[0].Score < hits[1].Score {
				t.Fatalf("hits not sorted: %+v", hits)
			}

			scoped, err := idx.KeywordSearch(context.Background(), "acme", "termination", 10, "d2")
			if err != nil {
				t.Fatalf("KeywordSearch(doc): %v", err)
			}
			if len(scoped) != 1 || scoped[0].Payload.DocID != "d2" {
				t.Fatalf("doc filter: got=%+v", scoped)
			}
		})
	}
}

func TestIndexVectorSearch(t *testing.T) {
	for name, idx := range newIndexes(t) {
		t.Run(name, func(t *testing.T) {
			seedIndex(t, idx)
			hits, err := idx.VectorSearch(context.Background(), "acme", []float32{1, 0, 0}, 2, "")
			if err != nil {
				t.Fatalf("VectorSearch: %v", err)
			}
			if len(hits) != 2 {
				t.Fatalf("hits: want=2 got=%d", len(hits))
			}
			if hits[0].ID != "acme:d1:c1" {
				t.Fatalf("top hit: want=acme:d1:c1 got=%s", hits[0].ID)
			}
			if hits[0].Score < 1.999 || hits[0].Score > 2.001 {
				t.Fatalf("shifted cosine: want=2 got=%v", hits[0].Score)
			}
			for _, h := range hits {
				if h.Score < 0 || h.Score > 2 {
					t.Fatalf("score out of range: %v", h.Score)
				}
			}

			_, err = idx.VectorSearch(context.Background(), "acme", []float32{1, 0}, 2, "")
			var dimErr *DimensionError
			if !errors.As(err, &dimErr) {
				t.Fatalf("dimension mismatch: want DimensionError got=%v", err)
			}
		})
	}
}

func TestIndexRejectsBadChunks(t *testing.T) {
	for name, idx := range newIndexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := idx.UpsertChunk(ctx, chunk("acme", "d1", "c1", "x", []float32{1, 0})); err == nil {
				t.Fatalf("UpsertChunk with wrong dim: want error")
			}
			if _, err := idx.UpsertChunk(ctx, chunk("", "d1", "c1", "x", []float32{1, 0, 0})); !errors.Is(err, ErrTenantRequired) {
				t.Fatalf("UpsertChunk without tenant: want=%v got=%v", ErrTenantRequired, err)
			}
			if _, err := idx.KeywordSearch(ctx, " ", "x", 3, ""); !errors.Is(err, ErrTenantRequired) {
				t.Fatalf("KeywordSearch without tenant: want=%v got=%v", ErrTenantRequired, err)
			}
		})
	}
}

func TestIndexCountGetAndOverwrite(t *testing.T) {
	for name, idx := range newIndexes(t) {
		t.Run(name, func(t *testing.T) {
			seedIndex(t, idx)
			ctx := context.Background()

			n, err := idx.CountChunks(ctx, "acme", domain.ScopeCorpus, "d1")
			if err != nil || n != 2 {
				t.Fatalf("CountChunks(d1): want=2 got=%d err=%v", n, err)
			}
			n, _ = idx.CountChunks(ctx, "acme", "", "")
			if n != 3 {
				t.Fatalf("CountChunks(all): want=3 got=%d", n)
			}
			n, _ = idx.CountChunks(ctx, "acme", "other-scope", "")
			if n != 0 {
				t.Fatalf("CountChunks(scope): want=0 got=%d", n)
			}

			if _, err := idx.UpsertChunk(ctx, chunk("acme", "d1", "c1", "rewritten text", []float32{0, 0, 1})); err != nil {
				t.Fatalf("UpsertChunk overwrite: %v", err)
			}
			n, _ = idx.CountChunks(ctx, "acme", "", "d1")
			if n != 2 {
				t.Fatalf("overwrite duplicated chunk: want=2 got=%d", n)
			}
			p, err := idx.GetChunk(ctx, "acme:d1:c1")
			if err != nil {
				t.Fatalf("GetChunk: %v", err)
			}
			if p.Text != "rewritten text" {
				t.Fatalf("GetChunk text: want=%q got=%q", "rewritten text", p.Text)
			}
			if _, err := idx.GetChunk(ctx, "acme:nope:c1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetChunk missing: want=%v got=%v", ErrNotFound, err)
			}
		})
	}
}

func TestIndexEnsureAndExists(t *testing.T) {
	for name, idx := range newIndexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := idx.EnsureIndex(ctx); err != nil {
				t.Fatalf("EnsureIndex: %v", err)
			}
			ok, err := idx.IndexExists(ctx)
			if err != nil || !ok {
				t.Fatalf("IndexExists: want=true got=%v err=%v", ok, err)
			}
			if err := idx.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
		})
	}
}

type fakeVectors struct {
	upserts   []domain.Chunk
	searches  int
	upsertErr error
	pingErr   error
	exists    bool
	ensured   bool
}

func (f *fakeVectors) UpsertChunk(ctx context.Context, c domain.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, c)
	return nil
}

func (f *fakeVectors) Search(ctx context.Context, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error) {
	f.searches++
	return []domain.RetrievalHit{{ID: "acme:dq:c1", Score: 1.5, Payload: domain.ChunkPayload{Tenant: tenant, DocID: "dq", ChunkID: "c1"}}}, nil
}

func (f *fakeVectors) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeVectors) EnsureCollection(ctx context.Context) error {
	f.ensured = true
	f.exists = true
	return nil
}

func (f *fakeVectors) CollectionExists(ctx context.Context) (bool, error) { return f.exists, nil }

func TestStoreIndexDelegatesVectorsToBackend(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	vectors := &fakeVectors{}
	idx := NewStoreIndex(log, repos.NewChunkRepo(db, log), vectors, 3)
	ctx := context.Background()

	if _, err := idx.UpsertChunk(ctx, chunk("acme", "d1", "c1", "termination", []float32{1, 0, 0})); err != nil {
		t.Fatalf("UpsertChunk: %v", err)
	}
	if len(vectors.upserts) != 1 {
		t.Fatalf("vector upserts: want=1 got=%d", len(vectors.upserts))
	}
	hits, err := idx.VectorSearch(ctx, "acme", []float32{1, 0, 0}, 3, "")
	if err != nil {
		t.Fatalf("VectorSearch: %v", err)
	}
	if vectors.searches != 1 || len(hits) != 1 || hits[0].ID != "acme:dq:c1" {
		t.Fatalf("VectorSearch not delegated: searches=%d hits=%+v", vectors.searches, hits)
	}

	ok, _ := idx.IndexExists(ctx)
	if ok {
		t.Fatalf("IndexExists before EnsureIndex: want=false")
	}
	if err := idx.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if !vectors.ensured {
		t.Fatalf("EnsureIndex did not create the collection")
	}
	if ok, _ := idx.IndexExists(ctx); !ok {
		t.Fatalf("IndexExists after EnsureIndex: want=true")
	}

	vectors.pingErr = errors.New("down")
	if err := idx.Ping(ctx); err == nil || !strings.Contains(err.Error(), "vector store") {
		t.Fatalf("Ping: want vector store error got=%v", err)
	}
}

func TestStoreIndexVectorFailureSurfaces(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	want := errors.New("qdrant down")
	idx := NewStoreIndex(log, repos.NewChunkRepo(db, log), &fakeVectors{upsertErr: want}, 3)
	_, err := idx.UpsertChunk(context.Background(), chunk("acme", "d1", "c1", "x", []float32{1, 0, 0}))
	if !errors.Is(err, want) {
		t.Fatalf("UpsertChunk: want=%v got=%v", want, err)
	}
}

func TestInstrumentPassThrough(t *testing.T) {
	if got := Instrument(BackendMemory, NewMemoryIndex(3), nil); got == nil {
		t.Fatalf("Instrument without metrics: want inner index")
	}
	m := observability.NewMetrics()
	idx := Instrument(BackendMemory, NewMemoryIndex(3), m)
	seedIndex(t, idx)
	hits, err := idx.KeywordSearch(context.Background(), "acme", "payment", 5, "")
	if err != nil || len(hits) != 1 {
		t.Fatalf("KeywordSearch through wrapper: hits=%d err=%v", len(hits), err)
	}
	var buf strings.Builder
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if !strings.Contains(buf.String(), `backend="memory",operation="upsert",status="success"`) {
		t.Fatalf("upsert not observed:\n%s", buf.String())
	}
}

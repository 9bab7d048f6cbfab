package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/testutil"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/rag/search"
)

type downIndex struct {
	search.Index
}

func (downIndex) Ping(ctx context.Context) error { return errors.New("connection refused") }

func (downIndex) IndexExists(ctx context.Context) (bool, error) { return false, nil }

func TestSeedAndGetChunk(t *testing.T) {
	f := newFixture(t)
	svc := NewIndexService(f.log, f.embedder, f.index)
	ctx := context.Background()

	seed, err := svc.SeedChunk(ctx, "acme")
	if err != nil {
		t.Fatalf("SeedChunk: %v", err)
	}
	if seed.Status != "ok" || seed.ChunkID != "c1" || seed.ID != domain.ChunkKey("acme", seed.DocID, "c1") {
		t.Fatalf("seed result: %+v", seed)
	}
	got, err := svc.GetChunk(ctx, "acme", seed.ID)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if got.Chunk.Text != SeedText || got.Chunk.Source != "seed" {
		t.Fatalf("chunk: %+v", got.Chunk)
	}
	_, err = svc.GetChunk(ctx, "globex", seed.ID)
	wantCode(t, err, 404, "CHUNK_NOT_FOUND")
	_, err = svc.GetChunk(ctx, "acme", "acme:nope:c1")
	wantCode(t, err, 404, "CHUNK_NOT_FOUND")
	_, err = svc.SeedChunk(ctx, "")
	wantCode(t, err, 400, "MISSING_TENANT")
}

func TestIndexHealth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok := NewIndexService(f.log, f.embedder, f.index)
	if res, err := ok.PingIndex(ctx); err != nil || res.Status != "ok" {
		t.Fatalf("PingIndex: %+v err=%v", res, err)
	}
	if res, err := ok.CheckIndex(ctx); err != nil || res.Index != "exists" {
		t.Fatalf("CheckIndex: %+v err=%v", res, err)
	}

	down := NewIndexService(f.log, f.embedder, downIndex{})
	_, err := down.PingIndex(ctx)
	wantCode(t, err, 503, "ES_UNAVAILABLE")
	_, err = down.CheckIndex(ctx)
	wantCode(t, err, 503, "INDEX_MISSING")
}

func TestMetadataFields(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewMetadataService(log, repos.NewMetadataFieldRepo(db, log))
	ctx := context.Background()

	f, err := svc.RegisterField(ctx, RegisterFieldRequest{Key: "jurisdiction", Type: "String", Indexed: true})
	if err != nil {
		t.Fatalf("RegisterField: %v", err)
	}
	if f.Type != "string" || !f.Indexed {
		t.Fatalf("field: %+v", f)
	}
	_, err = svc.RegisterField(ctx, RegisterFieldRequest{Key: "bad key", Type: "string"})
	wantCode(t, err, 400, "INVALID_FIELD_KEY")
	_, err = svc.RegisterField(ctx, RegisterFieldRequest{Key: "k", Type: "json"})
	wantCode(t, err, 400, "INVALID_FIELD_TYPE")

	list, err := svc.ListFields(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListFields: %v err=%v", list, err)
	}
	if _, err := svc.GetField(ctx, "jurisdiction"); err != nil {
		t.Fatalf("GetField: %v", err)
	}
	_, err = svc.GetField(ctx, "missing")
	wantCode(t, err, 404, "FIELD_NOT_FOUND")
}

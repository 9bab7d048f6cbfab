package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/data/repos/testutil"
	"github.com/yungbote/rag-orchestrator/internal/domain"
)

func TestDocumentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewDocumentRepo(db, testutil.Logger(t))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &domain.DocumentRecord{DocID: "doc-a", Tenant: "acme", Filename: "a.pdf", StorageKey: domain.RawStorageKey("acme", "doc-a", "a.pdf"), SizeBytes: 10, CreatedAt: base}
	b := &domain.DocumentRecord{DocID: "doc-b", Tenant: "acme", Filename: "b.txt", StorageKey: domain.RawStorageKey("acme", "doc-b", "b.txt"), SizeBytes: 20, CreatedAt: base.Add(time.Minute)}
	c := &domain.DocumentRecord{DocID: "doc-c", Tenant: "globex", Filename: "c.txt", StorageKey: domain.RawStorageKey("globex", "doc-c", "c.txt"), SizeBytes: 30, CreatedAt: base}
	for _, rec := range []*domain.DocumentRecord{b, a, c} {
		if err := repo.Put(ctx, tx, rec); err != nil {
			t.Fatalf("Put(%s): %v", rec.DocID, err)
		}
	}

	got, err := repo.Get(ctx, tx, "doc-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Tenant != "acme" || got.StorageKey != "raw/acme/doc-a/a.pdf" {
		t.Fatalf("Get: unexpected record %+v", got)
	}

	if _, err := repo.Get(ctx, tx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: want=%v got=%v", ErrNotFound, err)
	}

	list, err := repo.ListByTenant(ctx, tx, "acme")
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(list) != 2 || list[0].DocID != "doc-a" || list[1].DocID != "doc-b" {
		t.Fatalf("ListByTenant: unexpected order %+v", list)
	}

	a.Filename = "renamed.pdf"
	a.SizeBytes = 99
	if err := repo.Put(ctx, tx, a); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err = repo.Get(ctx, tx, "doc-a")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got.Filename != "renamed.pdf" || got.SizeBytes != 99 {
		t.Fatalf("overwrite: want=renamed.pdf/99 got=%s/%d", got.Filename, got.SizeBytes)
	}

	if err := repo.Put(ctx, tx, &domain.DocumentRecord{}); err == nil {
		t.Fatalf("Put without doc_id: expected error")
	}
}

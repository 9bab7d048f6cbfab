package services

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

func TestUploadStoresAndRegisters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.upload.Upload(ctx, "acme", []UploadFile{
		{Filename: "contract.txt", Data: []byte("termination requires notice")},
		{Filename: "notes.md", Data: []byte("# notes")},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Status != "success" || res.Tenant != "acme" || len(res.UploadedFiles) != 2 {
		t.Fatalf("Upload result: %+v", res)
	}
	first := res.UploadedFiles[0]
	wantKey := domain.RawStorageKey("acme", first.DocID, "contract.txt")
	if first.StorageKey != wantKey {
		t.Fatalf("storage key: want=%s got=%s", wantKey, first.StorageKey)
	}
	if !strings.HasPrefix(first.StorageKey, "raw/acme/") {
		t.Fatalf("storage key prefix: %s", first.StorageKey)
	}
	if ok, _ := f.store.Exists(ctx, first.StorageKey); !ok {
		t.Fatalf("object not stored at %s", first.StorageKey)
	}
	rec, err := f.docs.Get(ctx, nil, first.DocID)
	if err != nil {
		t.Fatalf("docs.Get: %v", err)
	}
	if rec.Tenant != "acme" || rec.Filename != "contract.txt" || rec.ContentType == "" {
		t.Fatalf("registry record: %+v", rec)
	}
	if res.QuotaAfter.FilesUsed != 2 || res.QuotaAfter.FilesRemaining != DefaultUploadLimits().DailyMaxFiles-2 {
		t.Fatalf("quota_after: %+v", res.QuotaAfter)
	}
	if res.Limits.MaxFileMB != 25 || res.Limits.MaxFilesPerRequest != 10 {
		t.Fatalf("limits: %+v", res.Limits)
	}
}

func TestUploadValidation(t *testing.T) {
	limits := UploadLimits{MaxFilesPerRequest: 2, MaxFileBytes: 10, MaxRequestBytes: 15, DailyMaxFiles: 100, DailyMaxBytes: 1000}
	cases := []struct {
		name   string
		tenant string
		files  []UploadFile
		status int
		code   string
	}{
		{"missing tenant", " ", []UploadFile{{Filename: "a.txt", Data: []byte("x")}}, 400, "MISSING_TENANT"},
		{"no files", "acme", nil, 400, "MISSING_FILE"},
		{"too many files", "acme", []UploadFile{{Filename: "a", Data: []byte("1")}, {Filename: "b", Data: []byte("1")}, {Filename: "c", Data: []byte("1")}}, 400, "TOO_MANY_FILES"},
		{"missing filename", "acme", []UploadFile{{Filename: "", Data: []byte("x")}}, 400, "MISSING_FILENAME"},
		{"empty file", "acme", []UploadFile{{Filename: "a.txt"}}, 400, "EMPTY_FILE"},
		{"file too large", "acme", []UploadFile{{Filename: "a.txt", Data: []byte("01234567890")}}, 413, "FILE_TOO_LARGE"},
		{"request too large", "acme", []UploadFile{{Filename: "a.txt", Data: []byte("012345678")}, {Filename: "b.txt", Data: []byte("012345678")}}, 413, "REQUEST_TOO_LARGE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			svc := NewUploadService(f.log, f.docs, f.ledger, f.store, limits, nil)
			_, err := svc.Upload(context.Background(), tc.tenant, tc.files)
			wantCode(t, err, tc.status, tc.code)
			if len(f.store.objects) != 0 {
				t.Fatalf("rejected upload wrote objects: %d", len(f.store.objects))
			}
		})
	}
}

func TestUploadDailyQuota(t *testing.T) {
	f := newFixture(t)
	limits := UploadLimits{MaxFilesPerRequest: 10, MaxFileBytes: 100, MaxRequestBytes: 1000, DailyMaxFiles: 2, DailyMaxBytes: 1000}
	svc := NewUploadService(f.log, f.docs, f.ledger, f.store, limits, nil)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "acme", []UploadFile{{Filename: "a.txt", Data: []byte("a")}, {Filename: "b.txt", Data: []byte("b")}}); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	_, err := svc.Upload(ctx, "acme", []UploadFile{{Filename: "c.txt", Data: []byte("c")}})
	wantCode(t, err, 429, domain.QuotaReasonFiles)

	if _, err := svc.Upload(ctx, "globex", []UploadFile{{Filename: "c.txt", Data: []byte("c")}}); err != nil {
		t.Fatalf("other tenant upload: %v", err)
	}
	if len(f.store.objects) != 3 {
		t.Fatalf("objects stored: want=3 got=%d", len(f.store.objects))
	}
}

package gcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/rag-orchestrator/internal/platform/blob"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

func newEmulatorBucket(t *testing.T, handler http.HandlerFunc) *BucketService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return &BucketService{
		log:          log,
		storageMode:  ObjectStorageModeGCSEmulator,
		emulatorHost: srv.URL,
		bucket:       "rag-raw",
		http:         srv.Client(),
	}
}

func TestBucketServiceEmulatorGet(t *testing.T) {
	bs := newEmulatorBucket(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/storage/v1/b/rag-raw/o/raw%2Facme%2Fd1%2Fa.txt" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("alt") != "media" {
			t.Errorf("alt: want=media got=%q", r.URL.Query().Get("alt"))
		}
		_, _ = w.Write([]byte("hello"))
	})

	got, err := bs.Get(context.Background(), "raw/acme/d1/a.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Get body: want=%q got=%q", "hello", string(got))
	}

	if _, err := bs.Get(context.Background(), "raw/acme/d1/missing.txt"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("Get missing: want=%v got=%v", blob.ErrNotFound, err)
	}
}

func TestBucketServiceEmulatorExistsAndPing(t *testing.T) {
	bs := newEmulatorBucket(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/storage/v1/b/rag-raw":
			_, _ = w.Write([]byte(`{"name":"rag-raw"}`))
		case "/storage/v1/b/rag-raw/o/present.txt":
			_, _ = w.Write([]byte(`{"name":"present.txt","size":"3"}`))
		case "/storage/v1/b/rag-raw/o/broken.txt":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	ok, err := bs.Exists(ctx, "present.txt")
	if err != nil || !ok {
		t.Fatalf("Exists present: want=true got=%v err=%v", ok, err)
	}
	ok, err = bs.Exists(ctx, "absent.txt")
	if err != nil || ok {
		t.Fatalf("Exists absent: want=false got=%v err=%v", ok, err)
	}
	if _, err := bs.Exists(ctx, "broken.txt"); err == nil {
		t.Fatalf("Exists broken: expected error")
	}
	if err := bs.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

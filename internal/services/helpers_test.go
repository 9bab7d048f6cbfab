package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/testutil"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/blob"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/rag/embedding"
	"github.com/yungbote/rag-orchestrator/internal/rag/generation"
	"github.com/yungbote/rag-orchestrator/internal/rag/search"
)

const testDim = 32

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, p string) (generation.Result, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	text := "answer [1]"
	if f.reply != nil {
		var err error
		text, err = f.reply(p)
		if err != nil {
			return generation.Result{Latency: 10 * time.Millisecond}, err
		}
	}
	return generation.Result{Text: text, Latency: 10 * time.Millisecond}, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fixture struct {
	log       *logger.Logger
	docs      repos.DocumentRepo
	ledger    repos.QuotaLedger
	store     *memStore
	index     *search.MemoryIndex
	embedder  *embedding.Service
	gen       *fakeGenerator
	loader    DocumentTextLoader
	upload    UploadService
	ingestion IngestionService
	rag       RAGService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := &fixture{
		log:      log,
		docs:     repos.NewDocumentRepo(db, log),
		ledger:   repos.NewSQLQuotaLedger(db, log),
		store:    newMemStore(),
		index:    search.NewMemoryIndex(testDim),
		embedder: embedding.NewService(log, embedding.NewModelCache(embedding.NewLoader(nil)), "hash:32", testDim),
		gen:      &fakeGenerator{},
	}
	f.loader = NewDocumentTextLoader(log, f.docs, f.store)
	f.upload = NewUploadService(log, f.docs, f.ledger, f.store, DefaultUploadLimits(), nil)
	cfg := DefaultRAGConfig()
	f.ingestion = NewIngestionService(log, f.docs, f.loader, f.embedder, f.index, cfg.Chunking, nil)
	f.rag = NewRAGService(log, f.embedder, f.index, f.gen, f.loader, cfg, nil)
	return f
}

// register stores a document directly, bypassing upload limits.
func (f *fixture) register(t *testing.T, tenant, docID, filename, text string) *domain.DocumentRecord {
	t.Helper()
	ctx := context.Background()
	rec := &domain.DocumentRecord{
		DocID:      docID,
		Tenant:     tenant,
		Filename:   filename,
		StorageKey: domain.RawStorageKey(tenant, docID, filename),
		SizeBytes:  int64(len(text)),
	}
	if err := f.store.Put(ctx, rec.StorageKey, []byte(text), "text/plain"); err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	if err := f.docs.Put(ctx, nil, rec); err != nil {
		t.Fatalf("docs.Put: %v", err)
	}
	return rec
}

func wantCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	e, ok := apierr.As(err)
	if !ok {
		t.Fatalf("want apierr %s got=%v", code, err)
	}
	if e.Status != status || e.Code != code {
		t.Fatalf("error: want=%d/%s got=%d/%s (%v)", status, code, e.Status, e.Code, err)
	}
}

func repeatWords(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

func TestChunkStoreUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestChunkStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/rag_chunks/points" {
			t.Fatalf("path: want=%q got=%q", "/collections/rag_chunks/points", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	chunk := testChunk("acme", "doc-1", "c1", []float32{1, 0, 0})
	if err := s.UpsertChunk(context.Background(), chunk); err != nil {
		t.Fatalf("UpsertChunk: %v", err)
	}

	points, ok := captured["points"].([]any)
	if !ok || len(points) != 1 {
		t.Fatalf("points: unexpected %v", captured["points"])
	}
	point := points[0].(map[string]any)
	if point["id"] != PointID("acme:doc-1:c1") {
		t.Fatalf("point id: want=%s got=%v", PointID("acme:doc-1:c1"), point["id"])
	}
	payload := point["payload"].(map[string]any)
	if payload["tenant"] != "acme" || payload["doc_id"] != "doc-1" || payload["chunk_id"] != "c1" {
		t.Fatalf("payload identity: unexpected %v", payload)
	}
	if payload["chunk_key"] != "acme:doc-1:c1" {
		t.Fatalf("payload chunk_key: want=%q got=%v", "acme:doc-1:c1", payload["chunk_key"])
	}
	if payload["chunk_text"] != "termination notice" {
		t.Fatalf("payload chunk_text: got=%v", payload["chunk_text"])
	}
	if _, exists := payload["embedding"]; exists {
		t.Fatalf("payload must not carry the embedding")
	}
}

func TestChunkStoreUpsertRejectsWrongDimension(t *testing.T) {
	s := newTestChunkStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	err := s.UpsertChunk(context.Background(), testChunk("acme", "doc-1", "c1", []float32{1, 0}))
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("want validation error, got=%v", err)
	}
}

func TestChunkStoreSearchFiltersAndShiftsScores(t *testing.T) {
	var captured map[string]any
	s := newTestChunkStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/rag_chunks/points/search" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{
				"id":    PointID("acme:doc-1:c2"),
				"score": 0.9,
				"payload": map[string]any{
					"tenant": "acme", "scope": "corpus", "doc_id": "doc-1", "chunk_id": "c2",
					"source": "a.txt", "chunk_text": "second", "chunk_key": "acme:doc-1:c2",
				},
			},
			{
				"id":    PointID("acme:doc-1:c1"),
				"score": -0.5,
				"payload": map[string]any{
					"tenant": "acme", "scope": "corpus", "doc_id": "doc-1", "chunk_id": "c1",
					"source": "a.txt", "chunk_text": "first",
				},
			},
			{
				"id":      "stray",
				"score":   0.99,
				"payload": map[string]any{"tenant": "globex", "doc_id": "x", "chunk_id": "c1"},
			},
		}), nil
	})

	hits, err := s.Search(context.Background(), "acme", []float32{1, 0, 0}, 5, "doc-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits: want=2 got=%d", len(hits))
	}
	if hits[0].ID != "acme:doc-1:c2" || math.Abs(hits[0].Score-1.9) > 1e-9 {
		t.Fatalf("hit[0]: unexpected %+v", hits[0])
	}
	if hits[1].ID != "acme:doc-1:c1" || math.Abs(hits[1].Score-0.5) > 1e-9 {
		t.Fatalf("hit[1]: unexpected %+v", hits[1])
	}
	if hits[0].Payload.Text != "second" {
		t.Fatalf("payload text: want=%q got=%q", "second", hits[0].Payload.Text)
	}

	filter := captured["filter"].(map[string]any)
	must := filter["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("filter must: want=2 conditions got=%d", len(must))
	}
	first := must[0].(map[string]any)
	if first["key"] != "tenant" || first["match"].(map[string]any)["value"] != "acme" {
		t.Fatalf("tenant condition: unexpected %v", first)
	}
	if captured["with_vector"] != false {
		t.Fatalf("with_vector: want=false got=%v", captured["with_vector"])
	}
}

func TestChunkStoreSearchRequiresTenant(t *testing.T) {
	s := newTestChunkStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	if _, err := s.Search(context.Background(), " ", []float32{1, 0, 0}, 5, ""); err == nil {
		t.Fatalf("expected error for missing tenant")
	}
}

func TestChunkStoreEnsureCollectionCreatesWhenMissing(t *testing.T) {
	var calls []string
	s := newTestChunkStore(t, func(r *http.Request) (*http.Response, error) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodGet {
			return statusResponse(http.StatusNotFound, `{"status":{"error":"Not found"}}`), nil
		}
		return okResponse(t, true), nil
	})
	if err := s.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	want := []string{
		"GET /collections/rag_chunks",
		"PUT /collections/rag_chunks",
		"PUT /collections/rag_chunks/index",
		"PUT /collections/rag_chunks/index",
	}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("calls: want=%v got=%v", want, calls)
	}
}

func TestChunkStoreEnsureCollectionSizeMismatch(t *testing.T) {
	s := newTestChunkStore(t, func(r *http.Request) (*http.Response, error) {
		return okResponse(t, map[string]any{
			"config": map[string]any{
				"params": map[string]any{
					"vectors": map[string]any{"size": 1536, "distance": "Cosine"},
				},
			},
		}), nil
	})
	err := s.EnsureCollection(context.Background())
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("want validation error, got=%v", err)
	}
	exists, err := s.CollectionExists(context.Background())
	if err != nil || !exists {
		t.Fatalf("CollectionExists: want=true got=%v err=%v", exists, err)
	}
}

func TestChunkStorePing(t *testing.T) {
	s := newTestChunkStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/readyz" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		return statusResponse(http.StatusServiceUnavailable, "not ready"), nil
	})
	err := s.Ping(context.Background())
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want status error, got=%v", err)
	}
}

func TestOperationErrorCarriesCollection(t *testing.T) {
	status := http.StatusInternalServerError
	s := newTestChunkStore(t, func(r *http.Request) (*http.Response, error) {
		return statusResponse(status, `{"status":{"error":"boom"}}`), nil
	})

	err := s.doJSON(context.Background(), "search", http.MethodPost, s.collectionPath("/points/search"), map[string]any{}, nil)
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Collection != "rag_chunks" || opErr.StatusCode != status {
		t.Fatalf("error fields: %+v", opErr)
	}
	if !strings.Contains(err.Error(), "collection=rag_chunks") {
		t.Fatalf("message: got=%q", err.Error())
	}
	if IsNotFound(err) {
		t.Fatalf("IsNotFound: 500 must not match")
	}

	status = http.StatusNotFound
	err = s.doJSON(context.Background(), "collection_exists", http.MethodGet, s.collectionPath(""), nil, nil)
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound: want=true got=false (%v)", err)
	}
	if IsNotFound(errors.New("plain")) {
		t.Fatalf("IsNotFound: plain error must not match")
	}
}

func TestPointIDDeterministic(t *testing.T) {
	if PointID("acme:d:c1") != PointID("acme:d:c1") {
		t.Fatalf("PointID must be deterministic")
	}
	if PointID("acme:d:c1") == PointID("acme:d:c2") {
		t.Fatalf("PointID must differ per chunk key")
	}
}

func TestClassifyHTTPCallErrorTimeout(t *testing.T) {
	err := classifyHTTPCallError("search", "timeout", context.DeadlineExceeded)
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorTimeout {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTimeout, opErr.Code)
	}
}

func TestClassifyHTTPCallErrorTransport(t *testing.T) {
	err := classifyHTTPCallError("search", "transport", fmt.Errorf("boom"))
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorTransportFailed {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTransportFailed, opErr.Code)
	}
}

func testChunk(tenant, docID, chunkID string, emb []float32) domain.Chunk {
	return domain.Chunk{
		ChunkPayload: domain.ChunkPayload{
			Tenant:    tenant,
			Scope:     domain.ScopeCorpus,
			DocID:     docID,
			ChunkID:   chunkID,
			Source:    "a.txt",
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Text:      "termination notice",
		},
		Embedding: emb,
	}
}

func newTestChunkStore(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *ChunkStore {
	t.Helper()
	return &ChunkStore{
		log:     newTestLogger(t),
		cfg:     Config{Collection: "rag_chunks", VectorDim: 3},
		baseURL: "http://qdrant.local",
		http:    &http.Client{Transport: roundTripFunc(roundTrip)},
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	payload := map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.001,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

func statusResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

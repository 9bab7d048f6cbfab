package observability

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/health", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ObserveRAGStage("query", "embed", time.Millisecond)
	m.ObserveQuota(false, "FILE_QUOTA_EXCEEDED")
	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nil metrics wrote output: %q", buf.String())
	}
	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("status: want=503 got=%d", rec.Code)
	}
}

func TestInitDisabledReturnsNil(t *testing.T) {
	if m := Init(false); m != nil {
		t.Fatalf("Init(false): want=nil got=%v", m)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/v1/rag/query", "200", 30*time.Millisecond)
	m.ObserveAPI("POST", "/v1/rag/query", "502", 10*time.Millisecond)
	m.ObserveRAGStage("query", "retrieve", 40*time.Millisecond)
	m.ObserveQuota(true, "")
	m.ObserveQuota(false, "BYTE_QUOTA_EXCEEDED")
	m.AddIngestedChunks(3)
	m.AddUploadedBytes(0)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`rag_api_requests_total{method="POST",route="/v1/rag/query",status="200"} 1`,
		`rag_api_requests_error_total 1`,
		`rag_stage_duration_seconds_bucket{operation="query",stage="retrieve",le="0.05"} 1`,
		`rag_quota_decisions_total{result="BYTE_QUOTA_EXCEEDED"} 1`,
		`rag_quota_decisions_total{result="allowed"} 1`,
		`rag_ingest_chunks_total 3`,
		`rag_upload_bytes_total 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing line %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, `status="200"`) > strings.Index(out, `status="502"`) {
		t.Fatalf("label sets not sorted")
	}
}

func TestLabelStringEscapes(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	want := `{a="x\"y",b="unknown"}`
	if got != want {
		t.Fatalf("labelString: want=%s got=%s", want, got)
	}
}

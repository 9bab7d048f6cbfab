package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	apiReqTotal   *Counter
	apiReqError   *Counter
	ragStage      *HistogramVec
	ragRequests   *CounterVec
	llmRequests   *CounterVec
	llmLatency    *HistogramVec
	indexOps      *HistogramVec
	ingestDocs    *CounterVec
	ingestChunks  *Counter
	uploadBytes   *Counter
	quotaDecision *CounterVec
	bootstrap     *CounterVec
	dbStats       *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process-wide metrics, or nil when metrics are disabled.
func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once. It returns nil when disabled; every
// method on a nil *Metrics is a no-op.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("rag_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"rag_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("rag_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("rag_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("rag_api_requests_error_total", "Total API requests with 5xx status."),
		ragStage: NewHistogramVec(
			"rag_stage_duration_seconds",
			"RAG pipeline stage latency in seconds by operation/stage.",
			[]string{"operation", "stage"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		ragRequests: NewCounterVec("rag_requests_total", "RAG operations by operation/outcome.", []string{"operation", "outcome"}),
		llmRequests: NewCounterVec("rag_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec(
			"rag_llm_request_duration_seconds",
			"LLM request latency in seconds by model/endpoint/status.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		),
		indexOps: NewHistogramVec(
			"rag_index_operation_duration_seconds",
			"Search index operation latency in seconds by backend/operation/status.",
			[]string{"backend", "operation", "status"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		ingestDocs:    NewCounterVec("rag_ingest_documents_total", "Documents processed by ingestion, by outcome.", []string{"outcome"}),
		ingestChunks:  NewCounter("rag_ingest_chunks_total", "Chunks indexed by ingestion."),
		uploadBytes:   NewCounter("rag_upload_bytes_total", "Bytes accepted by the upload endpoint."),
		quotaDecision: NewCounterVec("rag_quota_decisions_total", "Quota ledger decisions by result.", []string{"result"}),
		bootstrap: NewCounterVec(
			"rag_provider_bootstrap_total",
			"Provider bootstrap attempts by component/mode/status/error_code.",
			[]string{"component", "mode", "status", "error_code"},
		),
		dbStats: NewGaugeVec("rag_db_stats", "Database pool statistics.", []string{"stat"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.apiReqTotal,
		m.apiReqError,
		m.ragStage,
		m.ragRequests,
		m.llmRequests,
		m.llmLatency,
		m.indexOps,
		m.ingestDocs,
		m.ingestChunks,
		m.uploadBytes,
		m.quotaDecision,
		m.bootstrap,
		m.dbStats,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveRAGStage records one pipeline stage (embed, retrieve, generate, ...).
func (m *Metrics) ObserveRAGStage(operation, stage string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ragStage.Observe(dur.Seconds(), orUnknown(operation), orUnknown(stage))
}

func (m *Metrics) IncRAGRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.ragRequests.Inc(orUnknown(operation), orUnknown(outcome))
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration) {
	if m == nil {
		return
	}
	model = orUnknown(model)
	endpoint = orUnknown(endpoint)
	status = strings.TrimSpace(status)
	if status == "" {
		status = "0"
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
}

func (m *Metrics) ObserveIndexOperation(backend, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.indexOps.Observe(dur.Seconds(), orUnknown(backend), orUnknown(operation), orUnknown(status))
}

func (m *Metrics) IncIngestDocument(outcome string) {
	if m == nil {
		return
	}
	m.ingestDocs.Inc(orUnknown(outcome))
}

func (m *Metrics) AddIngestedChunks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestChunks.Add(float64(n))
}

func (m *Metrics) AddUploadedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}

// ObserveQuota counts an allowed decision as "allowed" and a denial by its reason.
func (m *Metrics) ObserveQuota(allowed bool, reason string) {
	if m == nil {
		return
	}
	if allowed {
		m.quotaDecision.Inc("allowed")
		return
	}
	m.quotaDecision.Inc(orUnknown(reason))
}

// ObserveProviderBootstrap records one backend selection at startup. code is "none" on success.
func (m *Metrics) ObserveProviderBootstrap(component, mode, status, code string) {
	if m == nil {
		return
	}
	m.bootstrap.Inc(orUnknown(component), orUnknown(mode), orUnknown(status), orUnknown(code))
}

// StartDBCollector samples the connection pool until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sampleDB(log, db)
			}
		}
	}()
}

func (m *Metrics) sampleDB(log *logger.Logger, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
		}
		return
	}
	stats := sqlDB.Stats()
	m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
	m.dbStats.Set(float64(stats.InUse), "in_use")
	m.dbStats.Set(float64(stats.Idle), "idle")
	m.dbStats.Set(float64(stats.WaitCount), "wait_count")
	m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

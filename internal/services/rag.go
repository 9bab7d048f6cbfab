package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/rag/chunker"
	"github.com/yungbote/rag-orchestrator/internal/rag/citation"
	"github.com/yungbote/rag-orchestrator/internal/rag/fusion"
	"github.com/yungbote/rag-orchestrator/internal/rag/generation"
	"github.com/yungbote/rag-orchestrator/internal/rag/prompt"
	"github.com/yungbote/rag-orchestrator/internal/rag/search"
)

// Generator is the generation contract used by the RAG service.
type Generator interface {
	Generate(ctx context.Context, prompt string) (generation.Result, error)
}

type RAGConfig struct {
	QueryTopK    int
	RetrieveTopK int
	WeightBM25   float64
	WeightVector float64
	// Documents longer than SummaryMaxChars are summarized with map-reduce.
	SummaryMaxChars int
	// SummaryBatchChunks is the number of chunks per map-step prompt.
	SummaryBatchChunks int
	Chunking           ChunkingConfig
}

func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		QueryTopK:          5,
		RetrieveTopK:       fusion.DefaultTopK,
		WeightBM25:         fusion.DefaultBM25Weight,
		WeightVector:       fusion.DefaultVectorWeight,
		SummaryMaxChars:    12000,
		SummaryBatchChunks: 8,
		Chunking:           ChunkingConfig{Size: chunker.DefaultSize, Overlap: chunker.DefaultOverlap},
	}
}

type QueryRequest struct {
	Tenant string
	Query  string
	DocID  string
	TopK   int
}

type QueryResult struct {
	Status             string                `json:"status"`
	Tenant             string                `json:"tenant"`
	Query              string                `json:"query"`
	DocID              string                `json:"doc_id,omitempty"`
	Answer             string                `json:"answer"`
	Citations          []domain.Citation     `json:"citations"`
	AvailableCitations []domain.Citation     `json:"available_citations"`
	Context            []domain.MergedResult `json:"context"`
	Timings            domain.Timings        `json:"timings_ms"`
}

type SummaryResult struct {
	Status    string            `json:"status"`
	Tenant    string            `json:"tenant"`
	DocID     string            `json:"doc_id"`
	Query     string            `json:"query,omitempty"`
	Mode      string            `json:"mode"`
	Summary   string            `json:"summary"`
	Parts     int               `json:"parts,omitempty"`
	Citations []domain.Citation `json:"citations"`
	Timings   domain.Timings    `json:"timings_ms"`
}

const (
	SummaryModeSingle      = "single"
	SummaryModeMapReduce   = "map_reduce"
	SummaryModeQueryGuided = "query_guided"
)

type RetrieveResult struct {
	Status  string                `json:"status"`
	Tenant  string                `json:"tenant"`
	Query   string                `json:"query"`
	TopK    int                   `json:"top_k"`
	DocID   string                `json:"doc_id,omitempty"`
	Results []domain.MergedResult `json:"results"`
}

type RetrieveHitsResult struct {
	Status  string                `json:"status"`
	Tenant  string                `json:"tenant"`
	Query   string                `json:"query"`
	TopK    int                   `json:"top_k"`
	DocID   string                `json:"doc_id,omitempty"`
	Results []domain.RetrievalHit `json:"results"`
}

type RAGService interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
	QueryDocument(ctx context.Context, req QueryRequest) (*QueryResult, error)
	Summarize(ctx context.Context, req QueryRequest) (*SummaryResult, error)
	Retrieve(ctx context.Context, req QueryRequest) (*RetrieveResult, error)
	RetrieveKeyword(ctx context.Context, req QueryRequest) (*RetrieveHitsResult, error)
	RetrieveVector(ctx context.Context, req QueryRequest) (*RetrieveHitsResult, error)
}

type ragService struct {
	log      *logger.Logger
	embedder Embedder
	index    search.Index
	gen      Generator
	loader   DocumentTextLoader
	cfg      RAGConfig
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewRAGService(
	baseLog *logger.Logger,
	embedder Embedder,
	index search.Index,
	gen Generator,
	loader DocumentTextLoader,
	cfg RAGConfig,
	metrics *observability.Metrics,
) RAGService {
	return &ragService{
		log:      baseLog.With("service", "RAGService"),
		embedder: embedder,
		index:    index,
		gen:      gen,
		loader:   loader,
		cfg:      cfg,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (s *ragService) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	return s.answer(ctx, "query", req)
}

func (s *ragService) QueryDocument(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	req, err := s.normalize(req, s.cfg.QueryTopK)
	if err != nil {
		return nil, err
	}
	if req.DocID == "" {
		return nil, apierr.Validation("MISSING_DOC_ID", "Request must include non-empty 'doc_id'")
	}
	if _, err := s.loader.Authorize(ctx, req.Tenant, req.DocID); err != nil {
		return nil, err
	}
	return s.answer(ctx, "query_doc", req)
}

func (s *ragService) answer(ctx context.Context, op string, req QueryRequest) (*QueryResult, error) {
	start := s.now()
	req, err := s.normalize(req, s.cfg.QueryTopK)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "rag."+op,
		attribute.String("rag.tenant", req.Tenant),
		attribute.Int("rag.top_k", req.TopK),
	)
	defer span.End()

	merged, embedDur, retrieveDur, err := s.hybrid(ctx, op, req)
	if err != nil {
		s.metrics.IncRAGRequest(op, "error")
		return nil, err
	}

	out := &QueryResult{
		Status:             StatusSuccess,
		Tenant:             req.Tenant,
		Query:              req.Query,
		DocID:              req.DocID,
		Citations:          []domain.Citation{},
		AvailableCitations: citation.FromResults(merged),
		Context:            merged,
	}
	if len(merged) == 0 {
		out.Answer = prompt.NoAnswer
		out.Timings = timings(embedDur, retrieveDur, 0, s.now().Sub(start))
		s.metrics.IncRAGRequest(op, "no_context")
		return out, nil
	}

	res, err := s.generate(ctx, op, prompt.Grounded(req.Query, merged))
	if err != nil {
		s.metrics.IncRAGRequest(op, "error")
		return nil, err
	}
	out.Answer = res.Text
	out.Citations = citation.FilterUsed(out.AvailableCitations, citation.ExtractUsedRefs(res.Text))
	out.Timings = timings(embedDur, retrieveDur, res.Latency, s.now().Sub(start))
	s.metrics.IncRAGRequest(op, "answered")
	s.log.Info("RAG answer",
		"op", op,
		"tenant", req.Tenant,
		"results", len(merged),
		"citations", len(out.Citations),
		"total_ms", out.Timings.TotalMs,
	)
	return out, nil
}

// Summarize summarizes one document. Without a query the whole text is summarized,
// with map-reduce above SummaryMaxChars; with a query retrieval is scoped to the document.
func (s *ragService) Summarize(ctx context.Context, req QueryRequest) (*SummaryResult, error) {
	start := s.now()
	req.Tenant = strings.TrimSpace(req.Tenant)
	if err := requireTenant(req.Tenant); err != nil {
		return nil, err
	}
	req.DocID = strings.TrimSpace(req.DocID)
	req.Query = strings.TrimSpace(req.Query)
	if req.DocID == "" {
		return nil, apierr.Validation("MISSING_DOC_ID", "Request must include non-empty 'doc_id'")
	}
	rec, err := s.loader.Authorize(ctx, req.Tenant, req.DocID)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "rag.summary", attribute.String("rag.tenant", req.Tenant))
	defer span.End()

	if req.Query != "" {
		return s.guidedSummary(ctx, start, req)
	}

	text, err := s.loader.LoadText(ctx, rec)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apierr.Validation("EMPTY_TEXT", "Extracted text from document "+req.DocID+" is empty")
	}
	out := &SummaryResult{
		Status:    StatusSuccess,
		Tenant:    req.Tenant,
		DocID:     req.DocID,
		Citations: []domain.Citation{},
	}
	if len([]rune(text)) <= s.cfg.SummaryMaxChars {
		res, err := s.generate(ctx, "summary", prompt.DocumentSummary(text))
		if err != nil {
			return nil, err
		}
		out.Mode = SummaryModeSingle
		out.Summary = res.Text
		out.Parts = 1
		out.Timings = timings(0, 0, res.Latency, s.now().Sub(start))
		return out, nil
	}

	summary, parts, genDur, err := s.mapReduce(ctx, text)
	if err != nil {
		return nil, err
	}
	out.Mode = SummaryModeMapReduce
	out.Summary = summary
	out.Parts = parts
	out.Timings = timings(0, 0, genDur, s.now().Sub(start))
	s.log.Info("Map-reduce summary", "tenant", req.Tenant, "doc_id", req.DocID, "parts", parts)
	return out, nil
}

// mapReduce summarizes batches of chunks, then combines the partials. Any failed
// call aborts the summary; reported latency is the sum of all calls.
func (s *ragService) mapReduce(ctx context.Context, text string) (string, int, time.Duration, error) {
	pieces, err := chunker.Split(text, s.cfg.Chunking.Size, s.cfg.Chunking.Overlap)
	if err != nil {
		return "", 0, 0, apierr.Internal("CHUNKER_CONFIG", err)
	}
	batch := s.cfg.SummaryBatchChunks
	if batch <= 0 {
		batch = 1
	}
	sections := make([]string, 0, (len(pieces)+batch-1)/batch)
	for i := 0; i < len(pieces); i += batch {
		end := min(i+batch, len(pieces))
		sections = append(sections, strings.Join(pieces[i:end], "\n\n"))
	}

	var total time.Duration
	partials := make([]string, 0, len(sections))
	for i, section := range sections {
		res, err := s.generate(ctx, "summary_map", prompt.PartialSummary(section, i+1, len(sections)))
		if err != nil {
			return "", 0, 0, err
		}
		total += res.Latency
		partials = append(partials, res.Text)
	}
	res, err := s.generate(ctx, "summary_reduce", prompt.ReduceSummary(partials))
	if err != nil {
		return "", 0, 0, err
	}
	total += res.Latency
	return res.Text, len(sections), total, nil
}

func (s *ragService) guidedSummary(ctx context.Context, start time.Time, req QueryRequest) (*SummaryResult, error) {
	req, err := s.normalize(req, s.cfg.QueryTopK)
	if err != nil {
		return nil, err
	}
	merged, embedDur, retrieveDur, err := s.hybrid(ctx, "summary", req)
	if err != nil {
		return nil, err
	}
	out := &SummaryResult{
		Status:    StatusSuccess,
		Tenant:    req.Tenant,
		DocID:     req.DocID,
		Query:     req.Query,
		Mode:      SummaryModeQueryGuided,
		Citations: []domain.Citation{},
	}
	if len(merged) == 0 {
		out.Summary = prompt.NoAnswer
		out.Timings = timings(embedDur, retrieveDur, 0, s.now().Sub(start))
		return out, nil
	}
	res, err := s.generate(ctx, "summary", prompt.QueryGuidedSummary(req.Query, merged))
	if err != nil {
		return nil, err
	}
	out.Summary = res.Text
	out.Citations = citation.FilterUsed(citation.FromResults(merged), citation.ExtractUsedRefs(res.Text))
	out.Timings = timings(embedDur, retrieveDur, res.Latency, s.now().Sub(start))
	return out, nil
}

func (s *ragService) Retrieve(ctx context.Context, req QueryRequest) (*RetrieveResult, error) {
	req, err := s.normalize(req, s.cfg.RetrieveTopK)
	if err != nil {
		return nil, err
	}
	merged, _, _, err := s.hybrid(ctx, "retrieve", req)
	if err != nil {
		return nil, err
	}
	return &RetrieveResult{
		Status:  StatusSuccess,
		Tenant:  req.Tenant,
		Query:   req.Query,
		TopK:    req.TopK,
		DocID:   req.DocID,
		Results: merged,
	}, nil
}

func (s *ragService) RetrieveKeyword(ctx context.Context, req QueryRequest) (*RetrieveHitsResult, error) {
	req, err := s.normalize(req, s.cfg.RetrieveTopK)
	if err != nil {
		return nil, err
	}
	hits, err := s.index.KeywordSearch(ctx, req.Tenant, req.Query, req.TopK, req.DocID)
	if err != nil {
		return nil, searchError("SEARCH_FAILED", err)
	}
	return hitsResult(req, hits), nil
}

func (s *ragService) RetrieveVector(ctx context.Context, req QueryRequest) (*RetrieveHitsResult, error) {
	req, err := s.normalize(req, s.cfg.RetrieveTopK)
	if err != nil {
		return nil, err
	}
	qvec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, apierr.Upstream(http.StatusBadGateway, "EMBEDDING_FAILED", err)
	}
	hits, err := s.index.VectorSearch(ctx, req.Tenant, qvec, req.TopK, req.DocID)
	if err != nil {
		return nil, searchError("SEARCH_FAILED", err)
	}
	return hitsResult(req, hits), nil
}

func hitsResult(req QueryRequest, hits []domain.RetrievalHit) *RetrieveHitsResult {
	if hits == nil {
		hits = []domain.RetrievalHit{}
	}
	return &RetrieveHitsResult{
		Status:  StatusSuccess,
		Tenant:  req.Tenant,
		Query:   req.Query,
		TopK:    req.TopK,
		DocID:   req.DocID,
		Results: hits,
	}
}

func (s *ragService) normalize(req QueryRequest, defaultTopK int) (QueryRequest, error) {
	req.Tenant = strings.TrimSpace(req.Tenant)
	req.Query = strings.TrimSpace(req.Query)
	req.DocID = strings.TrimSpace(req.DocID)
	if err := requireTenant(req.Tenant); err != nil {
		return req, err
	}
	if req.Query == "" {
		return req, apierr.Validation("MISSING_QUERY", "Request must include non-empty 'query'")
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}
	return req, nil
}

// hybrid embeds the query, runs keyword and vector search concurrently and merges them.
func (s *ragService) hybrid(ctx context.Context, op string, req QueryRequest) ([]domain.MergedResult, time.Duration, time.Duration, error) {
	embedStart := s.now()
	ectx, span := observability.StartSpan(ctx, "rag.embed")
	qvec, err := s.embedder.Embed(ectx, req.Query)
	span.End()
	embedDur := s.now().Sub(embedStart)
	s.metrics.ObserveRAGStage(op, "embed", embedDur)
	if err != nil {
		return nil, embedDur, 0, apierr.Upstream(http.StatusBadGateway, "EMBEDDING_FAILED", err)
	}

	retrieveStart := s.now()
	rctx, span := observability.StartSpan(ctx, "rag.retrieve")
	defer span.End()
	var bm25, vec []domain.RetrievalHit
	g, gctx := errgroup.WithContext(rctx)
	g.Go(func() error {
		hits, err := s.index.KeywordSearch(gctx, req.Tenant, req.Query, req.TopK, req.DocID)
		if err != nil {
			return err
		}
		bm25 = hits
		return nil
	})
	g.Go(func() error {
		hits, err := s.index.VectorSearch(gctx, req.Tenant, qvec, req.TopK, req.DocID)
		if err != nil {
			return err
		}
		vec = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, embedDur, s.now().Sub(retrieveStart), searchError("SEARCH_FAILED", err)
	}
	merged := fusion.Merge(bm25, vec, s.cfg.WeightBM25, s.cfg.WeightVector, req.TopK)
	retrieveDur := s.now().Sub(retrieveStart)
	s.metrics.ObserveRAGStage(op, "retrieve", retrieveDur)
	return merged, embedDur, retrieveDur, nil
}

func (s *ragService) generate(ctx context.Context, op, p string) (generation.Result, error) {
	gctx, span := observability.StartSpan(ctx, "rag.generate", attribute.Int("rag.prompt_chars", len(p)))
	defer span.End()
	res, err := s.gen.Generate(gctx, p)
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	s.metrics.ObserveRAGStage(op, "generate", res.Latency)
	return res, nil
}

func timings(embed, retrieve, generate, total time.Duration) domain.Timings {
	return domain.Timings{
		EmbedMs:    embed.Milliseconds(),
		RetrieveMs: retrieve.Milliseconds(),
		GenerateMs: generate.Milliseconds(),
		TotalMs:    total.Milliseconds(),
	}
}

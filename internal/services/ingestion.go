package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/rag/chunker"
	"github.com/yungbote/rag-orchestrator/internal/rag/search"
)

// Embedder is the embedding contract used by ingestion and retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type ChunkingConfig struct {
	Size    int
	Overlap int
}

type IngestResult struct {
	Status        string `json:"status"`
	DocID         string `json:"doc_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type IngestedDoc struct {
	DocID         string `json:"doc_id"`
	Filename      string `json:"filename"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

type SkippedDoc struct {
	DocID          string `json:"doc_id"`
	Filename       string `json:"filename"`
	ExistingChunks int64  `json:"existing_chunks"`
}

type FailedDoc struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Code     string `json:"code"`
	Error    string `json:"error"`
}

type BatchIngestResult struct {
	Status   string        `json:"status"`
	Tenant   string        `json:"tenant"`
	Ingested []IngestedDoc `json:"ingested"`
	Skipped  []SkippedDoc  `json:"skipped"`
	Failed   []FailedDoc   `json:"failed"`
}

const (
	StatusSuccess  = "success"
	StatusNoAction = "no_action"
)

type IngestionService interface {
	IngestDocument(ctx context.Context, tenant, docID string) (*IngestResult, error)
	IngestAllForTenant(ctx context.Context, tenant string) (*BatchIngestResult, error)
}

type ingestionService struct {
	log      *logger.Logger
	docs     repos.DocumentRepo
	loader   DocumentTextLoader
	embedder Embedder
	index    search.Index
	chunking ChunkingConfig
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewIngestionService(
	baseLog *logger.Logger,
	docs repos.DocumentRepo,
	loader DocumentTextLoader,
	embedder Embedder,
	index search.Index,
	chunking ChunkingConfig,
	metrics *observability.Metrics,
) IngestionService {
	return &ingestionService{
		log:      baseLog.With("service", "IngestionService"),
		docs:     docs,
		loader:   loader,
		embedder: embedder,
		index:    index,
		chunking: chunking,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (s *ingestionService) IngestDocument(ctx context.Context, tenant, docID string) (*IngestResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if strings.TrimSpace(docID) == "" {
		return nil, apierr.Validation("MISSING_DOC_ID", "Request must include a document id")
	}
	rec, err := s.loader.Authorize(ctx, tenant, docID)
	if err != nil {
		return nil, err
	}
	n, err := s.ingest(ctx, tenant, rec)
	if err != nil {
		s.metrics.IncIngestDocument("failed")
		return nil, err
	}
	s.metrics.IncIngestDocument("ingested")
	return &IngestResult{Status: StatusSuccess, DocID: docID, ChunksIndexed: n}, nil
}

// IngestAllForTenant indexes every registered document that has no chunks yet.
// A failing document is recorded and the batch continues.
func (s *ingestionService) IngestAllForTenant(ctx context.Context, tenant string) (*BatchIngestResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	records, err := s.docs.ListByTenant(ctx, nil, tenant)
	if err != nil {
		return nil, apierr.Internal("REGISTRY_READ_FAILED", fmt.Errorf("list documents for %s: %w", tenant, err))
	}
	if len(records) == 0 {
		return nil, apierr.NotFound("NO_DOCUMENTS", fmt.Sprintf("No documents found for tenant %s", tenant))
	}

	out := &BatchIngestResult{
		Tenant:   tenant,
		Ingested: []IngestedDoc{},
		Skipped:  []SkippedDoc{},
		Failed:   []FailedDoc{},
	}
	for _, rec := range records {
		existing, err := s.index.CountChunks(ctx, tenant, domain.ScopeCorpus, rec.DocID)
		if err != nil {
			out.Failed = append(out.Failed, failedDoc(rec, searchError("SEARCH_UNAVAILABLE", err)))
			s.metrics.IncIngestDocument("failed")
			continue
		}
		if existing > 0 {
			out.Skipped = append(out.Skipped, SkippedDoc{DocID: rec.DocID, Filename: rec.Filename, ExistingChunks: existing})
			s.metrics.IncIngestDocument("skipped")
			continue
		}
		n, err := s.ingest(ctx, tenant, rec)
		if err != nil {
			s.log.Warn("Batch ingest: document failed", "tenant", tenant, "doc_id", rec.DocID, "error", err)
			out.Failed = append(out.Failed, failedDoc(rec, err))
			s.metrics.IncIngestDocument("failed")
			continue
		}
		out.Ingested = append(out.Ingested, IngestedDoc{DocID: rec.DocID, Filename: rec.Filename, ChunksIndexed: n})
		s.metrics.IncIngestDocument("ingested")
	}

	out.Status = StatusNoAction
	if len(out.Ingested) > 0 {
		out.Status = StatusSuccess
	}
	s.log.Info("Batch ingest finished",
		"tenant", tenant,
		"ingested", len(out.Ingested),
		"skipped", len(out.Skipped),
		"failed", len(out.Failed),
	)
	return out, nil
}

// ingest runs extract, chunk, embed and upsert for a record whose tenant has
// already been checked.
func (s *ingestionService) ingest(ctx context.Context, tenant string, rec *domain.DocumentRecord) (int, error) {
	ctx, span := observability.StartSpan(ctx, "rag.ingest")
	defer span.End()

	text, err := s.loader.LoadText(ctx, rec)
	if err != nil {
		return 0, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, apierr.Validation("EMPTY_TEXT", fmt.Sprintf("Extracted text from document %s is empty", rec.DocID))
	}
	pieces, err := chunker.Split(text, s.chunking.Size, s.chunking.Overlap)
	if err != nil {
		return 0, apierr.Internal("CHUNKER_CONFIG", err)
	}
	if len(pieces) == 0 {
		return 0, apierr.Validation("EMPTY_CHUNKS", fmt.Sprintf("Chunked text from document %s is empty", rec.DocID))
	}

	vecs, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return 0, apierr.Upstream(http.StatusBadGateway, "EMBEDDING_FAILED", err)
	}
	createdAt := s.now().UTC()
	for i, piece := range pieces {
		c := domain.Chunk{
			ChunkPayload: domain.ChunkPayload{
				Tenant:    tenant,
				Scope:     domain.ScopeCorpus,
				DocID:     rec.DocID,
				ChunkID:   domain.ChunkID(i + 1),
				Source:    rec.Filename,
				CreatedAt: createdAt,
				Text:      piece,
			},
			Embedding: vecs[i],
		}
		if _, err := s.index.UpsertChunk(ctx, c); err != nil {
			return 0, indexWriteError(err)
		}
	}
	s.metrics.AddIngestedChunks(len(pieces))
	s.log.Info("Document ingested", "tenant", tenant, "doc_id", rec.DocID, "chunks", len(pieces))
	return len(pieces), nil
}

// failedDoc reports only the public message; causes stay in the logs.
func failedDoc(rec *domain.DocumentRecord, err error) FailedDoc {
	code, msg := "UNHANDLED", "An unexpected error occurred."
	if e, ok := apierr.As(err); ok {
		if e.Code != "" {
			code = e.Code
		}
		if e.Message != "" {
			msg = e.Message
		}
	}
	return FailedDoc{DocID: rec.DocID, Filename: rec.Filename, Code: code, Error: msg}
}

func indexWriteError(err error) error {
	var dimErr *search.DimensionError
	if errors.As(err, &dimErr) {
		return apierr.Internal("EMBEDDING_DIM_MISMATCH", err)
	}
	return apierr.Upstream(http.StatusBadGateway, "INDEX_WRITE_FAILED", err)
}

func searchError(code string, err error) error {
	if _, ok := apierr.As(err); ok {
		return err
	}
	var dimErr *search.DimensionError
	if errors.As(err, &dimErr) {
		return apierr.Internal("EMBEDDING_DIM_MISMATCH", err)
	}
	return apierr.Upstream(http.StatusBadGateway, code, err)
}

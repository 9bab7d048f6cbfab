package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/documents"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/blob"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/rag/extract"
)

// DocumentTextLoader resolves a tenant's document to its extracted text.
type DocumentTextLoader interface {
	// Authorize returns the registry record after checking it belongs to tenant.
	Authorize(ctx context.Context, tenant, docID string) (*domain.DocumentRecord, error)
	LoadText(ctx context.Context, rec *domain.DocumentRecord) (string, error)
}

type documentTextLoader struct {
	log   *logger.Logger
	docs  repos.DocumentRepo
	store blob.Store
}

func NewDocumentTextLoader(baseLog *logger.Logger, docs repos.DocumentRepo, store blob.Store) DocumentTextLoader {
	return &documentTextLoader{
		log:   baseLog.With("service", "DocumentTextLoader"),
		docs:  docs,
		store: store,
	}
}

func (l *documentTextLoader) Authorize(ctx context.Context, tenant, docID string) (*domain.DocumentRecord, error) {
	rec, err := l.docs.Get(ctx, nil, docID)
	if errors.Is(err, documents.ErrNotFound) {
		return nil, apierr.NotFound("DOC_NOT_FOUND", fmt.Sprintf("Document with id %s not found", docID))
	}
	if err != nil {
		return nil, apierr.Internal("REGISTRY_READ_FAILED", fmt.Errorf("get document %s: %w", docID, err))
	}
	if strings.TrimSpace(rec.Tenant) == "" {
		l.log.Error("Document record has no tenant", "doc_id", docID)
		return nil, apierr.Internal("DOC_TENANT_MISSING", fmt.Errorf("document %s has no tenant", docID))
	}
	if rec.Tenant != tenant {
		l.log.Warn("Tenant mismatch", "doc_id", docID, "tenant", tenant)
		return nil, apierr.Forbidden("TENANT_MISMATCH", "Document does not belong to this tenant")
	}
	return rec, nil
}

func (l *documentTextLoader) LoadText(ctx context.Context, rec *domain.DocumentRecord) (string, error) {
	raw, err := l.store.Get(ctx, rec.StorageKey)
	if errors.Is(err, blob.ErrNotFound) {
		return "", apierr.NotFound("DOC_CONTENT_NOT_FOUND", fmt.Sprintf("Stored content for document %s not found", rec.DocID))
	}
	if err != nil {
		return "", apierr.Upstream(http.StatusBadGateway, "STORAGE_READ_FAILED", err)
	}
	if !extract.Supported(rec.Filename) {
		l.log.Debug("No dedicated extractor; decoding as UTF-8", "doc_id", rec.DocID, "filename", rec.Filename)
	}
	text, err := extract.Text(rec.Filename, raw)
	if err != nil {
		return "", apierr.Validation("EXTRACT_FAILED", fmt.Sprintf("Could not extract text from %s: %v", rec.Filename, err))
	}
	return text, nil
}

func requireTenant(tenant string) error {
	if strings.TrimSpace(tenant) == "" {
		return apierr.Validation("MISSING_TENANT", "Request must include 'X-Tenant-Id' header")
	}
	return nil
}

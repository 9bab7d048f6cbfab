package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/blob"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/platform/sizefmt"
	"github.com/yungbote/rag-orchestrator/internal/rag/extract"
)

type UploadLimits struct {
	MaxFilesPerRequest int
	MaxFileBytes       int64
	MaxRequestBytes    int64
	DailyMaxFiles      int64
	DailyMaxBytes      int64
}

func DefaultUploadLimits() UploadLimits {
	return UploadLimits{
		MaxFilesPerRequest: 10,
		MaxFileBytes:       sizefmt.MBToBytes(25),
		MaxRequestBytes:    sizefmt.MBToBytes(100),
		DailyMaxFiles:      200,
		DailyMaxBytes:      sizefmt.MBToBytes(1024),
	}
}

type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type UploadedFile struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	StorageKey string `json:"storage_key"`
	Tenant     string `json:"tenant"`
	SizeBytes  int64  `json:"size_bytes"`
}

type LimitsInfo struct {
	MaxFilesPerRequest int     `json:"max_files_per_request"`
	MaxFileMB          float64 `json:"max_file_mb"`
	MaxRequestMB       float64 `json:"max_request_mb"`
	DailyMaxFiles      int64   `json:"daily_max_files"`
	DailyMaxMB         float64 `json:"daily_max_mb"`
}

type QuotaInfo struct {
	Date           string  `json:"date"`
	FilesUsed      int64   `json:"files_used"`
	MBUsed         float64 `json:"mb_used"`
	FilesRemaining int64   `json:"files_remaining"`
	MBRemaining    float64 `json:"mb_remaining"`
}

type UploadResult struct {
	Status        string         `json:"status"`
	Tenant        string         `json:"tenant"`
	UploadedFiles []UploadedFile `json:"uploaded_files"`
	Limits        LimitsInfo     `json:"limits"`
	QuotaAfter    QuotaInfo      `json:"quota_after"`
}

type UploadService interface {
	Upload(ctx context.Context, tenant string, files []UploadFile) (*UploadResult, error)
	Limits() UploadLimits
}

type uploadService struct {
	log     *logger.Logger
	docs    repos.DocumentRepo
	ledger  repos.QuotaLedger
	store   blob.Store
	limits  UploadLimits
	metrics *observability.Metrics
}

func NewUploadService(
	baseLog *logger.Logger,
	docs repos.DocumentRepo,
	ledger repos.QuotaLedger,
	store blob.Store,
	limits UploadLimits,
	metrics *observability.Metrics,
) UploadService {
	return &uploadService{
		log:     baseLog.With("service", "UploadService"),
		docs:    docs,
		ledger:  ledger,
		store:   store,
		limits:  limits,
		metrics: metrics,
	}
}

func (s *uploadService) Limits() UploadLimits { return s.limits }

// Upload validates the whole request, consumes quota once for all files, then
// stores and registers each file under a fresh doc id.
func (s *uploadService) Upload(ctx context.Context, tenant string, files []UploadFile) (*UploadResult, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apierr.Validation("MISSING_FILE", "Upload must include multipart field 'file'")
	}
	if s.limits.MaxFilesPerRequest > 0 && len(files) > s.limits.MaxFilesPerRequest {
		return nil, apierr.Validation("TOO_MANY_FILES", fmt.Sprintf(
			"Upload has %d files; at most %d are allowed per request", len(files), s.limits.MaxFilesPerRequest,
		))
	}

	var total int64
	for _, f := range files {
		if strings.TrimSpace(f.Filename) == "" {
			return nil, apierr.Validation("MISSING_FILENAME", "Uploaded file must have a filename")
		}
		size := int64(len(f.Data))
		if size == 0 {
			return nil, apierr.Validation("EMPTY_FILE", fmt.Sprintf("Uploaded file %s is empty", f.Filename))
		}
		if s.limits.MaxFileBytes > 0 && size > s.limits.MaxFileBytes {
			return nil, apierr.Validation("FILE_TOO_LARGE", fmt.Sprintf(
				"File %s is %.2f MB; the limit is %.2f MB", f.Filename, sizefmt.BytesToMB(size), sizefmt.BytesToMB(s.limits.MaxFileBytes),
			)).WithStatus(http.StatusRequestEntityTooLarge)
		}
		total += size
	}
	if s.limits.MaxRequestBytes > 0 && total > s.limits.MaxRequestBytes {
		return nil, apierr.Validation("REQUEST_TOO_LARGE", fmt.Sprintf(
			"Upload totals %.2f MB; the limit is %.2f MB", sizefmt.BytesToMB(total), sizefmt.BytesToMB(s.limits.MaxRequestBytes),
		)).WithStatus(http.StatusRequestEntityTooLarge)
	}

	decision, err := s.ledger.CheckAndConsume(ctx, tenant, int64(len(files)), total, s.limits.DailyMaxFiles, s.limits.DailyMaxBytes)
	if err != nil {
		return nil, apierr.Upstream(http.StatusServiceUnavailable, "QUOTA_UNAVAILABLE", err)
	}
	s.metrics.ObserveQuota(decision.Allowed, decision.Reason)
	if !decision.Allowed {
		return nil, quotaError(decision)
	}

	uploaded := make([]UploadedFile, 0, len(files))
	for _, f := range files {
		docID := uuid.NewString()
		key := domain.RawStorageKey(tenant, docID, f.Filename)
		contentType := f.ContentType
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = extract.ContentType(f.Filename)
		}
		if err := s.store.Put(ctx, key, f.Data, contentType); err != nil {
			s.log.Error("Object store write failed", "tenant", tenant, "storage_key", key, "error", err)
			return nil, apierr.Upstream(http.StatusBadGateway, "STORAGE_WRITE_FAILED", err)
		}
		rec := &domain.DocumentRecord{
			DocID:       docID,
			Tenant:      tenant,
			Filename:    f.Filename,
			StorageKey:  key,
			ContentType: contentType,
			SizeBytes:   int64(len(f.Data)),
		}
		if err := s.docs.Put(ctx, nil, rec); err != nil {
			return nil, apierr.Internal("REGISTRY_WRITE_FAILED", fmt.Errorf("register document %s: %w", docID, err))
		}
		uploaded = append(uploaded, UploadedFile{
			DocID:      docID,
			Filename:   f.Filename,
			StorageKey: key,
			Tenant:     tenant,
			SizeBytes:  rec.SizeBytes,
		})
	}
	s.metrics.AddUploadedBytes(total)
	s.log.Info("Documents uploaded", "tenant", tenant, "files", len(uploaded), "bytes", total)

	return &UploadResult{
		Status:        "success",
		Tenant:        tenant,
		UploadedFiles: uploaded,
		Limits:        s.limitsInfo(),
		QuotaAfter:    s.quotaInfo(decision),
	}, nil
}

func (s *uploadService) limitsInfo() LimitsInfo {
	return LimitsInfo{
		MaxFilesPerRequest: s.limits.MaxFilesPerRequest,
		MaxFileMB:          sizefmt.BytesToMB(s.limits.MaxFileBytes),
		MaxRequestMB:       sizefmt.BytesToMB(s.limits.MaxRequestBytes),
		DailyMaxFiles:      s.limits.DailyMaxFiles,
		DailyMaxMB:         sizefmt.BytesToMB(s.limits.DailyMaxBytes),
	}
}

func (s *uploadService) quotaInfo(d domain.QuotaDecision) QuotaInfo {
	return QuotaInfo{
		Date:           d.Date,
		FilesUsed:      d.FilesUsed,
		MBUsed:         sizefmt.BytesToMB(d.BytesUsed),
		FilesRemaining: max(s.limits.DailyMaxFiles-d.FilesUsed, 0),
		MBRemaining:    sizefmt.BytesToMB(max(s.limits.DailyMaxBytes-d.BytesUsed, 0)),
	}
}

func quotaError(d domain.QuotaDecision) error {
	var msg string
	switch d.Reason {
	case domain.QuotaReasonBytes:
		msg = fmt.Sprintf("Daily upload quota exceeded: %.2f MB used, %.2f MB attempted, limit %.2f MB",
			sizefmt.BytesToMB(d.Current), sizefmt.BytesToMB(d.Attempted), sizefmt.BytesToMB(d.Limit))
	default:
		msg = fmt.Sprintf("Daily file quota exceeded: %d used, %d attempted, limit %d", d.Current, d.Attempted, d.Limit)
	}
	return apierr.Validation(d.Reason, msg).WithStatus(http.StatusTooManyRequests)
}

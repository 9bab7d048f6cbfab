package documents

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

var ErrNotFound = errors.New("document not found")

type DocumentRepo interface {
	Put(ctx context.Context, tx *gorm.DB, rec *domain.DocumentRecord) error
	Get(ctx context.Context, tx *gorm.DB, docID string) (*domain.DocumentRecord, error)
	ListByTenant(ctx context.Context, tx *gorm.DB, tenant string) ([]*domain.DocumentRecord, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	repoLog := baseLog.With("repo", "DocumentRepo")
	return &documentRepo{db: db, log: repoLog}
}

// Put inserts or replaces the registry entry for rec.DocID.
func (r *documentRepo) Put(ctx context.Context, tx *gorm.DB, rec *domain.DocumentRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if rec == nil || strings.TrimSpace(rec.DocID) == "" {
		return errors.New("document record requires doc_id")
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tenant", "filename", "storage_key", "content_type", "size_bytes", "updated_at"}),
		}).
		Create(rec).Error
}

func (r *documentRepo) Get(ctx context.Context, tx *gorm.DB, docID string) (*domain.DocumentRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rec domain.DocumentRecord
	err := transaction.WithContext(ctx).Where("doc_id = ?", docID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByTenant returns the tenant's documents oldest first.
func (r *documentRepo) ListByTenant(ctx context.Context, tx *gorm.DB, tenant string) ([]*domain.DocumentRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.DocumentRecord
	if err := transaction.WithContext(ctx).
		Where("tenant = ?", tenant).
		Order("created_at ASC, doc_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

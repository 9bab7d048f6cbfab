package metadatafields

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

var (
	ErrNotFound    = errors.New("metadata field not found")
	ErrInvalidKey  = errors.New("field key must be non-empty and contain no whitespace")
	ErrInvalidType = fmt.Errorf("field type must be one of %s", strings.Join(domain.MetadataFieldTypes, ", "))
)

type MetadataFieldRepo interface {
	RegisterField(ctx context.Context, tx *gorm.DB, key, fieldType, description string, indexed bool) (*domain.MetadataField, error)
	ListFields(ctx context.Context, tx *gorm.DB) ([]*domain.MetadataField, error)
	GetField(ctx context.Context, tx *gorm.DB, key string) (*domain.MetadataField, error)
}

type metadataFieldRepo struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewMetadataFieldRepo(db *gorm.DB, baseLog *logger.Logger) MetadataFieldRepo {
	repoLog := baseLog.With("repo", "MetadataFieldRepo")
	return &metadataFieldRepo{db: db, log: repoLog, now: time.Now}
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	return strings.IndexFunc(key, unicode.IsSpace) < 0
}

func validType(t string) bool {
	for _, allowed := range domain.MetadataFieldTypes {
		if t == allowed {
			return true
		}
	}
	return false
}

// RegisterField creates or updates a field definition. An update keeps the original
// created_at, and an empty description keeps the previous one.
func (r *metadataFieldRepo) RegisterField(ctx context.Context, tx *gorm.DB, key, fieldType, description string, indexed bool) (*domain.MetadataField, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	fieldType = strings.ToLower(strings.TrimSpace(fieldType))
	if !validType(fieldType) {
		return nil, ErrInvalidType
	}

	var out *domain.MetadataField
	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		now := r.now().UTC()
		var existing domain.MetadataField
		err := inner.Where("key = ?", key).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			field := &domain.MetadataField{
				Key:         key,
				Type:        fieldType,
				Description: description,
				Indexed:     indexed,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := inner.Create(field).Error; err != nil {
				return err
			}
			out = field
			return nil
		case err != nil:
			return err
		}

		if description == "" {
			description = existing.Description
		}
		if err := inner.Model(&domain.MetadataField{}).
			Where("key = ?", key).
			Updates(map[string]interface{}{
				"type":        fieldType,
				"description": description,
				"indexed":     indexed,
				"updated_at":  now,
			}).Error; err != nil {
			return err
		}
		existing.Type = fieldType
		existing.Description = description
		existing.Indexed = indexed
		existing.UpdatedAt = now
		out = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *metadataFieldRepo) ListFields(ctx context.Context, tx *gorm.DB) ([]*domain.MetadataField, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.MetadataField
	if err := transaction.WithContext(ctx).Order("key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *metadataFieldRepo) GetField(ctx context.Context, tx *gorm.DB, key string) (*domain.MetadataField, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var field domain.MetadataField
	err := transaction.WithContext(ctx).Where("key = ?", key).Take(&field).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &field, nil
}

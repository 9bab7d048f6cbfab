package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/metadatafields"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type RegisterFieldRequest struct {
	Key         string `json:"key"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Indexed     bool   `json:"indexed"`
}

type MetadataService interface {
	RegisterField(ctx context.Context, req RegisterFieldRequest) (*domain.MetadataField, error)
	ListFields(ctx context.Context) ([]*domain.MetadataField, error)
	GetField(ctx context.Context, key string) (*domain.MetadataField, error)
}

type metadataService struct {
	log    *logger.Logger
	fields repos.MetadataFieldRepo
}

func NewMetadataService(baseLog *logger.Logger, fields repos.MetadataFieldRepo) MetadataService {
	return &metadataService{
		log:    baseLog.With("service", "MetadataService"),
		fields: fields,
	}
}

func (s *metadataService) RegisterField(ctx context.Context, req RegisterFieldRequest) (*domain.MetadataField, error) {
	f, err := s.fields.RegisterField(ctx, nil, strings.TrimSpace(req.Key), req.Type, req.Description, req.Indexed)
	switch {
	case errors.Is(err, metadatafields.ErrInvalidKey):
		return nil, apierr.Validation("INVALID_FIELD_KEY", err.Error())
	case errors.Is(err, metadatafields.ErrInvalidType):
		return nil, apierr.Validation("INVALID_FIELD_TYPE", err.Error())
	case err != nil:
		return nil, apierr.Internal("METADATA_WRITE_FAILED", err)
	}
	s.log.Info("Metadata field registered", "key", f.Key, "type", f.Type, "indexed", f.Indexed)
	return f, nil
}

func (s *metadataService) ListFields(ctx context.Context) ([]*domain.MetadataField, error) {
	out, err := s.fields.ListFields(ctx, nil)
	if err != nil {
		return nil, apierr.Internal("METADATA_READ_FAILED", err)
	}
	return out, nil
}

func (s *metadataService) GetField(ctx context.Context, key string) (*domain.MetadataField, error) {
	f, err := s.fields.GetField(ctx, nil, strings.TrimSpace(key))
	if errors.Is(err, metadatafields.ErrNotFound) {
		return nil, apierr.NotFound("FIELD_NOT_FOUND", fmt.Sprintf("Metadata field %s not found", key))
	}
	if err != nil {
		return nil, apierr.Internal("METADATA_READ_FAILED", err)
	}
	return f, nil
}

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

func (s *Service) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}

// AutoMigrateAll creates or updates every table. On postgres it also creates the
// full-text index used by keyword search.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.AllModels()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureChunkSearchIndex(db)
}

// ChunkSearchIndex is the postgres full-text index backing keyword search.
const ChunkSearchIndex = "idx_rag_chunks_text_fts"

// EnsureChunkSearchIndex is a no-op outside postgres.
func EnsureChunkSearchIndex(db *gorm.DB) error {
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS ` + ChunkSearchIndex + `
		ON rag_chunks
		USING GIN (to_tsvector('english', text));
	`).Error; err != nil {
		return fmt.Errorf("create chunk fts index: %w", err)
	}
	return nil
}

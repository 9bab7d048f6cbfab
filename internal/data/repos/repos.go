package repos

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/rag-orchestrator/internal/data/repos/chunks"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/documents"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/metadatafields"
	"github.com/yungbote/rag-orchestrator/internal/data/repos/quota"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type DocumentRepo = documents.DocumentRepo
type ChunkRepo = chunks.ChunkRepo
type MetadataFieldRepo = metadatafields.MetadataFieldRepo
type QuotaLedger = quota.Ledger

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return documents.NewDocumentRepo(db, baseLog)
}
func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return chunks.NewChunkRepo(db, baseLog)
}
func NewMetadataFieldRepo(db *gorm.DB, baseLog *logger.Logger) MetadataFieldRepo {
	return metadatafields.NewMetadataFieldRepo(db, baseLog)
}
func NewSQLQuotaLedger(db *gorm.DB, baseLog *logger.Logger) QuotaLedger {
	return quota.NewSQLLedger(db, baseLog)
}
func NewRedisQuotaLedger(rdb redis.Scripter, baseLog *logger.Logger, keyPrefix string) QuotaLedger {
	return quota.NewRedisLedger(rdb, baseLog, keyPrefix)
}

package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type Repos struct {
	Documents      repos.DocumentRepo
	MetadataFields repos.MetadataFieldRepo
	Quota          repos.QuotaLedger
}

func wireRepos(db *gorm.DB, rdb *goredis.Client, log *logger.Logger, cfg Config) (Repos, error) {
	log.Info("Wiring repos...", "quota_backend", cfg.QuotaBackend)
	var ledger repos.QuotaLedger
	switch cfg.QuotaBackend {
	case QuotaBackendRedis:
		if rdb == nil {
			return Repos{}, fmt.Errorf("quota backend %q requires a redis client", cfg.QuotaBackend)
		}
		ledger = repos.NewRedisQuotaLedger(rdb, log, cfg.QuotaKeyPrefix)
	case QuotaBackendSQL:
		ledger = repos.NewSQLQuotaLedger(db, log)
	default:
		return Repos{}, fmt.Errorf("unknown quota backend %q", cfg.QuotaBackend)
	}
	return Repos{
		Documents:      repos.NewDocumentRepo(db, log),
		MetadataFields: repos.NewMetadataFieldRepo(db, log),
		Quota:          ledger,
	}, nil
}

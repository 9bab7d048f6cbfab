package quota

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/rag-orchestrator/internal/data/db"
	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type sqlLedger struct {
	db    *gorm.DB
	log   *logger.Logger
	now   clock
	locks sync.Map
}

func NewSQLLedger(db *gorm.DB, baseLog *logger.Logger) Ledger {
	return newSQLLedger(db, baseLog, utcNow)
}

func newSQLLedger(db *gorm.DB, baseLog *logger.Logger, now clock) *sqlLedger {
	return &sqlLedger{db: db, log: baseLog.With("repo", "QuotaLedger", "backend", BackendSQL), now: now}
}

func (l *sqlLedger) tenantLock(tenant string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(tenant, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// CheckAndConsume serializes callers for the same tenant in-process and, on postgres,
// holds a row lock for the read-modify-write so other replicas queue behind it.
func (l *sqlLedger) CheckAndConsume(ctx context.Context, tenant string, addFiles, addBytes, maxFiles, maxBytes int64) (domain.QuotaDecision, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return domain.QuotaDecision{}, errors.New("quota: tenant required")
	}
	mu := l.tenantLock(tenant)
	mu.Lock()
	defer mu.Unlock()

	now := l.now()
	today := domain.QuotaDate(now)

	var decision domain.QuotaDecision
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// make sure a row exists so FOR UPDATE has something to lock
		seed := domain.QuotaLedgerEntry{Tenant: tenant, Date: today, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		q := tx
		if tx.Dialector.Name() == db.DriverPostgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var entry domain.QuotaLedgerEntry
		if err := q.Where("tenant = ?", tenant).Take(&entry).Error; err != nil {
			return err
		}
		if entry.Date != today {
			entry.Date = today
			entry.FilesUsed = 0
			entry.BytesUsed = 0
		}

		decision = domain.EvaluateQuota(entry, addFiles, addBytes, maxFiles, maxBytes)
		if !decision.Allowed {
			return nil
		}
		return tx.Model(&domain.QuotaLedgerEntry{}).
			Where("tenant = ?", tenant).
			Updates(map[string]interface{}{
				"date":       today,
				"files_used": decision.FilesUsed,
				"bytes_used": decision.BytesUsed,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	if !decision.Allowed {
		l.log.Info("Quota denied", "tenant", tenant, "reason", decision.Reason, "limit", decision.Limit, "current", decision.Current, "attempted", decision.Attempted)
	}
	return decision, nil
}

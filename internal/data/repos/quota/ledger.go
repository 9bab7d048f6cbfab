// Package quota tracks per-tenant daily upload usage and enforces limits with an
// atomic check-and-consume.
package quota

import (
	"context"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

// Ledger admits or denies an upload against the tenant's allowance for the current
// UTC day. Denials never mutate the stored counters.
type Ledger interface {
	CheckAndConsume(ctx context.Context, tenant string, addFiles, addBytes, maxFiles, maxBytes int64) (domain.QuotaDecision, error)
}

type clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

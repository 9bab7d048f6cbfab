package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

// Counters are kept for two days so a key never outlives the rollover check.
const redisLedgerTTL = 48 * time.Hour

// KEYS[1] ledger hash
// ARGV today, add_files, add_bytes, max_files, max_bytes, ttl_seconds
var checkAndConsumeScript = redis.NewScript(`
local key = KEYS[1]
local today = ARGV[1]
local add_files = tonumber(ARGV[2])
local add_bytes = tonumber(ARGV[3])
local max_files = tonumber(ARGV[4])
local max_bytes = tonumber(ARGV[5])
local ttl = tonumber(ARGV[6])

local files = 0
local bytes = 0
if redis.call('HGET', key, 'date') == today then
  files = tonumber(redis.call('HGET', key, 'files_used') or '0')
  bytes = tonumber(redis.call('HGET', key, 'bytes_used') or '0')
end

if files + add_files > max_files then
  return {0, 'FILE_QUOTA_EXCEEDED', max_files, files, add_files, files, bytes}
end
if bytes + add_bytes > max_bytes then
  return {0, 'BYTE_QUOTA_EXCEEDED', max_bytes, bytes, add_bytes, files, bytes}
end

files = files + add_files
bytes = bytes + add_bytes
redis.call('HSET', key, 'date', today, 'files_used', files, 'bytes_used', bytes)
redis.call('EXPIRE', key, ttl)
return {1, today, files, bytes}
`)

type redisLedger struct {
	rdb    redis.Scripter
	log    *logger.Logger
	prefix string
	now    clock
}

func NewRedisLedger(rdb redis.Scripter, baseLog *logger.Logger, keyPrefix string) Ledger {
	return newRedisLedger(rdb, baseLog, keyPrefix, utcNow)
}

func newRedisLedger(rdb redis.Scripter, baseLog *logger.Logger, keyPrefix string, now clock) *redisLedger {
	keyPrefix = strings.TrimSpace(keyPrefix)
	if keyPrefix == "" {
		keyPrefix = "rag:quota"
	}
	return &redisLedger{
		rdb:    rdb,
		log:    baseLog.With("repo", "QuotaLedger", "backend", BackendRedis),
		prefix: keyPrefix,
		now:    now,
	}
}

func (l *redisLedger) key(tenant string) string {
	return l.prefix + ":" + tenant
}

func (l *redisLedger) CheckAndConsume(ctx context.Context, tenant string, addFiles, addBytes, maxFiles, maxBytes int64) (domain.QuotaDecision, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return domain.QuotaDecision{}, errors.New("quota: tenant required")
	}
	today := domain.QuotaDate(l.now())
	raw, err := checkAndConsumeScript.Run(ctx, l.rdb, []string{l.key(tenant)},
		today, addFiles, addBytes, maxFiles, maxBytes, int64(redisLedgerTTL/time.Second),
	).Slice()
	if err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("quota script: %w", err)
	}
	decision, err := decodeScriptResult(raw, today)
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	if !decision.Allowed {
		l.log.Info("Quota denied", "tenant", tenant, "reason", decision.Reason, "limit", decision.Limit, "current", decision.Current, "attempted", decision.Attempted)
	}
	return decision, nil
}

func decodeScriptResult(raw []interface{}, today string) (domain.QuotaDecision, error) {
	if len(raw) == 0 {
		return domain.QuotaDecision{}, errors.New("quota script: empty reply")
	}
	ok, err := replyInt(raw[0])
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	if ok == 1 {
		if len(raw) != 4 {
			return domain.QuotaDecision{}, fmt.Errorf("quota script: unexpected reply length %d", len(raw))
		}
		files, err := replyInt(raw[2])
		if err != nil {
			return domain.QuotaDecision{}, err
		}
		bytes, err := replyInt(raw[3])
		if err != nil {
			return domain.QuotaDecision{}, err
		}
		return domain.QuotaDecision{Allowed: true, Date: today, FilesUsed: files, BytesUsed: bytes}, nil
	}

	if len(raw) != 7 {
		return domain.QuotaDecision{}, fmt.Errorf("quota script: unexpected reply length %d", len(raw))
	}
	reason, _ := raw[1].(string)
	nums := make([]int64, 0, 5)
	for _, v := range raw[2:] {
		n, err := replyInt(v)
		if err != nil {
			return domain.QuotaDecision{}, err
		}
		nums = append(nums, n)
	}
	return domain.QuotaDecision{
		Allowed:   false,
		Reason:    reason,
		Limit:     nums[0],
		Current:   nums[1],
		Attempted: nums[2],
		Date:      today,
		FilesUsed: nums[3],
		BytesUsed: nums[4],
	}, nil
}

func replyInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("quota script: unexpected value %T", v)
	}
}

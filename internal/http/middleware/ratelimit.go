package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

// TenantRateLimiter keeps one token bucket per tenant (or client IP when the request
// carries no tenant).
type TenantRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	log      *logger.Logger
}

func NewTenantRateLimiter(log *logger.Logger, perSecond float64, burst int) *TenantRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &TenantRateLimiter{
		limiters: map[string]*rate.Limiter{},
		limit:    rate.Limit(perSecond),
		burst:    burst,
		log:      log.With("middleware", "TenantRateLimiter"),
	}
}

func (l *TenantRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

func (l *TenantRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ctxutil.Tenant(c.Request.Context())
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		r := l.limiter(key).Reserve()
		if !r.OK() {
			l.reject(c, 0)
			return
		}
		if d := r.Delay(); d > 0 {
			r.Cancel()
			l.reject(c, d)
			return
		}
		c.Next()
	}
}

func (l *TenantRateLimiter) reject(c *gin.Context, retryAfter time.Duration) {
	if retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	err := apierr.Validation("RATE_LIMITED", "Too many requests, retry later").WithStatus(http.StatusTooManyRequests)
	response.RespondError(c, l.log, err)
}

package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

// Recover turns a handler panic into the UNHANDLED envelope.
func Recover(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if log != nil {
				log.Error("Handler panic",
					"request_id", ctxutil.RequestID(c.Request.Context()),
					"path", c.Request.URL.Path,
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()),
				)
			}
			response.RespondError(c, nil, fmt.Errorf("panic: %v", rec))
		}()
		c.Next()
	}
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
)

const HeaderTenantID = "X-Tenant-Id"

// ResolveTenant binds the X-Tenant-Id header to the request context. Missing tenants
// are rejected by the services so every endpoint reports MISSING_TENANT the same way.
func ResolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := strings.TrimSpace(c.GetHeader(HeaderTenantID))
		if tenant != "" {
			c.Request = c.Request.WithContext(ctxutil.WithTenant(c.Request.Context(), tenant))
		}
		c.Next()
	}
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

// TenantClaims is the token payload accepted by TenantToken.
type TenantClaims struct {
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// TenantToken requires an HS256 bearer token whose "tenant" claim becomes the request
// tenant. A X-Tenant-Id header naming a different tenant is rejected.
func TenantToken(log *logger.Logger, secret []byte) gin.HandlerFunc {
	log = log.With("middleware", "TenantToken")
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.RespondError(c, log, apierr.New(http.StatusUnauthorized, "UNAUTHORIZED", errors.New("missing bearer token")))
			return
		}
		claims := &TenantClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
			e := apierr.New(http.StatusUnauthorized, "INVALID_TOKEN", err)
			e.Message = "invalid or expired token"
			response.RespondError(c, log, e)
			return
		}
		tenant := strings.TrimSpace(claims.Tenant)
		if tenant == "" {
			response.RespondError(c, log, apierr.New(http.StatusUnauthorized, "INVALID_TOKEN", errors.New("token has no tenant claim")))
			return
		}
		if h := ctxutil.Tenant(c.Request.Context()); h != "" && h != tenant {
			response.RespondError(c, log, apierr.Forbidden("TENANT_MISMATCH", "X-Tenant-Id does not match the token tenant"))
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithTenant(c.Request.Context(), tenant))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

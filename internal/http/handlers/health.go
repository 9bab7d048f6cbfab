package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

type HealthHandler struct {
	log   *logger.Logger
	index services.IndexService
}

func NewHealthHandler(log *logger.Logger, index services.IndexService) *HealthHandler {
	return &HealthHandler{log: log.With("handler", "HealthHandler"), index: index}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, services.HealthResult{Status: "ok"})
}

// GET /health/es
func (h *HealthHandler) SearchBackend(c *gin.Context) {
	res, err := h.index.PingIndex(c.Request.Context())
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /health/index
func (h *HealthHandler) Index(c *gin.Context) {
	res, err := h.index.CheckIndex(c.Request.Context())
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

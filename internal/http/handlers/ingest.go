package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

type IngestHandler struct {
	log       *logger.Logger
	ingestion services.IngestionService
}

func NewIngestHandler(log *logger.Logger, ingestion services.IngestionService) *IngestHandler {
	return &IngestHandler{log: log.With("handler", "IngestHandler"), ingestion: ingestion}
}

// POST /v1/ingest/:doc_id
func (h *IngestHandler) IngestDocument(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.ingestion.IngestDocument(ctx, ctxutil.Tenant(ctx), c.Param("doc_id"))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, res)
}

// POST /v1/ingest/
func (h *IngestHandler) IngestAll(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.ingestion.IngestAllForTenant(ctx, ctxutil.Tenant(ctx))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	status := http.StatusOK
	if res.Status == services.StatusSuccess {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

type ChunkHandler struct {
	log   *logger.Logger
	index services.IndexService
}

func NewChunkHandler(log *logger.Logger, index services.IndexService) *ChunkHandler {
	return &ChunkHandler{log: log.With("handler", "ChunkHandler"), index: index}
}

// GET /v1/chunks/:id
func (h *ChunkHandler) GetChunk(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.index.GetChunk(ctx, ctxutil.Tenant(ctx), c.Param("id"))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /v1/seed/chunk
func (h *ChunkHandler) Seed(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.index.SeedChunk(ctx, ctxutil.Tenant(ctx))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

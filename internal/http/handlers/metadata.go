package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

type MetadataHandler struct {
	log      *logger.Logger
	metadata services.MetadataService
}

func NewMetadataHandler(log *logger.Logger, metadata services.MetadataService) *MetadataHandler {
	return &MetadataHandler{log: log.With("handler", "MetadataHandler"), metadata: metadata}
}

func (h *MetadataHandler) ListFields(c *gin.Context) {
	fields, err := h.metadata.ListFields(c.Request.Context())
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"status": services.StatusSuccess, "fields": fields})
}

func (h *MetadataHandler) GetField(c *gin.Context) {
	f, err := h.metadata.GetField(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"status": services.StatusSuccess, "field": f})
}

func (h *MetadataHandler) RegisterField(c *gin.Context) {
	var req services.RegisterFieldRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	f, err := h.metadata.RegisterField(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"status": services.StatusSuccess, "field": f})
}

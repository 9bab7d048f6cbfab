package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

type RAGHandler struct {
	log *logger.Logger
	rag services.RAGService
}

func NewRAGHandler(log *logger.Logger, rag services.RAGService) *RAGHandler {
	return &RAGHandler{log: log.With("handler", "RAGHandler"), rag: rag}
}

// POST /v1/rag/query
func (h *RAGHandler) Query(c *gin.Context) {
	serve(c, h.log, h.rag.Query)
}

// POST /v1/rag/query_doc
func (h *RAGHandler) QueryDocument(c *gin.Context) {
	serve(c, h.log, h.rag.QueryDocument)
}

// POST /v1/rag/summary
func (h *RAGHandler) Summary(c *gin.Context) {
	serve(c, h.log, h.rag.Summarize)
}

// POST /v1/retrieve
func (h *RAGHandler) Retrieve(c *gin.Context) {
	serve(c, h.log, h.rag.Retrieve)
}

// POST /v1/retrieve_debug/bm25
func (h *RAGHandler) RetrieveBM25(c *gin.Context) {
	serve(c, h.log, h.rag.RetrieveKeyword)
}

// POST /v1/retrieve_debug/vector
func (h *RAGHandler) RetrieveVector(c *gin.Context) {
	serve(c, h.log, h.rag.RetrieveVector)
}

func serve[T any](c *gin.Context, log *logger.Logger, fn func(context.Context, services.QueryRequest) (T, error)) {
	req, err := bindQuery(c)
	if err != nil {
		response.RespondError(c, log, err)
		return
	}
	res, err := fn(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, log, err)
		return
	}
	response.RespondOK(c, res)
}

package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

type queryBody struct {
	Query string `json:"query"`
	DocID string `json:"doc_id"`
	TopK  int    `json:"top_k"`
}

// bindJSON decodes the request body into dst. An empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return apierr.Validation("INVALID_JSON", "Request body must be a valid JSON object")
	}
	return nil
}

func bindQuery(c *gin.Context) (services.QueryRequest, error) {
	var body queryBody
	if err := bindJSON(c, &body); err != nil {
		return services.QueryRequest{}, err
	}
	return services.QueryRequest{
		Tenant: ctxutil.Tenant(c.Request.Context()),
		Query:  body.Query,
		DocID:  body.DocID,
		TopK:   body.TopK,
	}, nil
}

package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

const (
	CodeUnhandled    = "UNHANDLED"
	MessageUnhandled = "An unexpected error occurred."
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorEnvelope struct {
	RequestID string   `json:"request_id"`
	Error     APIError `json:"error"`
}

// RespondError writes the error envelope. Typed errors keep their status, code and
// public message; anything else is logged and reported as UNHANDLED.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	reqID := ctxutil.RequestID(c.Request.Context())
	e, ok := apierr.As(err)
	if !ok {
		if log != nil {
			log.Error("Unhandled error",
				"request_id", reqID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"tenant", ctxutil.Tenant(c.Request.Context()),
				"error", err,
			)
		}
		abort(c, http.StatusInternalServerError, reqID, CodeUnhandled, MessageUnhandled)
		return
	}

	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	msg := publicMessage(e)
	if log != nil {
		fields := []interface{}{
			"request_id", reqID,
			"path", c.Request.URL.Path,
			"status", status,
			"error_code", e.Code,
		}
		if e.Err != nil {
			fields = append(fields, "error", e.Err)
		}
		if status >= 500 {
			log.Error("Request failed", fields...)
		} else {
			log.Warn("Request rejected", fields...)
		}
	}
	abort(c, status, reqID, e.Code, msg)
}

// publicMessage never includes the wrapped cause of internal or upstream errors.
func publicMessage(e *apierr.Error) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Kind == apierr.KindInternal || e.Kind == apierr.KindUpstream:
		return MessageUnhandled
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Code
	}
}

func abort(c *gin.Context, status int, reqID, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		RequestID: reqID,
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

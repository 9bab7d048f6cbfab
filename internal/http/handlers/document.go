package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

// Slack for multipart boundaries and part headers on top of the payload limit.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	log    *logger.Logger
	upload services.UploadService
}

func NewDocumentHandler(log *logger.Logger, upload services.UploadService) *DocumentHandler {
	return &DocumentHandler{log: log.With("handler", "DocumentHandler"), upload: upload}
}

// POST /v1/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	// A non-positive request limit means uncapped, matching the service checks.
	if limits := h.upload.Limits(); limits.MaxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limits.MaxRequestBytes+multipartOverhead)
	}

	files, err := readUploadFiles(c)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	res, err := h.upload.Upload(c.Request.Context(), ctxutil.Tenant(c.Request.Context()), files)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, res)
}

// readUploadFiles collects the "file" and "files" multipart fields. A request that is
// not multipart yields no files so the service reports MISSING_FILE.
func readUploadFiles(c *gin.Context) ([]services.UploadFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			msg := fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)
			return nil, apierr.Validation("REQUEST_TOO_LARGE", msg).WithStatus(http.StatusRequestEntityTooLarge)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return nil, nil
		default:
			return nil, apierr.Validation("INVALID_MULTIPART", "Request body is not a valid multipart form")
		}
	}
	defer func() { _ = form.RemoveAll() }()

	headers := make([]*multipart.FileHeader, 0, len(form.File["file"])+len(form.File["files"]))
	headers = append(headers, form.File["file"]...)
	headers = append(headers, form.File["files"]...)

	out := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, apierr.Validation("INVALID_MULTIPART", fmt.Sprintf("Cannot read uploaded file %q", fh.Filename))
		}
		out = append(out, services.UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return out, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

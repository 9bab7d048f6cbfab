package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/rag-orchestrator/internal/domain"
	"github.com/yungbote/rag-orchestrator/internal/platform/ctxutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

const (
	maxErrorBodyBytes = 1024
	maxResponseBytes  = 8 << 20
)

var pointIDNamespaceUUID = uuid.MustParse("6b1d0a52-7a0e-4c37-9a43-3f0f7f6c2a91")

// ChunkStore keeps chunk vectors in a Qdrant collection. Every point carries the
// chunk payload so searches never need a second lookup.
type ChunkStore struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload json.RawMessage `json:"payload"`
}

type pointPayload struct {
	domain.ChunkPayload
	ChunkKey string `json:"chunk_key"`
}

func NewChunkStore(log *logger.Logger, cfg Config) (*ChunkStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &ChunkStore{
		log:     log.With("service", "QdrantChunkStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	log.Info(
		"Qdrant chunk store selected",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func (s *ChunkStore) Collection() string { return s.cfg.Collection }

// Ping checks the server readiness endpoint.
func (s *ChunkStore) Ping(ctx context.Context) error {
	const op = "ping"
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", resp.StatusCode),
		}
	}
	return nil
}

type collectionInfo struct {
	Config struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

func (s *ChunkStore) describe(ctx context.Context, op string) (*collectionInfo, bool, error) {
	var info collectionInfo
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &info)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &info, true, nil
}

func (s *ChunkStore) CollectionExists(ctx context.Context) (bool, error) {
	_, ok, err := s.describe(ctx, "collection_exists")
	return ok, err
}

// EnsureCollection creates the cosine collection and its tenant/doc payload indexes
// when missing, and fails when an existing collection has a different vector size.
func (s *ChunkStore) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"
	info, ok, err := s.describe(ctx, op)
	if err != nil {
		return err
	}
	if ok {
		size := info.Config.Params.Vectors.Size
		if size != 0 && size != s.cfg.VectorDim {
			return &OperationError{
				Code:      OperationErrorValidation,
				Operation: op,
				Message: fmt.Sprintf(
					"qdrant collection %q vector size mismatch: expected=%d actual=%d",
					s.cfg.Collection,
					s.cfg.VectorDim,
					size,
				),
			}
		}
		return nil
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     s.cfg.VectorDim,
			"distance": "Cosine",
		},
	}
	if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), create, nil); err != nil {
		return err
	}
	for _, field := range []string{"tenant", "doc_id"} {
		idx := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/index?wait=true"), idx, nil); err != nil {
			return err
		}
	}
	s.log.Info("Qdrant collection created", "collection", s.cfg.Collection, "vector_dim", s.cfg.VectorDim)
	return nil
}

// UpsertChunk writes the chunk under a point id derived from its chunk key, so a
// re-ingest overwrites instead of duplicating.
func (s *ChunkStore) UpsertChunk(ctx context.Context, c domain.Chunk) error {
	const op = "upsert"
	key := c.Key()
	if strings.TrimSpace(c.Tenant) == "" || strings.TrimSpace(c.DocID) == "" || strings.TrimSpace(c.ChunkID) == "" {
		return opErr(op, OperationErrorValidation, "tenant, doc_id and chunk_id are required", nil)
	}
	if len(c.Embedding) != s.cfg.VectorDim {
		return opErr(op, OperationErrorValidation, fmt.Sprintf(
			"chunk %q dimension mismatch: expected=%d got=%d", key, s.cfg.VectorDim, len(c.Embedding),
		), nil)
	}
	point := map[string]any{
		"id":      PointID(key),
		"vector":  c.Embedding,
		"payload": pointPayload{ChunkPayload: c.ChunkPayload, ChunkKey: key},
	}
	req := map[string]any{"points": []any{point}}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

// Search returns up to topK chunks of the tenant nearest to qvec. Qdrant reports
// cosine similarity; hits are shifted by +1 so scores fall in [0, 2].
func (s *ChunkStore) Search(ctx context.Context, tenant string, qvec []float32, topK int, docID string) ([]domain.RetrievalHit, error) {
	const op = "search"
	if strings.TrimSpace(tenant) == "" {
		return nil, opErr(op, OperationErrorValidation, "tenant filter required", nil)
	}
	if len(qvec) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation, fmt.Sprintf(
			"query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(qvec),
		), nil)
	}
	if topK <= 0 {
		return []domain.RetrievalHit{}, nil
	}

	req := map[string]any{
		"vector":       qvec,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
		"filter":       chunkFilter(tenant, docID),
	}
	var raw []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.RetrievalHit, 0, len(raw))
	for _, item := range raw {
		var p pointPayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, "decode point payload failed", err)
		}
		// the filter already enforces this; a mismatch means a corrupt point
		if p.Tenant != tenant {
			s.log.Warn("Qdrant returned point for another tenant", "tenant", tenant, "point_tenant", p.Tenant)
			continue
		}
		id := p.ChunkKey
		if id == "" {
			id = p.Key()
		}
		out = append(out, domain.RetrievalHit{ID: id, Score: item.Score + 1.0, Payload: p.ChunkPayload})
	}
	return out, nil
}

// PointID maps a chunk key to the UUID Qdrant requires for point ids.
func PointID(chunkKey string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(chunkKey)).String()
}

func chunkFilter(tenant, docID string) map[string]any {
	must := []any{matchCondition("tenant", tenant)}
	if strings.TrimSpace(docID) != "" {
		must = append(must, matchCondition("doc_id", docID))
	}
	return map[string]any{"must": must}
}

func matchCondition(key, value string) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func (s *ChunkStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	return withCollection(s.call(ctx, op, method, path, in, out), s.cfg.Collection)
}

func (s *ChunkStore) call(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	s.log.Debug("Qdrant call", "op", op, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil {
		if strings.TrimSpace(statusObject.Error) != "" {
			return strings.TrimSpace(statusObject.Error)
		}
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func (s *ChunkStore) collectionPath(suffix string) string {
	path := "/collections/" + s.cfg.Collection
	if strings.TrimSpace(suffix) == "" {
		return path
	}
	return path + suffix
}

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

func TestEmbedReordersByIndex(t *testing.T) {
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/embeddings" {
			t.Fatalf("path: want=/v1/embeddings got=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("auth header: got=%q", got)
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "embed-x" {
			t.Fatalf("model: want=embed-x got=%s", req.Model)
		}
		if req.Input[1] != " " {
			t.Fatalf("blank input should be replaced by a space: %q", req.Input[1])
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0, 1}},
				{"index": 0, "embedding": []float64{1, 0}},
			},
		}), nil
	})

	out, err := c.Embed(context.Background(), "embed-x", []string{"hello", "   "})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if out[0][0] != 1 || out[1][1] != 1 {
		t.Fatalf("order: got=%v", out)
	}
}

func TestGenerateTextExtractsOutput(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.MaxOutputTokens != 500 || req.Temperature == nil || *req.Temperature != 0.2 {
			t.Fatalf("generation options: got=%+v", req)
		}
		if len(req.Input) != 1 || req.Input[0].Role != "user" {
			t.Fatalf("input: got=%+v", req.Input)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"output": []map[string]any{
				{"type": "reasoning"},
				{"type": "message", "role": "assistant", "content": []map[string]any{
					{"type": "output_text", "text": "Thirty days [1]."},
				}},
			},
		}), nil
	})
	text, err := c.GenerateText(context.Background(), "", "prompt")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "Thirty days [1]." {
		t.Fatalf("text: got=%q", text)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestUpstreamErrorIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(t, http.StatusServiceUnavailable, map[string]any{"error": "overloaded"}), nil
	})
	_, err := c.GenerateText(context.Background(), "", "prompt")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("error: want HTTPError 503 got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(Config{BaseURL: "https://api.openai.com", MaxOutputTokens: 1}); err == nil {
		t.Fatalf("missing key should fail")
	}
	if err := ValidateConfig(Config{APIKey: "k", BaseURL: "not a url", MaxOutputTokens: 1}); err == nil {
		t.Fatalf("bad url should fail")
	}
	if err := ValidateConfig(Config{APIKey: "k", BaseURL: "http://localhost:11434", MaxOutputTokens: 1}); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}

func newTestClient(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *Client {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	c, err := NewClient(log, Config{
		APIKey:          "test-key",
		BaseURL:         "http://openai.local",
		Model:           "gen-x",
		EmbedModel:      "embed-default",
		MaxOutputTokens: 500,
		Temperature:     0.2,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.http = &http.Client{Transport: roundTripFunc(roundTrip)}
	return c
}

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

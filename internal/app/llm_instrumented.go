package app

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/openai"
)

// llmClient is the subset of openai.Client used for embeddings and generation.
type llmClient interface {
	Model() string
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type instrumentedLLM struct {
	inner   llmClient
	metrics *observability.Metrics
}

func instrumentLLM(inner llmClient, metrics *observability.Metrics) llmClient {
	if inner == nil || metrics == nil {
		return inner
	}
	return &instrumentedLLM{inner: inner, metrics: metrics}
}

func (l *instrumentedLLM) Model() string { return l.inner.Model() }

func (l *instrumentedLLM) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	start := time.Now()
	out, err := l.inner.Embed(ctx, model, inputs)
	l.metrics.ObserveLLMRequest(model, "embeddings", llmStatus(err), time.Since(start))
	return out, err
}

func (l *instrumentedLLM) GenerateText(ctx context.Context, system string, user string) (string, error) {
	start := time.Now()
	out, err := l.inner.GenerateText(ctx, system, user)
	l.metrics.ObserveLLMRequest(l.inner.Model(), "responses", llmStatus(err), time.Since(start))
	return out, err
}

func llmStatus(err error) string {
	if err == nil {
		return "200"
	}
	var httpErr *openai.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return strconv.Itoa(httpErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

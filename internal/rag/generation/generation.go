// Package generation wraps the text generator with latency measurement and typed upstream errors.
package generation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/platform/openai"
)

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type Result struct {
	Text    string
	Latency time.Duration
}

type Service struct {
	log *logger.Logger
	gen TextGenerator
	now func() time.Time
}

func NewService(log *logger.Logger, gen TextGenerator) *Service {
	return &Service{
		log: log.With("service", "GenerationService"),
		gen: gen,
		now: time.Now,
	}
}

// Generate runs one completion. Failures are returned as Upstream errors and never retried.
func (s *Service) Generate(ctx context.Context, prompt string) (Result, error) {
	start := s.now()
	text, err := s.gen.GenerateText(ctx, "", prompt)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.log.Warn("Generation failed", "latency_ms", elapsed.Milliseconds(), "error", err)
		return Result{Latency: elapsed}, upstreamError(err)
	}
	return Result{Text: text, Latency: elapsed}, nil
}

func upstreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Upstream(http.StatusGatewayTimeout, "GENERATION_TIMEOUT", err)
	}
	var httpErr *openai.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusServiceUnavailable {
		return apierr.Upstream(http.StatusServiceUnavailable, "GENERATION_UNAVAILABLE", err)
	}
	return apierr.Upstream(http.StatusBadGateway, "GENERATION_FAILED", err)
}

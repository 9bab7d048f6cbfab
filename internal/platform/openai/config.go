package openai

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/rag-orchestrator/internal/platform/envutil"
)

type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	EmbedModel      string
	MaxOutputTokens int
	Temperature     float64
	Timeout         time.Duration
}

func ResolveConfigFromEnv() Config {
	return Config{
		APIKey:          envutil.String("OPENAI_API_KEY", ""),
		BaseURL:         envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:           envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		EmbedModel:      envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		MaxOutputTokens: envutil.Int("OPENAI_MAX_OUTPUT_TOKENS", 500),
		Temperature:     envutil.Float("OPENAI_TEMPERATURE", 0.2),
		Timeout:         envutil.Duration("OPENAI_TIMEOUT_SECONDS", 60*time.Second),
	}
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("missing OPENAI_API_KEY")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid OPENAI_BASE_URL=%q; expected absolute URL", cfg.BaseURL)
	}
	if cfg.MaxOutputTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_OUTPUT_TOKENS must be positive")
	}
	return nil
}

package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http"
	httpH "github.com/yungbote/rag-orchestrator/internal/http/handlers"
	httpMW "github.com/yungbote/rag-orchestrator/internal/http/middleware"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Document *httpH.DocumentHandler
	Ingest   *httpH.IngestHandler
	RAG      *httpH.RAGHandler
	Chunk    *httpH.ChunkHandler
	Metadata *httpH.MetadataHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(log, services.IndexOps),
		Document: httpH.NewDocumentHandler(log, services.Upload),
		Ingest:   httpH.NewIngestHandler(log, services.Ingestion),
		RAG:      httpH.NewRAGHandler(log, services.RAG),
		Chunk:    httpH.NewChunkHandler(log, services.IndexOps),
		Metadata: httpH.NewMetadataHandler(log, services.Metadata),
	}
}

// wireRateLimiter returns nil when RATE_LIMIT_RPS is unset.
func wireRateLimiter(log *logger.Logger, cfg RateLimitConfig) *httpMW.TenantRateLimiter {
	if cfg.PerSecond <= 0 {
		return nil
	}
	log.Info("Per-tenant rate limiting enabled", "rps", cfg.PerSecond, "burst", cfg.Burst)
	return httpMW.NewTenantRateLimiter(log, cfg.PerSecond, cfg.Burst)
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		Metrics:         metrics,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		JWTSecret:       cfg.JWTSecret,
		RateLimiter:     wireRateLimiter(log, cfg.RateLimit),
		HealthHandler:   handlers.Health,
		DocumentHandler: handlers.Document,
		IngestHandler:   handlers.Ingest,
		RAGHandler:      handlers.RAG,
		ChunkHandler:    handlers.Chunk,
		MetadataHandler: handlers.Metadata,
	})
}

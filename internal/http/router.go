package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/rag-orchestrator/internal/http/handlers"
	httpMW "github.com/yungbote/rag-orchestrator/internal/http/middleware"
	"github.com/yungbote/rag-orchestrator/internal/http/response"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/apierr"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	Metrics     *observability.Metrics
	CORSOrigins []string
	// JWTSecret enables bearer-token tenant binding on /v1 when non-empty.
	JWTSecret   string
	RateLimiter *httpMW.TenantRateLimiter

	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	IngestHandler   *httpH.IngestHandler
	RAGHandler      *httpH.RAGHandler
	ChunkHandler    *httpH.ChunkHandler
	MetadataHandler *httpH.MetadataHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "rag-orchestrator"
	}

	r := gin.New()
	r.Use(httpMW.Recover(log))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.ResolveTenant())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.Health)
		r.GET("/health/es", cfg.HealthHandler.SearchBackend)
		r.GET("/health/index", cfg.HealthHandler.Index)
	}

	v1 := r.Group("/v1")
	if cfg.JWTSecret != "" {
		v1.Use(httpMW.TenantToken(log, []byte(cfg.JWTSecret)))
	}
	if cfg.RateLimiter != nil {
		v1.Use(cfg.RateLimiter.Middleware())
	}
	{
		if cfg.DocumentHandler != nil {
			v1.POST("/documents", cfg.DocumentHandler.Upload)
		}

		if cfg.IngestHandler != nil {
			v1.POST("/ingest", cfg.IngestHandler.IngestAll)
			v1.POST("/ingest/", cfg.IngestHandler.IngestAll)
			v1.POST("/ingest/:doc_id", cfg.IngestHandler.IngestDocument)
		}

		if cfg.RAGHandler != nil {
			v1.POST("/rag/query", cfg.RAGHandler.Query)
			v1.POST("/rag/query_doc", cfg.RAGHandler.QueryDocument)
			v1.POST("/rag/summary", cfg.RAGHandler.Summary)
			v1.POST("/retrieve", cfg.RAGHandler.Retrieve)
			v1.POST("/retrieve_debug/bm25", cfg.RAGHandler.RetrieveBM25)
			v1.POST("/retrieve_debug/vector", cfg.RAGHandler.RetrieveVector)
		}

		// Chunk debug + seed
		if cfg.ChunkHandler != nil {
			v1.GET("/chunks/:id", cfg.ChunkHandler.GetChunk)
			v1.POST("/seed/chunk", cfg.ChunkHandler.Seed)
		}

		if cfg.MetadataHandler != nil {
			v1.GET("/metadata/fields", cfg.MetadataHandler.ListFields)
			v1.POST("/metadata/fields", cfg.MetadataHandler.RegisterField)
			v1.GET("/metadata/fields/:key", cfg.MetadataHandler.GetField)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.RespondError(c, nil, apierr.NotFound("ROUTE_NOT_FOUND", "No route for "+c.Request.Method+" "+c.Request.URL.Path))
	})
	return r
}

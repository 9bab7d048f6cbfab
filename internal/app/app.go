package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-orchestrator/internal/http"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Router   *gin.Engine

	otelShutdown func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE (development by default).
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if logMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return log, nil
}

func New(ctx context.Context) (*App, error) {
	log, err := NewLogger()
	if err != nil {
		return nil, err
	}
	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	a, err := NewWithConfig(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// NewWithConfig wires every dependency for cfg. On error everything opened so far
// is closed.
func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.OTelEndpoint,
		Headers:     observability.ParseHeaders(cfg.OTelHeaders),
		Insecure:    cfg.OTelInsecure,
		SampleRatio: cfg.OTelSampleRatio,
	})
	metrics := observability.Init(cfg.MetricsEnabled)

	clients, err := wireClients(log, cfg, metrics)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}
	reposet, err := wireRepos(clients.DB.DB(), clients.Redis, log, cfg)
	if err != nil {
		clients.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}
	serviceset, err := wireServices(ctx, log, cfg, clients.DB.DB(), clients, reposet, metrics)
	if err != nil {
		clients.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}
	router := wireRouter(log, cfg, wireHandlers(log, serviceset), metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Router:       router,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Metrics.StartDBCollector(ctx, a.Log, a.Clients.DB.DB(), a.Cfg.DBStatsInterval)
	srv := http.NewServer(a.Log, http.ServerConfig{
		Addr:            a.Cfg.HTTP.Addr,
		ReadTimeout:     a.Cfg.HTTP.ReadTimeout,
		WriteTimeout:    a.Cfg.HTTP.WriteTimeout,
		ShutdownTimeout: a.Cfg.HTTP.ShutdownTimeout,
	}, a.Router)
	return srv.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}

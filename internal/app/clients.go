package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/rag-orchestrator/internal/clients/redis"
	"github.com/yungbote/rag-orchestrator/internal/data/db"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/platform/openai"
)

var (
	openDatabase    = db.Open
	newRedisClient  = redis.NewClient
	newOpenAIClient = func(log *logger.Logger, cfg openai.Config) (llmClient, error) { return openai.NewClient(log, cfg) }
)

type Clients struct {
	DB    *db.Service
	Redis *goredis.Client
	Store closableStore
	// LLM is nil when OPENAI_API_KEY is not configured.
	LLM llmClient
}

func wireClients(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	pg, err := openDatabase(log, db.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		SlowQuery:    cfg.Database.SlowQuery,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init database: %w", err)
	}
	c.DB = pg
	if cfg.Database.AutoMigrate {
		if err := pg.AutoMigrateAll(); err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("database automigrate: %w", err)
		}
	}

	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := newRedisClient(log, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
	}

	store, err := resolveObjectStore(log, cfg.Storage, metrics)
	if err != nil {
		c.Close()
		return Clients{}, err
	}
	c.Store = store

	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		log.Warn("OPENAI_API_KEY not set; generation is unavailable and only hash embeddings can be used")
	} else {
		llm, err := newOpenAIClient(log, cfg.OpenAI)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		c.LLM = instrumentLLM(llm, metrics)
	}
	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Store.close != nil {
		_ = c.Store.close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

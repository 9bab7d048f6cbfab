package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/rag-orchestrator/internal/platform/envutil"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/platform/openai"
	"github.com/yungbote/rag-orchestrator/internal/platform/sizefmt"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

const (
	QuotaBackendSQL   = "sql"
	QuotaBackendRedis = "redis"

	StorageModeAFS = "afs"

	IndexBackendMemory = "memory"
	IndexBackendSQL    = "sql"
	IndexBackendQdrant = "qdrant"
)

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	SlowQuery    time.Duration
	AutoMigrate  bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	// Mode is gcs, gcs_emulator or afs. Empty picks gcs_emulator when
	// STORAGE_EMULATOR_HOST is set, gcs when a bucket is set, afs otherwise.
	Mode         string
	EmulatorHost string
	Bucket       string
	AFSBaseURL   string
}

type IndexConfig struct {
	Backend     string
	EnsureIndex bool
}

type EmbeddingConfig struct {
	ModelID string
	Dim     int
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

type Config struct {
	ServiceName string
	Environment string
	Version     string

	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Index     IndexConfig
	Embedding EmbeddingConfig
	OpenAI    openai.Config

	QuotaBackend   string
	QuotaKeyPrefix string

	RAG    services.RAGConfig
	Upload services.UploadLimits

	JWTSecret string
	RateLimit RateLimitConfig

	OTelEnabled     bool
	OTelEndpoint    string
	OTelHeaders     string
	OTelInsecure    bool
	OTelSampleRatio float64
	MetricsEnabled  bool
	DBStatsInterval time.Duration
}

// LoadConfig layers settings: process env wins, then .env, then the YAML file named
// by RAG_CONFIG_FILE. Both files are optional.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if path := strings.TrimSpace(os.Getenv("RAG_CONFIG_FILE")); path != "" {
		n, err := applyYAMLDefaults(path)
		if err != nil {
			return Config{}, err
		}
		if log != nil {
			log.Info("Loaded config file", "path", path, "keys", n)
		}
	}
	return configFromEnv(), nil
}

// applyYAMLDefaults reads a flat mapping of env names to values and sets every
// name that is not already present in the environment.
func applyYAMLDefaults(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read config file %s: %w", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return 0, fmt.Errorf("parse config file %s: %w", path, err)
	}
	n := 0
	for k, v := range values {
		key := strings.ToUpper(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, yamlScalar(v)); err != nil {
			return n, fmt.Errorf("apply %s: %w", key, err)
		}
		n++
	}
	return n, nil
}

func yamlScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func configFromEnv() Config {
	rag := services.DefaultRAGConfig()
	upload := services.DefaultUploadLimits()
	oa := openai.ResolveConfigFromEnv()

	cfg := Config{
		ServiceName: envutil.String("SERVICE_NAME", "rag-orchestrator"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		HTTP: HTTPConfig{
			Addr:            envutil.String("HTTP_ADDR", ":8080"),
			ReadTimeout:     envutil.Duration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    envutil.Duration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSOrigins:     envutil.List("CORS_ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			Driver:       envutil.String("DATABASE_DRIVER", "postgres"),
			DSN:          envutil.String("DATABASE_DSN", ""),
			MaxOpenConns: envutil.Int("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envutil.Int("DATABASE_MAX_IDLE_CONNS", 5),
			SlowQuery:    envutil.Duration("DATABASE_SLOW_QUERY", time.Second),
			AutoMigrate:  envutil.Bool("DATABASE_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Mode:         strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", "")),
			EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
			Bucket:       envutil.String("RAG_GCS_BUCKET", ""),
			AFSBaseURL:   envutil.String("AFS_BASE_URL", "file:///tmp/rag-objects"),
		},
		Index: IndexConfig{
			Backend:     strings.ToLower(envutil.String("INDEX_BACKEND", "")),
			EnsureIndex: envutil.Bool("INDEX_ENSURE_ON_START", true),
		},
		Embedding: EmbeddingConfig{
			ModelID: envutil.String("EMBED_MODEL", "openai:"+oa.EmbedModel),
			Dim:     envutil.Int("EMBED_DIM", 1536),
		},
		OpenAI: oa,

		QuotaBackend:   strings.ToLower(envutil.String("QUOTA_BACKEND", "")),
		QuotaKeyPrefix: envutil.String("QUOTA_KEY_PREFIX", "rag:quota"),

		RAG: services.RAGConfig{
			QueryTopK:          envutil.Int("RAG_QUERY_TOP_K", rag.QueryTopK),
			RetrieveTopK:       envutil.Int("RAG_RETRIEVE_TOP_K", rag.RetrieveTopK),
			WeightBM25:         envutil.Float("RAG_WEIGHT_BM25", rag.WeightBM25),
			WeightVector:       envutil.Float("RAG_WEIGHT_VECTOR", rag.WeightVector),
			SummaryMaxChars:    envutil.Int("RAG_SUMMARY_MAX_CHARS", rag.SummaryMaxChars),
			SummaryBatchChunks: envutil.Int("RAG_SUMMARY_BATCH_CHUNKS", rag.SummaryBatchChunks),
			Chunking: services.ChunkingConfig{
				Size:    envutil.Int("CHUNK_SIZE", rag.Chunking.Size),
				Overlap: envutil.Int("CHUNK_OVERLAP", rag.Chunking.Overlap),
			},
		},
		Upload: services.UploadLimits{
			MaxFilesPerRequest: envutil.Int("UPLOAD_MAX_FILES", upload.MaxFilesPerRequest),
			MaxFileBytes:       sizefmt.MBToBytes(envutil.Float("UPLOAD_MAX_FILE_MB", sizefmt.BytesToMB(upload.MaxFileBytes))),
			MaxRequestBytes:    sizefmt.MBToBytes(envutil.Float("UPLOAD_MAX_REQUEST_MB", sizefmt.BytesToMB(upload.MaxRequestBytes))),
			DailyMaxFiles:      envutil.Int64("QUOTA_DAILY_MAX_FILES", upload.DailyMaxFiles),
			DailyMaxBytes:      sizefmt.MBToBytes(envutil.Float("QUOTA_DAILY_MAX_MB", sizefmt.BytesToMB(upload.DailyMaxBytes))),
		},

		JWTSecret: envutil.String("JWT_SECRET_KEY", ""),
		RateLimit: RateLimitConfig{
			PerSecond: envutil.Float("RATE_LIMIT_RPS", 0),
			Burst:     envutil.Int("RATE_LIMIT_BURST", 20),
		},

		OTelEnabled:     envutil.Bool("OTEL_ENABLED", false),
		OTelEndpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelHeaders:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTelInsecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		OTelSampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1),
		MetricsEnabled:  envutil.Bool("METRICS_ENABLED", true),
		DBStatsInterval: envutil.Duration("DB_STATS_INTERVAL", 15*time.Second),
	}

	if cfg.QuotaBackend == "" {
		cfg.QuotaBackend = QuotaBackendSQL
		if cfg.Redis.Addr != "" {
			cfg.QuotaBackend = QuotaBackendRedis
		}
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = IndexBackendSQL
		if envutil.String("QDRANT_URL", "") != "" {
			cfg.Index.Backend = IndexBackendQdrant
		}
	}
	if cfg.Storage.Mode == "" && cfg.Storage.EmulatorHost == "" && cfg.Storage.Bucket == "" {
		cfg.Storage.Mode = StorageModeAFS
	}
	return cfg
}

// Validate reports settings that cannot work regardless of which backends are up.
func (c Config) Validate() error {
	var errs []error
	if c.Embedding.Dim <= 0 {
		errs = append(errs, fmt.Errorf("EMBED_DIM must be positive"))
	}
	if c.RAG.Chunking.Size <= 0 || c.RAG.Chunking.Overlap < 0 || c.RAG.Chunking.Overlap >= c.RAG.Chunking.Size {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)"))
	}
	if c.RAG.WeightBM25 < 0 || c.RAG.WeightVector < 0 {
		errs = append(errs, fmt.Errorf("RAG_WEIGHT_* must not be negative"))
	}
	if c.RAG.SummaryBatchChunks <= 0 {
		errs = append(errs, fmt.Errorf("RAG_SUMMARY_BATCH_CHUNKS must be positive"))
	}
	switch c.QuotaBackend {
	case QuotaBackendSQL:
	case QuotaBackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("QUOTA_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid QUOTA_BACKEND=%q (allowed: sql, redis)", c.QuotaBackend))
	}
	switch c.Index.Backend {
	case IndexBackendMemory, IndexBackendSQL, IndexBackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("invalid INDEX_BACKEND=%q (allowed: memory, sql, qdrant)", c.Index.Backend))
	}
	return errors.Join(errs...)
}

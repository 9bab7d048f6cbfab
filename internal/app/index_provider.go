package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/rag-orchestrator/internal/data/repos"
	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/platform/qdrant"
	"github.com/yungbote/rag-orchestrator/internal/rag/search"
)

var (
	resolveQdrantConfig = qdrant.ResolveConfigFromEnv
	newQdrantChunkStore = qdrant.NewChunkStore
)

const ensureIndexTimeout = 30 * time.Second

type IndexProviderBootstrapErrorCode string

const (
	IndexProviderBootstrapErrorInvalidBackend     IndexProviderBootstrapErrorCode = "invalid_backend"
	IndexProviderBootstrapErrorMissingDatabase    IndexProviderBootstrapErrorCode = "missing_database"
	IndexProviderBootstrapErrorMissingQdrantURL   IndexProviderBootstrapErrorCode = "missing_qdrant_url"
	IndexProviderBootstrapErrorInvalidQdrantURL   IndexProviderBootstrapErrorCode = "invalid_qdrant_url"
	IndexProviderBootstrapErrorMissingQdrantColl  IndexProviderBootstrapErrorCode = "missing_qdrant_collection"
	IndexProviderBootstrapErrorInvalidVectorDim   IndexProviderBootstrapErrorCode = "invalid_vector_dim"
	IndexProviderBootstrapErrorVectorDimMismatch  IndexProviderBootstrapErrorCode = "vector_dim_mismatch"
	IndexProviderBootstrapErrorQdrantConfigFailed IndexProviderBootstrapErrorCode = "qdrant_config_failed"
	IndexProviderBootstrapErrorEnsureFailed       IndexProviderBootstrapErrorCode = "ensure_index_failed"
)

type IndexProviderBootstrapError struct {
	Code    IndexProviderBootstrapErrorCode
	Backend string
	Cause   error
}

func (e *IndexProviderBootstrapError) Error() string {
	if e == nil {
		return "search index bootstrap failed"
	}
	return fmt.Sprintf("search index bootstrap failed (code=%s backend=%q): %v", e.Code, e.Backend, e.Cause)
}

func (e *IndexProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveSearchIndex builds the configured search index. Keyword search, counts and
// chunk lookups always live in the chunk table for sql and qdrant; qdrant adds an
// external vector collection.
func resolveSearchIndex(
	ctx context.Context,
	log *logger.Logger,
	cfg Config,
	db *gorm.DB,
	metrics *observability.Metrics,
) (search.Index, error) {
	backend := cfg.Index.Backend
	idx, err := openSearchIndex(log, cfg, db)
	if err == nil && cfg.Index.EnsureIndex {
		ensureCtx, cancel := context.WithTimeout(ctx, ensureIndexTimeout)
		err = idx.EnsureIndex(ensureCtx)
		cancel()
		if err != nil {
			err = &IndexProviderBootstrapError{Code: IndexProviderBootstrapErrorEnsureFailed, Backend: backend, Cause: err}
		}
	}
	if err != nil {
		code := indexProviderBootstrapErrorCode(err)
		metrics.ObserveProviderBootstrap("search_index", backend, "error", string(code))
		log.Error("Search index bootstrap failed", "backend", backend, "error_code", code, "error", err)
		return nil, err
	}
	metrics.ObserveProviderBootstrap("search_index", backend, "success", "none")
	log.Info("Search index selected", "backend", backend, "embed_dim", cfg.Embedding.Dim)
	return search.Instrument(backend, idx, metrics), nil
}

func openSearchIndex(log *logger.Logger, cfg Config, db *gorm.DB) (search.Index, error) {
	backend := cfg.Index.Backend
	dim := cfg.Embedding.Dim
	switch backend {
	case IndexBackendMemory:
		log.Warn("In-memory search index selected; chunks are lost on restart")
		return search.NewMemoryIndex(dim), nil
	case IndexBackendSQL, IndexBackendQdrant:
	default:
		return nil, &IndexProviderBootstrapError{
			Code:    IndexProviderBootstrapErrorInvalidBackend,
			Backend: backend,
			Cause:   fmt.Errorf("unsupported index backend %q", backend),
		}
	}
	if db == nil {
		return nil, &IndexProviderBootstrapError{
			Code:    IndexProviderBootstrapErrorMissingDatabase,
			Backend: backend,
			Cause:   errors.New("chunk table requires a database"),
		}
	}
	chunkRepo := repos.NewChunkRepo(db, log)
	if backend == IndexBackendSQL {
		return search.NewStoreIndex(log, chunkRepo, nil, dim), nil
	}

	qcfg, err := resolveQdrantConfig()
	if err != nil {
		return nil, classifyIndexProviderBootstrapError(backend, err)
	}
	if qcfg.VectorDim != dim {
		return nil, &IndexProviderBootstrapError{
			Code:    IndexProviderBootstrapErrorVectorDimMismatch,
			Backend: backend,
			Cause:   fmt.Errorf("qdrant vector dim %d does not match EMBED_DIM %d", qcfg.VectorDim, dim),
		}
	}
	vectors, err := newQdrantChunkStore(log, qcfg)
	if err != nil {
		return nil, classifyIndexProviderBootstrapError(backend, err)
	}
	return search.NewStoreIndex(log, chunkRepo, vectors, dim), nil
}

func classifyIndexProviderBootstrapError(backend string, err error) error {
	code := IndexProviderBootstrapErrorQdrantConfigFailed
	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = IndexProviderBootstrapErrorMissingQdrantURL
		case qdrant.ConfigErrorInvalidURL:
			code = IndexProviderBootstrapErrorInvalidQdrantURL
		case qdrant.ConfigErrorMissingCollection:
			code = IndexProviderBootstrapErrorMissingQdrantColl
		case qdrant.ConfigErrorMissingVectorDim, qdrant.ConfigErrorInvalidVectorDim:
			code = IndexProviderBootstrapErrorInvalidVectorDim
		}
	}
	return &IndexProviderBootstrapError{Code: code, Backend: backend, Cause: err}
}

func indexProviderBootstrapErrorCode(err error) IndexProviderBootstrapErrorCode {
	var bootstrapErr *IndexProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return IndexProviderBootstrapErrorQdrantConfigFailed
}

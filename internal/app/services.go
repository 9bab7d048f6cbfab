package app

import (
	"context"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
	"github.com/yungbote/rag-orchestrator/internal/platform/openai"
	"github.com/yungbote/rag-orchestrator/internal/rag/embedding"
	"github.com/yungbote/rag-orchestrator/internal/rag/generation"
	"github.com/yungbote/rag-orchestrator/internal/rag/search"
	"github.com/yungbote/rag-orchestrator/internal/services"
)

type Services struct {
	Embedder  *embedding.Service
	Generator *generation.Service
	Index     search.Index

	Loader    services.DocumentTextLoader
	Upload    services.UploadService
	Ingestion services.IngestionService
	RAG       services.RAGService
	IndexOps  services.IndexService
	Metadata  services.MetadataService
}

// unconfiguredGenerator stands in when no OpenAI key is set so that queries fail
// with GENERATION_UNAVAILABLE instead of the process refusing to start.
type unconfiguredGenerator struct{}

func (unconfiguredGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	return "", &openai.HTTPError{StatusCode: http.StatusServiceUnavailable, Body: "OPENAI_API_KEY is not configured"}
}

func wireServices(
	ctx context.Context,
	log *logger.Logger,
	cfg Config,
	db *gorm.DB,
	clients Clients,
	reposet Repos,
	metrics *observability.Metrics,
) (Services, error) {
	log.Info("Wiring services...")

	var remote embedding.RemoteEmbedder
	var gen generation.TextGenerator = unconfiguredGenerator{}
	if clients.LLM != nil {
		remote = clients.LLM
		gen = clients.LLM
	}
	if provider, _ := embedding.ParseModelID(cfg.Embedding.ModelID); provider == "openai" && remote == nil {
		return Services{}, fmt.Errorf("EMBED_MODEL=%q requires OPENAI_API_KEY", cfg.Embedding.ModelID)
	}
	embedder := embedding.NewService(log, embedding.NewModelCache(embedding.NewLoader(remote)), cfg.Embedding.ModelID, cfg.Embedding.Dim)
	generator := generation.NewService(log, gen)
	log.Info("Embedding model configured", "model", embedder.ModelID(), "dim", embedder.Dim())

	index, err := resolveSearchIndex(ctx, log, cfg, db, metrics)
	if err != nil {
		return Services{}, err
	}

	loader := services.NewDocumentTextLoader(log, reposet.Documents, clients.Store)
	return Services{
		Embedder:  embedder,
		Generator: generator,
		Index:     index,
		Loader:    loader,
		Upload:    services.NewUploadService(log, reposet.Documents, reposet.Quota, clients.Store, cfg.Upload, metrics),
		Ingestion: services.NewIngestionService(log, reposet.Documents, loader, embedder, index, cfg.RAG.Chunking, metrics),
		RAG:       services.NewRAGService(log, embedder, index, generator, loader, cfg.RAG, metrics),
		IndexOps:  services.NewIndexService(log, embedder, index),
		Metadata:  services.NewMetadataService(log, reposet.MetadataFields),
	}, nil
}

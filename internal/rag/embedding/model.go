// Package embedding turns text into fixed-dimension unit vectors through cached model instances.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/yungbote/rag-orchestrator/internal/rag/lexical"
	"github.com/yungbote/rag-orchestrator/internal/rag/vecmath"
)

// Model is a loaded embedding model. Implementations must be safe for concurrent use
// and are never mutated after loading.
type Model interface {
	ID() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// RemoteEmbedder is the subset of an API client needed by the remote model.
type RemoteEmbedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

type remoteModel struct {
	id     string
	name   string
	client RemoteEmbedder
}

// NewRemoteModel wraps an API-hosted embedding model.
func NewRemoteModel(id, name string, client RemoteEmbedder) Model {
	return &remoteModel{id: id, name: name, client: client}
}

func (m *remoteModel) ID() string { return m.id }

func (m *remoteModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return m.client.Embed(ctx, m.name, texts)
}

// hashModel is a deterministic feature-hashing embedder that runs in-process.
// It is used for local development and tests where no embedding API is reachable.
type hashModel struct {
	id  string
	dim int
}

func NewHashModel(id string, dim int) (Model, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("hash model dim must be positive (got %d)", dim)
	}
	return &hashModel{id: id, dim: dim}, nil
}

func (m *hashModel) ID() string { return m.id }

func (m *hashModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := make([]float32, m.dim)
		for _, tok := range lexical.Tokenize(t) {
			h := fnv.New64a()
			_, _ = h.Write([]byte(tok))
			sum := h.Sum64()
			idx := int(sum % uint64(m.dim))
			if sum&(1<<63) != 0 {
				vec[idx] -= 1
			} else {
				vec[idx] += 1
			}
		}
		out[i] = vecmath.Normalize(vec)
	}
	return out, nil
}

// ParseModelID splits "provider:name" identities. A bare name is treated as an openai model.
func ParseModelID(id string) (provider, name string) {
	id = strings.TrimSpace(id)
	if p, n, ok := strings.Cut(id, ":"); ok {
		return strings.ToLower(p), n
	}
	return "openai", id
}

// NewLoader returns a Loader for "openai:<model>" and "hash:<dim>" identities.
// remote may be nil when only hash models are used.
func NewLoader(remote RemoteEmbedder) Loader {
	return func(ctx context.Context, id string) (Model, error) {
		provider, name := ParseModelID(id)
		switch provider {
		case "hash":
			dim, err := strconv.Atoi(name)
			if err != nil {
				return nil, fmt.Errorf("hash model %q: dim must be an integer", id)
			}
			return NewHashModel(id, dim)
		case "openai":
			if remote == nil {
				return nil, fmt.Errorf("model %q requires an OpenAI client", id)
			}
			return NewRemoteModel(id, name, remote), nil
		default:
			return nil, fmt.Errorf("unknown embedding provider %q", provider)
		}
	}
}

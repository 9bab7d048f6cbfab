// Package afsstore is a blob.Store over viant/afs, used for local disk (file://)
// and in-memory (mem://) deployments.
package afsstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/yungbote/rag-orchestrator/internal/platform/blob"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

type Store struct {
	log     *logger.Logger
	fs      afs.Service
	baseURL string
}

var _ blob.Store = (*Store)(nil)

// New roots the store at baseURL, e.g. "file:///var/lib/rag/objects" or "mem://localhost/rag".
func New(log *logger.Logger, baseURL string) (*Store, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing env var OBJECT_STORAGE_URL")
	}
	if url.Scheme(baseURL, "") == "" {
		return nil, fmt.Errorf("invalid OBJECT_STORAGE_URL=%q; expected a scheme such as file:// or mem://", baseURL)
	}
	s := &Store{
		log:     log.With("service", "AFSObjectStore"),
		fs:      afs.New(),
		baseURL: baseURL,
	}
	s.log.Info("Object storage initialized", "mode", "afs", "base_url", baseURL)
	return s, nil
}

func (s *Store) objectURL(key string) string {
	return url.Join(s.baseURL, strings.TrimLeft(key, "/"))
}

func (s *Store) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := s.fs.Upload(ctx, s.objectURL(key), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("afs upload %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	target := s.objectURL(key)
	ok, err := s.fs.Exists(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("afs exists %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	data, err := s.fs.DownloadWithURL(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("afs download %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.fs.Exists(ctx, s.objectURL(key))
}

// Ping creates the root folder when it does not exist yet.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.fs.Exists(ctx, s.baseURL)
	if err != nil {
		return fmt.Errorf("afs exists %s: %w", s.baseURL, err)
	}
	if ok {
		return nil
	}
	if err := s.fs.Create(ctx, s.baseURL, file.DefaultDirOsMode, true); err != nil {
		return fmt.Errorf("afs create %s: %w", s.baseURL, err)
	}
	return nil
}

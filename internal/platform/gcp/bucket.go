package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/rag-orchestrator/internal/platform/blob"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

const (
	transferTimeout = 2 * time.Minute
	metaTimeout     = 30 * time.Second
)

// BucketService stores raw uploads in a single GCS bucket. In emulator mode reads go
// through the emulator's JSON API directly.
type BucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	storageMode   ObjectStorageMode
	emulatorHost  string
	bucket        string
	http          *http.Client
}

var _ blob.Store = (*BucketService)(nil)

func NewBucketService(log *logger.Logger, bucket string) (*BucketService, error) {
	storageCfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewBucketServiceWithConfig(log, storageCfg, bucket)
}

func NewBucketServiceWithConfig(log *logger.Logger, storageCfg ObjectStorageConfig, bucket string) (*BucketService, error) {
	if err := ValidateObjectStorageConfig(storageCfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing env var RAG_GCS_BUCKET")
	}
	serviceLog := log.With("service", "BucketService")

	stClient, err := newStorageClientForMode(context.Background(), storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", bucket,
	)
	return &BucketService{
		log:           serviceLog,
		storageClient: stClient,
		storageMode:   storageCfg.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"),
		bucket:        bucket,
		http:          http.DefaultClient,
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig) (*storage.Client, error) {
	switch storageCfg.Mode {
	case ObjectStorageModeGCS:
		return storage.NewClient(ctx, StorageClientOptions(credentialsFromEnv())...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{
			Code: ObjectStorageConfigErrorInvalidMode,
			Mode: string(storageCfg.Mode),
		}
	}
}

func (bs *BucketService) isEmulatorMode() bool {
	return bs != nil && bs.storageMode.Emulator() && bs.emulatorHost != ""
}

func (bs *BucketService) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	w := bs.storageClient.Bucket(bs.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	bs.log.Debug("Object stored", "key", key, "size_bytes", len(data))
	return nil
}

func (bs *BucketService) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, transferTimeout)
	defer cancel()

	if bs.isEmulatorMode() {
		resp, err := bs.emulatorGet(ctx, bs.emulatorObjectURL(key)+"?alt=media")
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	}

	r, err := bs.storageClient.Bucket(bs.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (bs *BucketService) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, metaTimeout)
	defer cancel()

	if bs.isEmulatorMode() {
		resp, err := bs.emulatorGet(ctx, bs.emulatorObjectURL(key))
		if errors.Is(err, blob.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		_ = resp.Body.Close()
		return true, nil
	}

	_, err := bs.storageClient.Bucket(bs.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch GCS object attrs: %w", err)
	}
	return true, nil
}

// Ping verifies the bucket is reachable with the configured credentials.
func (bs *BucketService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, metaTimeout)
	defer cancel()

	if bs.isEmulatorMode() {
		resp, err := bs.emulatorGet(ctx, fmt.Sprintf("%s/storage/v1/b/%s", bs.emulatorHost, url.PathEscape(bs.bucket)))
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		return nil
	}
	if _, err := bs.storageClient.Bucket(bs.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("failed to fetch GCS bucket attrs: %w", err)
	}
	return nil
}

func (bs *BucketService) Close() error {
	if bs == nil || bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

func (bs *BucketService) emulatorObjectURL(key string) string {
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		bs.emulatorHost,
		url.PathEscape(bs.bucket),
		url.PathEscape(key),
	)
}

// emulatorGet returns the response for a 200, blob.ErrNotFound for a 404 and an
// error carrying the body otherwise. The caller closes the body.
func (bs *BucketService) emulatorGet(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed creating emulator request: %w", err)
	}
	resp, err := bs.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed emulator request: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, target)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("emulator request failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/rag-orchestrator/internal/observability"
	"github.com/yungbote/rag-orchestrator/internal/platform/afsstore"
	"github.com/yungbote/rag-orchestrator/internal/platform/blob"
	"github.com/yungbote/rag-orchestrator/internal/platform/gcp"
	"github.com/yungbote/rag-orchestrator/internal/platform/logger"
)

var (
	newBucketServiceWithConfig = gcp.NewBucketServiceWithConfig
	newAFSStore                = afsstore.New
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code  StorageProviderBootstrapErrorCode
	Mode  string
	Cause error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf("object storage bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// closableStore is a blob.Store with an optional Close for shutdown.
type closableStore struct {
	blob.Store
	close func() error
}

func resolveObjectStore(log *logger.Logger, cfg StorageConfig, metrics *observability.Metrics) (closableStore, error) {
	store, mode, source, err := openObjectStore(log, cfg)
	if err != nil {
		code := storageProviderBootstrapErrorCode(err)
		metrics.ObserveProviderBootstrap("object_storage", mode, "error", string(code))
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", mode,
			"mode_source", source,
			"emulator_host", cfg.EmulatorHost,
			"error_code", code,
			"error", err,
		)
		return closableStore{}, err
	}
	metrics.ObserveProviderBootstrap("object_storage", mode, "success", "none")
	log.Info("Object storage provider selected", "mode", mode, "mode_source", source)
	return store, nil
}

func openObjectStore(log *logger.Logger, cfg StorageConfig) (closableStore, string, string, error) {
	if cfg.Mode == StorageModeAFS {
		st, err := newAFSStore(log, cfg.AFSBaseURL)
		if err != nil {
			return closableStore{}, cfg.Mode, "explicit_or_default", &StorageProviderBootstrapError{
				Code:  StorageProviderBootstrapErrorConnectFailed,
				Mode:  cfg.Mode,
				Cause: err,
			}
		}
		return closableStore{Store: st, close: func() error { return nil }}, cfg.Mode, "explicit_or_default", nil
	}

	storageCfg, err := gcp.ResolveObjectStorageConfig(cfg.Mode, cfg.EmulatorHost)
	if err != nil {
		return closableStore{}, cfg.Mode, storageCfg.ModeSource(), classifyStorageProviderBootstrapError(cfg.Mode, err)
	}
	mode := string(storageCfg.Mode)
	if cfg.Bucket == "" {
		return closableStore{}, mode, storageCfg.ModeSource(), &StorageProviderBootstrapError{
			Code:  StorageProviderBootstrapErrorMissingBucket,
			Mode:  mode,
			Cause: errors.New("RAG_GCS_BUCKET is required for gcs storage"),
		}
	}
	bucket, err := newBucketServiceWithConfig(log, storageCfg, cfg.Bucket)
	if err != nil {
		return closableStore{}, mode, storageCfg.ModeSource(), classifyStorageProviderBootstrapError(mode, err)
	}
	return closableStore{Store: bucket, close: bucket.Close}, mode, storageCfg.ModeSource(), nil
}

func classifyStorageProviderBootstrapError(mode string, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		}
	}
	return &StorageProviderBootstrapError{Code: code, Mode: mode, Cause: err}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}

package storage

import (
	"context"
	"fmt"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Storage backends
const (
	BackendNone  = ""
	BackendS3    = "s3"
	BackendMinio = "minio"
)

type bucketStore interface {
	appprocurement.DocumentStore
	EnsureBucket(ctx context.Context) error
}

// NewDocumentStore builds the store for cfg.Backend and makes sure the bucket
// exists. It returns nil when no backend is configured.
func NewDocumentStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (appprocurement.DocumentStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store bucketStore
		err   error
	)
	switch cfg.Backend {
	case BackendNone:
		logger.Info("document storage disabled")
		return nil, nil
	case BackendS3:
		store, err = NewS3DocumentStore(ctx, &cfg, logger)
	case BackendMinio:
		store, err = NewMinioDocumentStore(&cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info("document storage ready",
		zap.String("backend", cfg.Backend),
		zap.String("bucket", cfg.Bucket),
	)
	return store, nil
}

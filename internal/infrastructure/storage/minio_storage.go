package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioDocumentStore stores documents in a MinIO bucket
type MinioDocumentStore struct {
	client     *minio.Client
	bucket     string
	region     string
	presignTTL time.Duration
	logger     *zap.Logger
}

// NewMinioDocumentStore creates the store. The endpoint is host:port without a scheme.
func NewMinioDocumentStore(cfg *config.StorageConfig, logger *zap.Logger) (*MinioDocumentStore, error) {
	if err := validateStorageConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &MinioDocumentStore{
		client:     client,
		bucket:     cfg.Bucket,
		region:     region,
		presignTTL: ttl,
		logger:     logger.Named("minio_store"),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist
func (s *MinioDocumentStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	s.logger.Info("creating document bucket", zap.String("bucket", s.bucket))
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads doc under key and returns a presigned download URL
func (s *MinioDocumentStore) Put(ctx context.Context, key string, doc *appprocurement.RenderedDocument) (string, error) {
	if err := validatePut(key, doc); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(doc.Content), int64(len(doc.Content)), minio.PutObjectOptions{
		ContentType:        doc.ContentType,
		ContentDisposition: contentDisposition(doc.FileName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}

	s.logger.Debug("document stored", zap.String("key", key), zap.Int("bytes", len(doc.Content)))
	return u.String(), nil
}

var _ appprocurement.DocumentStore = (*MinioDocumentStore)(nil)

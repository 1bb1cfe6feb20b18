// Package storage keeps rendered purchase order documents in object storage
// and hands out time-limited download links.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultRegion     = "us-east-1"
	defaultPresignTTL = 7 * 24 * time.Hour
)

// S3DocumentStore stores documents in any S3-compatible bucket
type S3DocumentStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	presignTTL    time.Duration
	logger        *zap.Logger
}

// NewS3DocumentStore creates the store. cfg.Endpoint may be empty for AWS itself.
func NewS3DocumentStore(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*S3DocumentStore, error) {
	if err := validateStorageConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = withScheme(cfg.Endpoint, cfg.UseSSL)
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &S3DocumentStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignTTL:    ttl,
		logger:        logger.Named("s3_store"),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist
func (s *S3DocumentStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("creating document bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads doc under key and returns a presigned download URL
func (s *S3DocumentStore) Put(ctx context.Context, key string, doc *appprocurement.RenderedDocument) (string, error) {
	if err := validatePut(key, doc); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(doc.Content),
		ContentLength:      aws.Int64(int64(len(doc.Content))),
		ContentType:        aws.String(doc.ContentType),
		ContentDisposition: aws.String(contentDisposition(doc.FileName)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}

	s.logger.Debug("document stored", zap.String("key", key), zap.Int("bytes", len(doc.Content)))
	return req.URL, nil
}

func validateStorageConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return errors.New("storage secret key is required")
	}
	return nil
}

func validatePut(key string, doc *appprocurement.RenderedDocument) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	if doc == nil || len(doc.Content) == 0 {
		return errors.New("document content is empty")
	}
	return nil
}

func withScheme(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

func contentDisposition(fileName string) string {
	if fileName == "" {
		return "attachment"
	}
	return fmt.Sprintf("attachment; filename=%q", fileName)
}

var _ appprocurement.DocumentStore = (*S3DocumentStore)(nil)

package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"scorelib/config"
	"scorelib/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBlobStore stores uploaded files in a MinIO (or any S3-compatible)
// bucket.
type MinioBlobStore struct {
	client   *minio.Client
	bucket   string
	maxBytes int64
}

// NewMinioBlobStore connects to MinIO, ensures the bucket exists and
// returns a ready store.
func NewMinioBlobStore(cfg *config.Config) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("bucket created", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioBlobStore{
		client:   client,
		bucket:   cfg.MinioBucket,
		maxBytes: cfg.MaxUploadBytes,
	}, nil
}

// Put streams an upload into the bucket under a timestamp-prefixed key.
// The size cap is checked before any bytes reach the bucket.
func (s *MinioBlobStore) Put(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (string, error) {
	if size > s.maxBytes {
		return "", ErrTooLarge
	}

	key := ObjectKey(originalName, time.Now())

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}

	logger.Info("object stored", logger.String("key", key), logger.Int64("size", size))
	return key, nil
}

// Get returns a reader over the stored object, or ErrNotFound.
func (s *MinioBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject is lazy; stat first so missing keys surface as ErrNotFound.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return object, nil
}

// Remove deletes the object behind key. Removing an absent key is not an
// error; S3 semantics already make RemoveObject silent for missing keys.
func (s *MinioBlobStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"uplink/internal/config"
)

// MinioClient uploads through minio-go's low level Core API, which exposes
// the individual multipart calls.
type MinioClient struct {
	core   *minio.Core
	bucket string
}

// NewMinioClient connects to the configured MinIO endpoint with static credentials.
func NewMinioClient(cfg config.Storage) (*MinioClient, error) {
	host, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("storage.endpoint: %w", err)
	}
	lookup := minio.BucketLookupAuto
	if cfg.UsePathStyle {
		lookup = minio.BucketLookupPath
	}
	core, err := minio.NewCore(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioClient{core: core, bucket: cfg.Bucket}, nil
}

func (c *MinioClient) CreateMultipartUpload(ctx context.Context, key string) (string, error) {
	uploadID, err := c.core.NewMultipartUpload(ctx, c.bucket, key, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("create multipart upload for %s: %w", key, err)
	}
	return uploadID, nil
}

func (c *MinioClient) UploadPart(ctx context.Context, key, uploadID string, number int32, body io.ReadSeeker, size int64) (string, error) {
	part, err := c.core.PutObjectPart(ctx, c.bucket, key, uploadID, int(number), body, size, minio.PutObjectPartOptions{})
	if err != nil {
		return "", fmt.Errorf("upload part %d of %s: %w", number, key, err)
	}
	return part.ETag, nil
}

func (c *MinioClient) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) error {
	completed := make([]minio.CompletePart, len(parts))
	for i, part := range parts {
		completed[i] = minio.CompletePart{PartNumber: int(part.Number), ETag: part.ETag}
	}
	if _, err := c.core.CompleteMultipartUpload(ctx, c.bucket, key, uploadID, completed, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("complete multipart upload for %s: %w", key, err)
	}
	return nil
}

func (c *MinioClient) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	if err := c.core.AbortMultipartUpload(ctx, c.bucket, key, uploadID); err != nil {
		return fmt.Errorf("abort multipart upload for %s: %w", key, err)
	}
	return nil
}

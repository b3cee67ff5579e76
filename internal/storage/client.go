package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"uplink/internal/config"
)

// ErrUnsupportedProvider is returned by New for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported storage provider")

// CompletedPart identifies one accepted part when finishing a multipart upload.
type CompletedPart struct {
	Number int32
	ETag   string
}

// Client is the multipart surface used by resumable transfer sessions.
type Client interface {
	CreateMultipartUpload(ctx context.Context, key string) (uploadID string, err error)
	UploadPart(ctx context.Context, key, uploadID string, number int32, body io.ReadSeeker, size int64) (etag string, err error)
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []CompletedPart) error
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// New builds the client selected by cfg.Storage.Provider.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	if cfg == nil {
		return nil, errors.New("storage: config is required")
	}
	switch cfg.Storage.Provider {
	case config.ProviderS3:
		return NewS3Client(ctx, cfg.Storage)
	case config.ProviderMinio:
		return NewMinioClient(cfg.Storage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Storage.Provider)
	}
}

// splitEndpoint turns a configured endpoint into host[:port] and a TLS flag.
// Endpoints without a scheme fall back to useSSL.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, errors.New("endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), useSSL, nil
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	switch parsed.Scheme {
	case "http":
		return parsed.Host, false, nil
	case "https":
		return parsed.Host, true, nil
	default:
		return "", false, fmt.Errorf("endpoint %q: unsupported scheme %q", endpoint, parsed.Scheme)
	}
}

// endpointURL returns endpoint with an explicit scheme.
func endpointURL(endpoint string, useSSL bool) (string, error) {
	host, secure, err := splitEndpoint(endpoint, useSSL)
	if err != nil {
		return "", err
	}
	if secure {
		return "https://" + host, nil
	}
	return "http://" + host, nil
}

package testsupport

import (
	"path/filepath"
	"testing"

	"uplink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It points storage at a placeholder bucket with static credentials so no
// test ever consults the ambient AWS credential chain.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.Bucket = "uplink-test"
	cfgVal.Storage.AccessKeyID = "test-access"
	cfgVal.Storage.SecretAccessKey = "test-secret"
	cfgVal.Storage.PartSizeMiB = 5
	cfgVal.Storage.Concurrency = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackend selects the queue persistence backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Backend = backend
	}
}

// WithEndpoint points storage at a local S3 compatible endpoint using path
// style addressing.
func WithEndpoint(endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Endpoint = endpoint
		b.cfg.Storage.UsePathStyle = true
	}
}

// WithProvider overrides the storage provider.
func WithProvider(provider string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Provider = provider
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"uplink/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("UPLINK_ACCESS_KEY_ID", "env-key")
	t.Setenv("UPLINK_SECRET_ACCESS_KEY", "env-secret")
	t.Setenv("UPLINK_BUCKET", "env-bucket")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "uplink")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.LogDir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Storage.AccessKeyID != "env-key" || cfg.Storage.SecretAccessKey != "env-secret" {
		t.Fatalf("expected credentials from env, got %q/%q", cfg.Storage.AccessKeyID, cfg.Storage.SecretAccessKey)
	}
	if cfg.Storage.Bucket != "env-bucket" {
		t.Fatalf("expected bucket from env, got %q", cfg.Storage.Bucket)
	}
	if cfg.Storage.Provider != config.ProviderS3 {
		t.Fatalf("unexpected provider: %q", cfg.Storage.Provider)
	}
	if cfg.Queue.Backend != config.BackendSQLite {
		t.Fatalf("unexpected backend: %q", cfg.Queue.Backend)
	}
	if cfg.Queue.SnapshotKey != "uploadList" {
		t.Fatalf("unexpected snapshot key: %q", cfg.Queue.SnapshotKey)
	}
	if cfg.PartSizeBytes() != 8*1024*1024 {
		t.Fatalf("unexpected part size: %d", cfg.PartSizeBytes())
	}
	if err := cfg.ValidateStorage(); err != nil {
		t.Fatalf("ValidateStorage returned error: %v", err)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	t.Setenv("UPLINK_ACCESS_KEY_ID", "")
	t.Setenv("UPLINK_SECRET_ACCESS_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "uplink.toml")
	type payload struct {
		Paths   map[string]any `toml:"paths"`
		Storage map[string]any `toml:"storage"`
		Queue   map[string]any `toml:"queue"`
		Logging map[string]any `toml:"logging"`
	}
	data, err := toml.Marshal(payload{
		Paths: map[string]any{
			"state_dir": filepath.Join(dir, "state"),
			"log_dir":   filepath.Join(dir, "logs"),
		},
		Storage: map[string]any{
			"provider":          "MINIO",
			"bucket":            " uploads ",
			"endpoint":          "http://127.0.0.1:9000/",
			"access_key_id":     "minio",
			"secret_access_key": "minio123",
			"part_size_mib":     16,
			"concurrency":       2,
		},
		Queue:   map[string]any{"backend": "file", "snapshot_key": "transfers"},
		Logging: map[string]any{"format": "JSON", "level": "Debug"},
	})
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Storage.Provider != config.ProviderMinio {
		t.Fatalf("expected minio provider, got %q", cfg.Storage.Provider)
	}
	if cfg.Storage.Bucket != "uploads" {
		t.Fatalf("expected trimmed bucket, got %q", cfg.Storage.Bucket)
	}
	if cfg.Storage.Endpoint != "http://127.0.0.1:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Storage.Endpoint)
	}
	if cfg.PartSizeBytes() != 16*1024*1024 {
		t.Fatalf("unexpected part size: %d", cfg.PartSizeBytes())
	}
	if cfg.Queue.Backend != config.BackendFile || cfg.Queue.SnapshotKey != "transfers" {
		t.Fatalf("unexpected queue config: %+v", cfg.Queue)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "state", "uplink.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if err := cfg.ValidateStorage(); err != nil {
		t.Fatalf("ValidateStorage returned error: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"provider", func(c *config.Config) { c.Storage.Provider = "ftp" }, "storage.provider"},
		{"part size", func(c *config.Config) { c.Storage.PartSizeMiB = 1 }, "storage.part_size_mib"},
		{"concurrency", func(c *config.Config) { c.Storage.Concurrency = -1 }, "storage.concurrency"},
		{"backend", func(c *config.Config) { c.Queue.Backend = "redis" }, "queue.backend"},
		{"snapshot key", func(c *config.Config) { c.Queue.SnapshotKey = "a/b" }, "queue.snapshot_key"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateStorageRequirements(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateStorage(); err == nil || !strings.Contains(err.Error(), "storage.bucket") {
		t.Fatalf("expected bucket error, got %v", err)
	}

	cfg.Storage.Bucket = "uploads"
	cfg.Storage.Provider = config.ProviderMinio
	if err := cfg.ValidateStorage(); err == nil || !strings.Contains(err.Error(), "storage.endpoint") {
		t.Fatalf("expected endpoint error, got %v", err)
	}

	cfg.Storage.Endpoint = "http://127.0.0.1:9000"
	if err := cfg.ValidateStorage(); err == nil || !strings.Contains(err.Error(), "access_key_id") {
		t.Fatalf("expected credentials error, got %v", err)
	}

	cfg.Storage.Provider = config.ProviderS3
	cfg.Storage.AccessKeyID = "only-key"
	if err := cfg.ValidateStorage(); err == nil || !strings.Contains(err.Error(), "set together") {
		t.Fatalf("expected paired credentials error, got %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Storage.Concurrency != 4 || cfg.Storage.PartSizeMiB != 8 {
		t.Fatalf("unexpected sample storage defaults: %+v", cfg.Storage)
	}
}

func TestEncodeMasksSecret(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.SecretAccessKey = "super-secret"
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("expected secret to be masked, got:\n%s", out)
	}
	if cfg.Storage.SecretAccessKey != "super-secret" {
		t.Fatal("Encode must not modify the receiver")
	}
}

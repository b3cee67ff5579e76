package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"uplink/internal/config"
	"uplink/internal/logging"
	"uplink/internal/queue"
	"uplink/internal/testsupport"
	"uplink/internal/workspace"
)

type cliTestEnv struct {
	cfg        *config.Config
	s3         *testsupport.FakeS3
	configPath string
	dataDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("UPLINK_ACCESS_KEY_ID", "")
	t.Setenv("UPLINK_SECRET_ACCESS_KEY", "")
	t.Setenv("UPLINK_BUCKET", "")
	t.Setenv("UPLINK_ENDPOINT", "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(base, "aws-config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(base, "aws-credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("NO_COLOR", "1")

	fake := testsupport.NewFakeS3(t, "uplink-test")
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint(fake.URL()))
	cfg.Logging.Level = "error"

	configPath := filepath.Join(homeDir, ".config", "uplink", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		s3:         fake,
		configPath: configPath,
		dataDir:    filepath.Join(base, "data"),
	}
}

func (env *cliTestEnv) writeFile(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(env.dataDir, name)
	testsupport.WriteFile(t, path, size)
	return path
}

// tasks reads the persisted queue the way the next CLI invocation would.
func (env *cliTestEnv) tasks(t *testing.T) []queue.Task {
	t.Helper()
	ctx := context.Background()
	ws, err := workspace.Open(ctx, env.cfg, logging.NewNop(), workspace.WithOffline())
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	defer func() {
		if err := ws.Close(ctx); err != nil {
			t.Fatalf("close workspace: %v", err)
		}
	}()
	return ws.Controller().Tasks()
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	type payload struct {
		Paths   map[string]any `toml:"paths"`
		Storage map[string]any `toml:"storage"`
		Queue   map[string]any `toml:"queue"`
		Logging map[string]any `toml:"logging"`
	}
	data, err := toml.Marshal(payload{
		Paths: map[string]any{
			"state_dir": cfg.Paths.StateDir,
			"log_dir":   cfg.Paths.LogDir,
		},
		Storage: map[string]any{
			"provider":          cfg.Storage.Provider,
			"bucket":            cfg.Storage.Bucket,
			"region":            cfg.Storage.Region,
			"endpoint":          cfg.Storage.Endpoint,
			"access_key_id":     cfg.Storage.AccessKeyID,
			"secret_access_key": cfg.Storage.SecretAccessKey,
			"use_path_style":    cfg.Storage.UsePathStyle,
			"part_size_mib":     cfg.Storage.PartSizeMiB,
			"concurrency":       cfg.Storage.Concurrency,
		},
		Queue: map[string]any{
			"backend":      cfg.Queue.Backend,
			"snapshot_key": cfg.Queue.SnapshotKey,
		},
		Logging: map[string]any{
			"format": cfg.Logging.Format,
			"level":  cfg.Logging.Level,
		},
	})
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

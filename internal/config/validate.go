package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorageTuning(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateStorage checks the settings required to reach the object store.
// It is separate from Validate so queue inspection commands keep working
// before a bucket is configured.
func (c *Config) ValidateStorage() error {
	if err := c.validateStorageTuning(); err != nil {
		return err
	}
	if c.Storage.Bucket == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("storage.bucket is required. Set %s or edit %s (create with 'uplink config init')", envBucket, defaultPath)
	}
	if c.Storage.Provider == ProviderMinio {
		if c.Storage.Endpoint == "" {
			return errors.New("storage.endpoint must be set when storage.provider is minio")
		}
		if c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "" {
			return errors.New("storage.access_key_id and storage.secret_access_key must be set when storage.provider is minio")
		}
	}
	if (c.Storage.AccessKeyID == "") != (c.Storage.SecretAccessKey == "") {
		return errors.New("storage.access_key_id and storage.secret_access_key must be set together")
	}
	return nil
}

func (c *Config) validateStorageTuning() error {
	switch c.Storage.Provider {
	case ProviderS3, ProviderMinio:
	default:
		return fmt.Errorf("storage.provider: unsupported value %q (expected %q or %q)", c.Storage.Provider, ProviderS3, ProviderMinio)
	}
	if c.Storage.PartSizeMiB < minimumPartSizeMiB || c.Storage.PartSizeMiB > maximumPartSizeMiB {
		return fmt.Errorf("storage.part_size_mib must be between %d and %d", minimumPartSizeMiB, maximumPartSizeMiB)
	}
	if c.Storage.Concurrency <= 0 || c.Storage.Concurrency > maximumConcurrency {
		return fmt.Errorf("storage.concurrency must be between 1 and %d", maximumConcurrency)
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("queue.backend: unsupported value %q (expected %q or %q)", c.Queue.Backend, BackendSQLite, BackendFile)
	}
	if strings.ContainsAny(c.Queue.SnapshotKey, `/\`) {
		return errors.New("queue.snapshot_key must not contain path separators")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

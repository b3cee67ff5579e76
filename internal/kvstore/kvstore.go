package kvstore

import (
	"context"
	"errors"
	"fmt"

	"uplink/internal/config"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: store is closed")

// Store reads and writes string values by key.
type Store interface {
	// Read returns the value stored under key. The boolean is false when the
	// key has never been written.
	Read(ctx context.Context, key string) (string, bool, error)
	// Write replaces the value stored under key.
	Write(ctx context.Context, key, value string) error
	Close() error
}

// Open constructs the backend selected by cfg.Queue.Backend.
func Open(cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("kvstore: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	switch cfg.Queue.Backend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.DatabasePath())
	case config.BackendFile:
		return OpenFile(cfg.SnapshotDir())
	default:
		return nil, fmt.Errorf("kvstore: unsupported backend %q", cfg.Queue.Backend)
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

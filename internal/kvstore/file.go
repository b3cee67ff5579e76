package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	fileValueSuffix = ".snapshot"
	fileLockSuffix  = ".lock"
	lockRetryDelay  = 10 * time.Millisecond
)

// File stores each key as its own file inside a directory. Writes go to a
// temporary file that is renamed over the previous value, so a reader never
// observes a partially written value.
type File struct {
	dir    string
	mu     sync.Mutex
	closed bool
}

// OpenFile prepares dir for use as a file backed store.
func OpenFile(dir string) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("kvstore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the directory holding the values.
func (f *File) Dir() string { return f.dir }

func (f *File) Read(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}

	lock := flock.New(f.lockPath(key))
	locked, err := lock.TryRLockContext(ensureContext(ctx), lockRetryDelay)
	if err != nil {
		return "", false, fmt.Errorf("lock key %q: %w", key, err)
	}
	if locked {
		defer func() { _ = lock.Unlock() }()
	}

	data, err := os.ReadFile(f.valuePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key %q: %w", key, err)
	}
	return string(data), true, nil
}

func (f *File) Write(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	lock := flock.New(f.lockPath(key))
	locked, err := lock.TryLockContext(ensureContext(ctx), lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock key %q: %w", key, err)
	}
	if locked {
		defer func() { _ = lock.Unlock() }()
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for key %q: %w", key, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write key %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync key %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for key %q: %w", key, err)
	}
	if err := os.Rename(tmpName, f.valuePath(key)); err != nil {
		cleanup()
		return fmt.Errorf("replace key %q: %w", key, err)
	}
	return nil
}

func (f *File) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *File) valuePath(key string) string {
	return filepath.Join(f.dir, key+fileValueSuffix)
}

func (f *File) lockPath(key string) string {
	return filepath.Join(f.dir, key+fileLockSuffix)
}

func validateKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("kvstore: invalid key %q", key)
	}
	return nil
}

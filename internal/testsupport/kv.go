package testsupport

import (
	"context"
	"sync"

	"uplink/internal/kvstore"
)

// FlakyKV wraps an in-memory store and can be told to fail reads or writes,
// standing in for a durable store that is unavailable or out of quota.
type FlakyKV struct {
	inner *kvstore.Memory

	mu       sync.Mutex
	readErr  error
	writeErr error
	writes   int
}

var _ kvstore.Store = (*FlakyKV)(nil)

func NewFlakyKV() *FlakyKV {
	return &FlakyKV{inner: kvstore.NewMemory()}
}

// FailReads makes every Read return err until cleared with nil.
func (f *FlakyKV) FailReads(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

// FailWrites makes every Write return err until cleared with nil.
func (f *FlakyKV) FailWrites(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

// Writes returns how many writes succeeded.
func (f *FlakyKV) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *FlakyKV) Read(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	err := f.readErr
	f.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return f.inner.Read(ctx, key)
}

func (f *FlakyKV) Write(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if err := f.inner.Write(ctx, key, value); err != nil {
		return err
	}
	f.writes++
	return nil
}

func (f *FlakyKV) Close() error {
	return f.inner.Close()
}

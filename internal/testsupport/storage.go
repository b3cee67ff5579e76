package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"uplink/internal/storage"
)

// FakeStorage is an in-memory storage.Client. Part uploads can be held back
// with HoldParts and let through one at a time with ReleaseParts.
type FakeStorage struct {
	mu          sync.Mutex
	nextID      int
	uploads     map[string]*fakeUpload
	objects     map[string][]byte
	creates     int
	completes   int
	aborts      []string
	partCalls   []int32
	inFlight    int
	maxInFlight int
	failCreate  error
	failParts   map[int32]error
	held        bool
	tokens      chan struct{}
	// commitGate, when set, blocks CompleteMultipartUpload after the object
	// is stored until it is closed.
	commitGate chan struct{}
	committed  chan string
}

type fakeUpload struct {
	key   string
	parts map[int32][]byte
}

var _ storage.Client = (*FakeStorage)(nil)

// NewFakeStorage returns an empty fake store that accepts every call.
func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		uploads:   make(map[string]*fakeUpload),
		objects:   make(map[string][]byte),
		failParts: make(map[int32]error),
		tokens:    make(chan struct{}, 1024),
	}
}

func (f *FakeStorage) CreateMultipartUpload(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.failCreate != nil {
		err := f.failCreate
		f.failCreate = nil
		return "", err
	}
	f.creates++
	f.nextID++
	id := fmt.Sprintf("upload-%d", f.nextID)
	f.uploads[id] = &fakeUpload{key: key, parts: make(map[int32][]byte)}
	return id, nil
}

func (f *FakeStorage) UploadPart(ctx context.Context, key, uploadID string, number int32, body io.ReadSeeker, size int64) (string, error) {
	f.mu.Lock()
	f.partCalls = append(f.partCalls, number)
	held := f.held
	f.mu.Unlock()

	if held {
		select {
		case <-f.tokens:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("part %d: read %d bytes, want %d", number, len(data), size)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := f.failParts[number]; ok {
		delete(f.failParts, number)
		return "", err
	}
	upload, ok := f.uploads[uploadID]
	if !ok || upload.key != key {
		return "", fmt.Errorf("no such upload %s for %s", uploadID, key)
	}
	upload.parts[number] = data
	return md5ETag(data), nil
}

func (f *FakeStorage) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []storage.CompletedPart) error {
	gate, committed, err := f.commit(ctx, key, uploadID, parts)
	if err != nil || gate == nil {
		return err
	}
	committed <- key
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeStorage) commit(ctx context.Context, key, uploadID string, parts []storage.CompletedPart) (chan struct{}, chan string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	upload, ok := f.uploads[uploadID]
	if !ok || upload.key != key {
		return nil, nil, fmt.Errorf("no such upload %s for %s", uploadID, key)
	}
	if !slices.IsSortedFunc(parts, func(a, b storage.CompletedPart) int { return int(a.Number) - int(b.Number) }) {
		return nil, nil, errors.New("parts are not in ascending order")
	}
	var buf bytes.Buffer
	for _, part := range parts {
		data, ok := upload.parts[part.Number]
		if !ok {
			return nil, nil, fmt.Errorf("part %d was never uploaded", part.Number)
		}
		if md5ETag(data) != part.ETag {
			return nil, nil, fmt.Errorf("part %d: etag mismatch", part.Number)
		}
		buf.Write(data)
	}
	f.objects[key] = buf.Bytes()
	delete(f.uploads, uploadID)
	f.completes++
	return f.commitGate, f.committed, nil
}

func (f *FakeStorage) AbortMultipartUpload(_ context.Context, key, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts = append(f.aborts, uploadID)
	if upload, ok := f.uploads[uploadID]; ok && upload.key == key {
		delete(f.uploads, uploadID)
	}
	return nil
}

// HoldParts makes every subsequent part upload wait for ReleaseParts.
func (f *FakeStorage) HoldParts() {
	f.mu.Lock()
	f.held = true
	f.mu.Unlock()
}

// ReleaseParts lets n held part uploads proceed.
func (f *FakeStorage) ReleaseParts(n int) {
	for range n {
		f.tokens <- struct{}{}
	}
}

// ReleaseAll stops holding parts back.
func (f *FakeStorage) ReleaseAll() {
	f.mu.Lock()
	f.held = false
	f.mu.Unlock()
	for {
		select {
		case f.tokens <- struct{}{}:
		default:
			return
		}
	}
}

// HoldCommits makes CompleteMultipartUpload store the object and then block
// until release is called. The returned channel receives the key of every
// object committed while held.
func (f *FakeStorage) HoldCommits() (committed <-chan string, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.commitGate = gate
	f.committed = make(chan string, 16)
	var once sync.Once
	return f.committed, func() { once.Do(func() { close(gate) }) }
}

// FailCreate makes the next CreateMultipartUpload return err.
func (f *FakeStorage) FailCreate(err error) {
	f.mu.Lock()
	f.failCreate = err
	f.mu.Unlock()
}

// FailPart makes the next upload of part number return err.
func (f *FakeStorage) FailPart(number int32, err error) {
	f.mu.Lock()
	f.failParts[number] = err
	f.mu.Unlock()
}

// Object returns the content of a completed upload.
func (f *FakeStorage) Object(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

// PartCalls returns every part number UploadPart was called with, in call order.
func (f *FakeStorage) PartCalls() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.partCalls)
}

// Creates returns how many multipart uploads were created.
func (f *FakeStorage) Creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// Completes returns how many multipart uploads were completed.
func (f *FakeStorage) Completes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completes
}

// Aborts returns the upload IDs passed to AbortMultipartUpload.
func (f *FakeStorage) Aborts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.aborts)
}

// MaxInFlight returns the highest number of concurrently running part uploads.
func (f *FakeStorage) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// OpenUploads returns how many multipart uploads are neither completed nor aborted.
func (f *FakeStorage) OpenUploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

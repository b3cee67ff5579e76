package controller_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"uplink/internal/controller"
	"uplink/internal/logging"
	"uplink/internal/queue"
	"uplink/internal/snapshot"
	"uplink/internal/testsupport"
	"uplink/internal/transfer"
)

const waitTimeout = 5 * time.Second

var fixedNow = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

type fakeHandle struct {
	cancels atomic.Int32
}

func (h *fakeHandle) Cancel() { h.cancels.Add(1) }

type startCall struct {
	req    transfer.Request
	cb     transfer.Callbacks
	handle *fakeHandle
}

// scriptedStarter records session starts and lets tests fire their
// callbacks by hand.
type scriptedStarter struct {
	mu        sync.Mutex
	starts    []*startCall
	startErr  error
	discarded []string
}

func (s *scriptedStarter) Start(_ context.Context, req transfer.Request, cb transfer.Callbacks) (transfer.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return nil, s.startErr
	}
	call := &startCall{req: req, cb: cb, handle: &fakeHandle{}}
	s.starts = append(s.starts, call)
	return call.handle, nil
}

func (s *scriptedStarter) Discard(_ context.Context, _ string, cp *transfer.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append(s.discarded, cp.UploadID)
	return nil
}

func (s *scriptedStarter) failStarts(err error) {
	s.mu.Lock()
	s.startErr = err
	s.mu.Unlock()
}

func (s *scriptedStarter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.starts)
}

func (s *scriptedStarter) call(t *testing.T, i int) *startCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.starts) {
		t.Fatalf("expected at least %d session starts, got %d", i+1, len(s.starts))
	}
	return s.starts[i]
}

func (s *scriptedStarter) discards() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.discarded...)
}

type memSource struct {
	*bytes.Reader
	name string
}

func (m memSource) Name() string { return m.name }

type harness struct {
	ctrl    *controller.Controller
	starter *scriptedStarter
	kv      *testsupport.FlakyKV

	mu     sync.Mutex
	files  map[string][]byte
	nextID int
}

func newHarness(t *testing.T, opts ...controller.Option) *harness {
	t.Helper()
	h := &harness{
		starter: &scriptedStarter{},
		kv:      testsupport.NewFlakyKV(),
		files:   make(map[string][]byte),
	}
	base := []controller.Option{
		controller.WithClock(func() time.Time { return fixedNow }),
		controller.WithIDGenerator(func() string {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.nextID++
			return fmt.Sprintf("task-%d", h.nextID)
		}),
		controller.WithOpener(h.open),
	}
	adapter := snapshot.NewAdapter(h.kv, "", logging.NewNop())
	h.ctrl = controller.New(h.starter, adapter, logging.NewNop(), append(base, opts...)...)
	return h
}

func (h *harness) source(name string, size int) controller.Source {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := "/data/" + name
	h.mu.Lock()
	h.files[path] = data
	h.mu.Unlock()
	return memSource{Reader: bytes.NewReader(data), name: path}
}

func (h *harness) open(path string) (controller.Source, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return memSource{Reader: bytes.NewReader(data), name: path}, nil
}

func (h *harness) enqueue(t *testing.T, name string, size int) string {
	t.Helper()
	id, err := h.ctrl.Enqueue(context.Background(), h.source(name, size), "uploads/"+name)
	if err != nil {
		t.Fatalf("Enqueue(%s) returned error: %v", name, err)
	}
	return id
}

func (h *harness) task(t *testing.T, id string) queue.Task {
	t.Helper()
	task, ok := h.ctrl.Task(id)
	if !ok {
		t.Fatalf("task %s not found", id)
	}
	return task
}

func (h *harness) persisted(t *testing.T) []snapshot.Record {
	t.Helper()
	value, ok, err := h.kv.Read(context.Background(), snapshot.DefaultKey)
	if err != nil || !ok {
		t.Fatalf("read snapshot: ok=%v err=%v", ok, err)
	}
	records, version, err := snapshot.Decode([]byte(value))
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if version != snapshot.CurrentVersion {
		t.Fatalf("snapshot version = %d, want %d", version, snapshot.CurrentVersion)
	}
	return records
}

func checkpointOf(uploadID string, partSize int64, sizes ...int64) *transfer.Checkpoint {
	cp := &transfer.Checkpoint{UploadID: uploadID, PartSize: partSize}
	for i, size := range sizes {
		cp.Add(transfer.Part{Number: int32(i + 1), ETag: fmt.Sprintf(`"etag-%d"`, i+1), Size: size})
	}
	return cp
}

func ids(tasks []queue.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func recordIDs(records []snapshot.Record) []string {
	out := make([]string, len(records))
	for i, record := range records {
		out[i] = record.ID
	}
	return out
}

func assertInvariants(t *testing.T, tasks []queue.Task) {
	t.Helper()
	for _, task := range tasks {
		if task.CurrentSize < 0 || task.CurrentSize > task.Size {
			t.Fatalf("task %s: current size %d outside [0, %d]", task.ID, task.CurrentSize, task.Size)
		}
		if task.Size > 0 && task.Status != queue.StatusCompleted {
			want := float64(task.CurrentSize) / float64(task.Size)
			if diff := task.Progress - want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("task %s: progress %v, want %v", task.ID, task.Progress, want)
			}
		}
		if task.Handle != nil {
			t.Fatalf("task %s: copies must not carry a session handle", task.ID)
		}
	}
}

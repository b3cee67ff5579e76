package queue_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"uplink/internal/queue"
	"uplink/internal/transfer"
)

type stubHandle struct{ cancels int }

func (h *stubHandle) Cancel() { h.cancels++ }

var now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTask(t *testing.T, id string, size int64) queue.Task {
	t.Helper()
	task, err := queue.NewTask(id, id+".bin", "uploads/"+id+".bin", "/tmp/"+id+".bin", size, now)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	return task
}

func checkpoint(parts ...int64) *transfer.Checkpoint {
	cp := &transfer.Checkpoint{UploadID: "u-1", PartSize: 512}
	for i, size := range parts {
		cp.Add(transfer.Part{Number: int32(i + 1), ETag: "e", Size: size})
	}
	return cp
}

func assertInvariants(t *testing.T, task queue.Task) {
	t.Helper()
	if task.CurrentSize < 0 || task.CurrentSize > task.Size {
		t.Fatalf("currentSize %d outside [0, %d]", task.CurrentSize, task.Size)
	}
	if task.Size > 0 {
		want := float64(task.CurrentSize) / float64(task.Size)
		if math.Abs(task.Progress-want) > 1e-9 {
			t.Fatalf("progress %v != currentSize/size %v", task.Progress, want)
		}
	}
	if (task.Handle != nil) != (task.Status == queue.StatusUploading) {
		t.Fatalf("handle presence does not match status %s", task.Status)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want queue.Status
		ok   bool
	}{
		{"uploading", queue.StatusUploading, true},
		{" Paused ", queue.StatusPaused, true},
		{"COMPLETED", queue.StatusCompleted, true},
		{"0", "", false},
		{"", "", false},
		{"failed", "", false},
	}
	for _, tt := range tests {
		got, ok := queue.ParseStatus(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCanTransition(t *testing.T) {
	legal := map[[2]queue.Status]bool{
		{queue.StatusUploading, queue.StatusCompleted}: true,
		{queue.StatusUploading, queue.StatusPaused}:    true,
		{queue.StatusPaused, queue.StatusUploading}:    true,
	}
	for _, from := range queue.AllStatuses() {
		for _, to := range queue.AllStatuses() {
			want := legal[[2]queue.Status{from, to}]
			if got := queue.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestNewTaskStartsUploadingAtZero(t *testing.T) {
	task := newTask(t, "a", 1024)
	if task.Status != queue.StatusUploading || task.CurrentSize != 0 || task.Progress != 0 {
		t.Fatalf("unexpected new task: %+v", task)
	}
	if task.Checkpoint != nil {
		t.Fatal("new task must not carry a checkpoint")
	}

	if _, err := queue.NewTask("", "t", "k", "", 1, now); !errors.Is(err, queue.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask for empty id, got %v", err)
	}
	if _, err := queue.NewTask("id", "t", "k", "", -1, now); !errors.Is(err, queue.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask for negative size, got %v", err)
	}
}

func TestApplyCheckpointRecomputesFromAcceptedBytes(t *testing.T) {
	task := newTask(t, "a", 1024)
	handle := &stubHandle{}
	task.Attach(handle, 1)

	task.ApplyCheckpoint(checkpoint(512), now)
	if task.CurrentSize != 512 || task.Progress != 0.5 {
		t.Fatalf("after one part: current=%d progress=%v", task.CurrentSize, task.Progress)
	}

	// A stale, smaller checkpoint delivered later still wins: the value is
	// recomputed, never accumulated.
	task.ApplyCheckpoint(checkpoint(), now)
	if task.CurrentSize != 0 {
		t.Fatalf("expected recompute from checkpoint, got %d", task.CurrentSize)
	}

	task.ApplyCheckpoint(checkpoint(512, 512, 512), now)
	if task.CurrentSize != 1024 {
		t.Fatalf("expected clamp to size, got %d", task.CurrentSize)
	}
	if task.Status != queue.StatusUploading {
		t.Fatal("progress must not change status")
	}
	assertInvariants(t, task)
}

func TestPauseResumeComplete(t *testing.T) {
	task := newTask(t, "a", 1024)
	task.Attach(&stubHandle{}, 1)
	task.ApplyCheckpoint(checkpoint(512), now)

	if err := task.MarkPaused(now); err != nil {
		t.Fatalf("MarkPaused: %v", err)
	}
	assertInvariants(t, task)
	if task.CurrentSize != 512 || task.Checkpoint == nil {
		t.Fatal("pause must keep checkpoint and currentSize")
	}

	var transitionErr *queue.TransitionError
	if err := task.MarkPaused(now); !errors.As(err, &transitionErr) {
		t.Fatalf("second pause should be refused, got %v", err)
	}

	if err := task.MarkUploading(&stubHandle{}, 2, now); err != nil {
		t.Fatalf("MarkUploading: %v", err)
	}
	if task.SessionID != 2 || task.CurrentSize != 512 {
		t.Fatalf("resume lost state: %+v", task)
	}
	assertInvariants(t, task)

	if err := task.MarkCompleted(now); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if task.Progress != 1 || task.CurrentSize != 1024 || task.Handle != nil {
		t.Fatalf("unexpected completed task: %+v", task)
	}
	assertInvariants(t, task)

	if err := task.MarkUploading(&stubHandle{}, 3, now); err == nil {
		t.Fatal("completed task must not resume")
	}
	if err := task.MarkPaused(now); err == nil {
		t.Fatal("completed task must not pause")
	}
	if err := task.MarkCompleted(now); err != nil {
		t.Fatalf("repeated completion should be a no-op, got %v", err)
	}
}

func TestCompletionWinsOverPause(t *testing.T) {
	task := newTask(t, "a", 100)
	task.Attach(&stubHandle{}, 1)
	if err := task.MarkPaused(now); err != nil {
		t.Fatalf("MarkPaused: %v", err)
	}
	if err := task.MarkCompleted(now); err != nil {
		t.Fatalf("MarkCompleted after pause: %v", err)
	}
	if task.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", task.Status)
	}
}

func TestCloneDetachesHandleAndCheckpoint(t *testing.T) {
	task := newTask(t, "a", 1024)
	task.Attach(&stubHandle{}, 7)
	task.ApplyCheckpoint(checkpoint(512), now)

	clone := task.Clone()
	if clone.Handle != nil || clone.SessionID != 0 {
		t.Fatal("clone must not carry the live handle")
	}
	clone.Checkpoint.Add(transfer.Part{Number: 2, Size: 512})
	if task.Checkpoint.CommittedBytes() != 512 {
		t.Fatal("clone shares checkpoint with original")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		task        queue.Task
		wantStatus  queue.Status
		wantCurrent int64
		wantErr     bool
	}{
		{
			name:        "uploading without session becomes paused",
			task:        queue.Task{ID: "a", Size: 1024, Status: queue.StatusUploading, Checkpoint: checkpoint(512)},
			wantStatus:  queue.StatusPaused,
			wantCurrent: 512,
		},
		{
			name:        "current size clamped",
			task:        queue.Task{ID: "b", Size: 100, CurrentSize: 500, Status: queue.StatusPaused},
			wantStatus:  queue.StatusPaused,
			wantCurrent: 100,
		},
		{
			name:        "negative current size clamped",
			task:        queue.Task{ID: "c", Size: 100, CurrentSize: -5, Status: queue.StatusPaused},
			wantStatus:  queue.StatusPaused,
			wantCurrent: 0,
		},
		{
			name:        "completed is full",
			task:        queue.Task{ID: "d", Size: 100, CurrentSize: 10, Status: queue.StatusCompleted},
			wantStatus:  queue.StatusCompleted,
			wantCurrent: 100,
		},
		{name: "unknown status", task: queue.Task{ID: "e", Size: 1, Status: "1"}, wantErr: true},
		{name: "negative size", task: queue.Task{ID: "f", Size: -1, Status: queue.StatusPaused}, wantErr: true},
		{name: "missing id", task: queue.Task{Size: 1, Status: queue.StatusPaused}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			err := task.Normalize()
			if tt.wantErr {
				if !errors.Is(err, queue.ErrInvalidTask) {
					t.Fatalf("expected ErrInvalidTask, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if task.Status != tt.wantStatus || task.CurrentSize != tt.wantCurrent {
				t.Fatalf("got status=%s current=%d, want %s/%d", task.Status, task.CurrentSize, tt.wantStatus, tt.wantCurrent)
			}
			assertInvariants(t, task)
		})
	}
}

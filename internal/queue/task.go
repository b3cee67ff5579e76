package queue

import (
	"fmt"
	"strings"
	"time"

	"uplink/internal/transfer"
)

// Task is one file's transfer lifecycle.
type Task struct {
	ID              string
	Title           string
	DestinationPath string
	// SourcePath is the local file the bytes are read from. It lets a later
	// process reopen the source when resuming.
	SourcePath  string
	Size        int64
	CurrentSize int64
	Progress    float64
	Status      Status
	Checkpoint  *transfer.Checkpoint
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Handle is the live session of an uploading task. It is never persisted.
	Handle transfer.Handle
	// SessionID tags the session Handle belongs to so events from a
	// superseded session can be told apart. Zero when no session is live.
	SessionID uint64
}

// NewTask returns an uploading task with no bytes sent.
func NewTask(id, title, destinationPath, sourcePath string, size int64, now time.Time) (Task, error) {
	if strings.TrimSpace(id) == "" {
		return Task{}, fmt.Errorf("%w: empty id", ErrInvalidTask)
	}
	if strings.TrimSpace(destinationPath) == "" {
		return Task{}, fmt.Errorf("%w: empty destination path", ErrInvalidTask)
	}
	if size < 0 {
		return Task{}, fmt.Errorf("%w: negative size %d", ErrInvalidTask, size)
	}
	return Task{
		ID:              id,
		Title:           title,
		DestinationPath: destinationPath,
		SourcePath:      sourcePath,
		Size:            size,
		Status:          StatusUploading,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ApplyCheckpoint stores cp and recomputes CurrentSize and Progress from the
// bytes it records as accepted. Status is left alone.
func (t *Task) ApplyCheckpoint(cp *transfer.Checkpoint, now time.Time) {
	t.Checkpoint = cp.Clone()
	t.CurrentSize = min(cp.CommittedBytes(), t.Size)
	t.Progress = progressOf(t.CurrentSize, t.Size, t.Status)
	t.UpdatedAt = now
}

// MarkCompleted records that the object store committed the upload. It is
// accepted from Paused as well as Uploading: the store's completion is the
// authoritative event and wins over a pause that raced with the last part.
// Completing a completed task is a no-op.
func (t *Task) MarkCompleted(now time.Time) error {
	switch t.Status {
	case StatusCompleted:
		return nil
	case StatusUploading, StatusPaused:
	default:
		return &TransitionError{ID: t.ID, From: t.Status, To: StatusCompleted}
	}
	t.Status = StatusCompleted
	t.CurrentSize = t.Size
	t.Progress = 1
	t.release()
	t.UpdatedAt = now
	return nil
}

// MarkPaused moves an uploading task to Paused and drops its handle. The
// checkpoint and CurrentSize are kept. Callers cancel the handle first.
func (t *Task) MarkPaused(now time.Time) error {
	if !CanTransition(t.Status, StatusPaused) {
		return &TransitionError{ID: t.ID, From: t.Status, To: StatusPaused}
	}
	t.Status = StatusPaused
	t.release()
	t.UpdatedAt = now
	return nil
}

// MarkUploading attaches a freshly started session to a paused task.
func (t *Task) MarkUploading(handle transfer.Handle, sessionID uint64, now time.Time) error {
	if !CanTransition(t.Status, StatusUploading) {
		return &TransitionError{ID: t.ID, From: t.Status, To: StatusUploading}
	}
	t.Status = StatusUploading
	t.Attach(handle, sessionID)
	t.UpdatedAt = now
	return nil
}

// Attach binds a live session to the task without changing its status.
// Enqueue uses it for the session started together with the task.
func (t *Task) Attach(handle transfer.Handle, sessionID uint64) {
	t.Handle = handle
	t.SessionID = sessionID
}

// Percent returns Progress scaled to 0..100 without rounding.
func (t *Task) Percent() float64 {
	return t.Progress * 100
}

// Clone returns a detached copy: the checkpoint is deep copied and the live
// session handle is dropped.
func (t *Task) Clone() Task {
	clone := *t
	clone.Checkpoint = t.Checkpoint.Clone()
	clone.release()
	return clone
}

// Normalize repairs size and progress fields restored from storage so the
// task satisfies 0 <= CurrentSize <= Size and Progress == CurrentSize/Size.
// A task without a live session cannot be uploading, so Uploading becomes
// Paused.
func (t *Task) Normalize() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTask)
	}
	if t.Size < 0 {
		return fmt.Errorf("%w: task %s has negative size %d", ErrInvalidTask, t.ID, t.Size)
	}
	status, ok := ParseStatus(string(t.Status))
	if !ok {
		return fmt.Errorf("%w: task %s has unknown status %q", ErrInvalidTask, t.ID, t.Status)
	}
	t.Status = status
	if t.Status == StatusUploading && t.Handle == nil {
		t.Status = StatusPaused
	}
	if t.Checkpoint != nil && t.Status != StatusCompleted {
		t.CurrentSize = t.Checkpoint.CommittedBytes()
	}
	t.CurrentSize = max(0, min(t.CurrentSize, t.Size))
	if t.Status == StatusCompleted {
		t.CurrentSize = t.Size
	}
	t.Progress = progressOf(t.CurrentSize, t.Size, t.Status)
	return nil
}

func (t *Task) release() {
	t.Handle = nil
	t.SessionID = 0
}

func progressOf(current, size int64, status Status) float64 {
	if status == StatusCompleted {
		return 1
	}
	if size <= 0 {
		return 0
	}
	return float64(current) / float64(size)
}

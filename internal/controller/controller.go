package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"uplink/internal/logging"
	"uplink/internal/progress"
	"uplink/internal/queue"
	"uplink/internal/transfer"
)

// Starter launches and discards transfer sessions. *transfer.Uploader
// satisfies it.
type Starter interface {
	Start(ctx context.Context, req transfer.Request, cb transfer.Callbacks) (transfer.Handle, error)
	Discard(ctx context.Context, key string, cp *transfer.Checkpoint) error
}

// Store persists queue snapshots. *snapshot.Adapter satisfies it.
type Store interface {
	Save(ctx context.Context, tasks []queue.Task) error
	Load(ctx context.Context) []queue.Task
}

// Source is a local file handed to Enqueue. Name returns its path, which is
// kept so a later process can reopen the file on resume.
type Source interface {
	transfer.Source
	Name() string
}

// Controller owns the upload queue and routes every change through a single
// lock followed by one snapshot save.
type Controller struct {
	starter Starter
	store   Store
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	opts    options

	mu       sync.Mutex
	queue    *queue.Queue
	sessions uint64
	changed  chan struct{}

	discards sync.WaitGroup
}

// New constructs a controller with an empty queue. Call Restore to load the
// persisted snapshot.
func New(starter Starter, store Store, logger *slog.Logger, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller{
		starter: starter,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "controller"),
		sampler: logging.NewProgressSampler(5),
		opts:    o,
		queue:   queue.New(),
		changed: make(chan struct{}),
	}
}

// Enqueue adds src as a new uploading task and starts its session. The task
// is kept even when the session cannot start; it is then Paused and the
// returned error wraps ErrSessionStart.
func (c *Controller) Enqueue(ctx context.Context, src Source, destinationPath string) (string, error) {
	if src == nil {
		return "", fmt.Errorf("%w: source is nil", queue.ErrInvalidTask)
	}
	now := c.opts.now()
	task, err := queue.NewTask(c.opts.newID(), filepath.Base(src.Name()), strings.TrimSpace(destinationPath), src.Name(), src.Size(), now)
	if err != nil {
		closeSource(src)
		return "", err
	}

	c.mu.Lock()
	stored, err := c.queue.Add(task)
	if err != nil {
		c.mu.Unlock()
		closeSource(src)
		return "", err
	}
	logger := c.taskLogger(stored)
	handle, session, startErr := c.launchLocked(ctx, stored, src)
	if startErr != nil {
		_ = stored.MarkPaused(now)
		logger.Warn("upload session failed to start; task paused", logging.Error(startErr))
	} else {
		stored.Attach(handle, session)
		logger.Info("upload queued",
			logging.String("title", stored.Title),
			logging.Int64("size", stored.Size),
		)
	}
	saveErr := c.saveLocked(ctx)
	changed := stored.Clone()
	c.mu.Unlock()

	c.notify(changed)
	return changed.ID, errors.Join(startErr, saveErr)
}

// Pause stops the session of an uploading task and marks it Paused. Unknown
// IDs and tasks that are not uploading are left alone.
func (c *Controller) Pause(ctx context.Context, id string) error {
	c.mu.Lock()
	task, ok := c.queue.Get(id)
	if !ok || task.Status != queue.StatusUploading {
		c.mu.Unlock()
		return nil
	}
	c.pauseLocked(task)
	err := c.saveLocked(ctx)
	changed := task.Clone()
	c.mu.Unlock()

	c.notify(changed)
	return err
}

// PauseAll pauses every uploading task with a single save and returns how
// many were paused.
func (c *Controller) PauseAll(ctx context.Context) (int, error) {
	c.mu.Lock()
	changed, err := c.pauseAllLocked(ctx)
	c.mu.Unlock()

	c.notify(changed...)
	return len(changed), err
}

// Resume starts a new session for a paused task, seeded with its checkpoint.
// Unknown IDs and tasks that are not paused are left alone.
func (c *Controller) Resume(ctx context.Context, id string) error {
	c.mu.Lock()
	task, ok := c.queue.Get(id)
	if !ok || task.Status != queue.StatusPaused {
		c.mu.Unlock()
		return nil
	}
	if err := c.resumeLocked(ctx, task); err != nil {
		c.mu.Unlock()
		return err
	}
	err := c.saveLocked(ctx)
	changed := task.Clone()
	c.mu.Unlock()

	c.notify(changed)
	return err
}

// StartAll resumes every paused task. Tasks that fail to start stay Paused
// and their errors are joined into the result.
func (c *Controller) StartAll(ctx context.Context) (int, error) {
	c.mu.Lock()
	var (
		errs    []error
		changed []queue.Task
	)
	for _, task := range c.queue.Items() {
		if task.Status != queue.StatusPaused {
			continue
		}
		if err := c.resumeLocked(ctx, task); err != nil {
			errs = append(errs, err)
			continue
		}
		changed = append(changed, task.Clone())
	}
	if len(changed) > 0 {
		errs = append(errs, c.saveLocked(ctx))
	}
	c.mu.Unlock()

	c.notify(changed...)
	return len(changed), errors.Join(errs...)
}

// Tasks returns copies of every task in queue order.
func (c *Controller) Tasks() []queue.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Tasks()
}

// Task returns a copy of the task with id.
func (c *Controller) Task(id string) (queue.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.queue.Get(id)
	if !ok {
		return queue.Task{}, false
	}
	return task.Clone(), true
}

// Summary aggregates the current queue.
func (c *Controller) Summary() progress.Summary {
	return progress.Summarize(c.Tasks())
}

// Restore replaces the in-memory queue with the persisted snapshot and
// returns the number of tasks loaded. A missing or corrupt snapshot yields an
// empty queue.
func (c *Controller) Restore(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, task := range c.queue.Items() {
		if task.Handle != nil {
			return 0, ErrRestoreBusy
		}
	}
	restored := queue.New()
	for _, task := range c.store.Load(ctx) {
		if _, err := restored.Add(task); err != nil {
			c.logger.Warn("skipping restored task", logging.String(logging.FieldTaskID, task.ID), logging.Error(err))
		}
	}
	c.queue = restored
	c.broadcastLocked()
	c.logger.Info("queue restored", logging.Int("tasks", restored.Len()))
	return restored.Len(), nil
}

// Shutdown pauses every running upload, saves the queue and waits for
// pending multipart aborts until ctx expires.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	changed, err := c.pauseAllLocked(ctx)
	if len(changed) == 0 {
		err = c.saveLocked(ctx)
	}
	c.mu.Unlock()
	c.notify(changed...)

	done := make(chan struct{})
	go func() {
		c.discards.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("shutdown before abandoned uploads were aborted", logging.Error(ctx.Err()))
	}
	c.logger.Info("controller stopped", logging.Int("paused", len(changed)))
	return err
}

// WaitIdle blocks until no task is uploading or ctx is done.
func (c *Controller) WaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		busy := false
		for _, task := range c.queue.Items() {
			if task.Status == queue.StatusUploading {
				busy = true
				break
			}
		}
		changed := c.changed
		c.mu.Unlock()

		if !busy {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) pauseAllLocked(ctx context.Context) ([]queue.Task, error) {
	var changed []queue.Task
	for _, task := range c.queue.Items() {
		if task.Status != queue.StatusUploading {
			continue
		}
		c.pauseLocked(task)
		changed = append(changed, task.Clone())
	}
	if len(changed) == 0 {
		return nil, nil
	}
	return changed, c.saveLocked(ctx)
}

func (c *Controller) pauseLocked(task *queue.Task) {
	if task.Handle != nil {
		task.Handle.Cancel()
	}
	if err := task.MarkPaused(c.opts.now()); err != nil {
		c.logger.Warn("pause rejected", logging.Error(err))
		return
	}
	c.sampler.Forget(task.ID)
	c.taskLogger(task).Info("upload paused", logging.Int64("current_size", task.CurrentSize))
}

func (c *Controller) resumeLocked(ctx context.Context, task *queue.Task) error {
	src, err := c.opts.open(task.SourcePath)
	if err != nil {
		return fmt.Errorf("%w: task %s: %w", ErrSessionStart, task.ID, err)
	}
	if src.Size() != task.Size {
		closeSource(src)
		return fmt.Errorf("%w: task %s: source size changed from %d to %d bytes", ErrSessionStart, task.ID, task.Size, src.Size())
	}
	handle, session, err := c.launchLocked(ctx, task, src)
	if err != nil {
		return err
	}
	if err := task.MarkUploading(handle, session, c.opts.now()); err != nil {
		handle.Cancel()
		return err
	}
	c.taskLogger(task).Info("upload resumed", logging.Int64("current_size", task.CurrentSize))
	return nil
}

// launchLocked starts a session for task and returns it with its token. The
// source is closed when the session cannot start.
func (c *Controller) launchLocked(ctx context.Context, task *queue.Task, src Source) (transfer.Handle, uint64, error) {
	c.sessions++
	session := c.sessions
	handle, err := c.starter.Start(logging.WithTaskID(ctx, task.ID), transfer.Request{
		Key:        task.DestinationPath,
		Source:     src,
		Size:       task.Size,
		Checkpoint: task.Checkpoint,
	}, c.callbacks(task.ID, session))
	if err != nil {
		closeSource(src)
		return nil, 0, fmt.Errorf("%w: task %s: %w", ErrSessionStart, task.ID, err)
	}
	return handle, session, nil
}

// saveLocked writes the snapshot and wakes WaitIdle callers. The save is not
// tied to ctx cancellation: the mutation it records has already happened.
func (c *Controller) saveLocked(ctx context.Context) error {
	c.broadcastLocked()
	if err := c.store.Save(context.WithoutCancel(ctx), c.queue.Tasks()); err != nil {
		c.logger.Error("queue snapshot save failed",
			logging.Int("tasks", c.queue.Len()),
			logging.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (c *Controller) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) notify(tasks ...queue.Task) {
	if c.opts.observer == nil {
		return
	}
	for _, task := range tasks {
		c.opts.observer(task)
	}
}

func (c *Controller) taskLogger(task *queue.Task) *slog.Logger {
	return c.logger.With(logging.Args(logging.TaskAttrs(task.ID, task.DestinationPath)...)...)
}

func closeSource(src Source) {
	if closer, ok := src.(io.Closer); ok {
		_ = closer.Close()
	}
}

package controller

import (
	"context"
	"errors"

	"uplink/internal/logging"
	"uplink/internal/progress"
	"uplink/internal/queue"
	"uplink/internal/transfer"
)

func (c *Controller) callbacks(id string, session uint64) transfer.Callbacks {
	return transfer.Callbacks{
		Progress: func(cp *transfer.Checkpoint) { c.onProgress(id, session, cp) },
		Complete: func() { c.onComplete(id, session) },
		Fail:     func(err error) { c.onFail(id, session, err) },
	}
}

// onProgress applies a checkpoint reported by the task's current session.
func (c *Controller) onProgress(id string, session uint64, cp *transfer.Checkpoint) {
	c.mu.Lock()
	task, ok := c.queue.Get(id)
	if !ok || task.Status != queue.StatusUploading || task.SessionID != session {
		c.mu.Unlock()
		return
	}
	task.ApplyCheckpoint(cp, c.opts.now())
	_ = c.saveLocked(context.Background())
	changed := task.Clone()
	logger := c.taskLogger(task)
	c.mu.Unlock()

	if c.sampler.ShouldLog(id, changed.Percent()) {
		logger.Info("upload progress",
			logging.Float64("percent", progress.Percentage(changed)),
			logging.String("transferred", progress.Transferred(changed)),
		)
	}
	c.notify(changed)
}

// onComplete applies a completion from any session of the task, including
// one that was paused or replaced after it committed the object.
func (c *Controller) onComplete(id string, session uint64) {
	c.mu.Lock()
	task, ok := c.queue.Get(id)
	if !ok || task.Status == queue.StatusCompleted {
		c.mu.Unlock()
		return
	}
	if task.Handle != nil && task.SessionID != session {
		task.Handle.Cancel()
	}
	wasPaused := task.Status == queue.StatusPaused
	if err := task.MarkCompleted(c.opts.now()); err != nil {
		c.mu.Unlock()
		c.logger.Warn("completion rejected", logging.Error(err))
		return
	}
	_ = c.saveLocked(context.Background())
	changed := task.Clone()
	logger := c.taskLogger(task)
	c.mu.Unlock()

	c.sampler.Forget(id)
	logger.Info("upload completed",
		logging.Int64("size", changed.Size),
		logging.Bool("after_pause", wasPaused),
	)
	c.notify(changed)
}

// onFail pauses the task, keeping its checkpoint so a later resume continues
// from the last accepted part.
func (c *Controller) onFail(id string, session uint64, cause error) {
	c.mu.Lock()
	task, ok := c.queue.Get(id)
	if !ok || task.Status != queue.StatusUploading || task.SessionID != session {
		c.mu.Unlock()
		return
	}
	if err := task.MarkPaused(c.opts.now()); err != nil {
		c.mu.Unlock()
		c.logger.Warn("failure transition rejected", logging.Error(err))
		return
	}
	_ = c.saveLocked(context.Background())
	changed := task.Clone()
	logger := c.taskLogger(task)
	c.mu.Unlock()

	attrs := []logging.Attr{
		logging.Int64("current_size", changed.CurrentSize),
		logging.Error(cause),
	}
	var chunkErr *transfer.ChunkError
	if errors.As(cause, &chunkErr) && chunkErr.Part > 0 {
		attrs = append(attrs, logging.Int(logging.FieldPartNumber, int(chunkErr.Part)))
	}
	c.sampler.Forget(id)
	logger.Warn("upload interrupted; task paused", logging.Args(attrs...)...)
	c.notify(changed)
}

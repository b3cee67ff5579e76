package controller

import (
	"context"
	"fmt"

	"uplink/internal/logging"
	"uplink/internal/queue"
	"uplink/internal/transfer"
)

// Clear removes every task filter matches in one step, saves once and
// returns how many were removed. Running sessions of removed tasks are
// cancelled and their unfinished multipart uploads are aborted in the
// background.
func (c *Controller) Clear(ctx context.Context, filter queue.Filter) (int, error) {
	if _, err := queue.ParseFilter(filter.String()); err != nil {
		return 0, err
	}

	c.mu.Lock()
	removed := c.queue.Remove(filter)
	for _, task := range removed {
		if task.Handle != nil {
			task.Handle.Cancel()
		}
		c.sampler.Forget(task.ID)
		if task.Status != queue.StatusCompleted && !task.Checkpoint.Empty() {
			c.discard(ctx, task.ID, task.DestinationPath, task.Checkpoint.Clone())
		}
	}
	err := c.saveLocked(ctx)
	c.mu.Unlock()

	c.logger.Info("queue cleared",
		logging.String("filter", filter.String()),
		logging.Int("removed", len(removed)),
	)
	if err != nil {
		return len(removed), fmt.Errorf("clear %s: %w", filter, err)
	}
	return len(removed), nil
}

func (c *Controller) discard(ctx context.Context, id, key string, cp *transfer.Checkpoint) {
	ctx = context.WithoutCancel(ctx)
	c.discards.Add(1)
	go func() {
		defer c.discards.Done()
		logger := c.logger.With(logging.Args(logging.TaskAttrs(id, key)...)...)
		if err := c.starter.Discard(ctx, key, cp); err != nil {
			logger.Warn("abort of abandoned multipart upload failed",
				logging.String(logging.FieldUploadID, cp.UploadID),
				logging.Error(err),
			)
			return
		}
		logger.Debug("abandoned multipart upload aborted", logging.String(logging.FieldUploadID, cp.UploadID))
	}()
}

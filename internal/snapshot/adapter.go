package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"uplink/internal/kvstore"
	"uplink/internal/logging"
	"uplink/internal/queue"
)

// DefaultKey is the storage key the queue is saved under.
const DefaultKey = "uploadList"

// Adapter saves and loads the queue snapshot. It holds no business logic.
type Adapter struct {
	store  kvstore.Store
	key    string
	logger *slog.Logger
}

// NewAdapter binds an adapter to store under key (DefaultKey when empty).
func NewAdapter(store kvstore.Store, key string, logger *slog.Logger) *Adapter {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &Adapter{
		store:  store,
		key:    key,
		logger: logging.NewComponentLogger(logger, "snapshot"),
	}
}

// Key returns the storage key in use.
func (a *Adapter) Key() string { return a.key }

// Save writes the full snapshot of tasks.
func (a *Adapter) Save(ctx context.Context, tasks []queue.Task) error {
	if a.store == nil {
		return errors.New("snapshot: no store configured")
	}
	data, err := Encode(tasks)
	if err != nil {
		return err
	}
	if err := a.store.Write(ctx, a.key, string(data)); err != nil {
		return fmt.Errorf("save snapshot %q: %w", a.key, err)
	}
	return nil
}

// Load reads the snapshot. It never returns an error: any problem yields an
// empty queue and a warning.
func (a *Adapter) Load(ctx context.Context) []queue.Task {
	if a.store == nil {
		return nil
	}
	value, ok, err := a.store.Read(ctx, a.key)
	if err != nil {
		a.logger.Warn("snapshot unreadable; starting with an empty queue",
			logging.String("snapshot_key", a.key),
			logging.Error(err),
		)
		return nil
	}
	if !ok {
		a.logger.Debug("no snapshot stored", logging.String("snapshot_key", a.key))
		return nil
	}

	records, version, err := Decode([]byte(value))
	if err != nil {
		a.logger.Warn("snapshot corrupt; starting with an empty queue",
			logging.String("snapshot_key", a.key),
			logging.Int("version", version),
			logging.Error(err),
		)
		return nil
	}

	tasks := Tasks(records, func(id string, err error) {
		a.logger.Warn("skipping invalid snapshot record",
			logging.String(logging.FieldTaskID, id),
			logging.Error(err),
		)
	})
	if version < CurrentVersion {
		a.logger.Info("migrated legacy snapshot",
			logging.Int("from_version", version),
			logging.Int("tasks", len(tasks)),
		)
	}
	return tasks
}

package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"uplink/internal/config"
	"uplink/internal/controller"
	"uplink/internal/kvstore"
	"uplink/internal/logging"
	"uplink/internal/snapshot"
	"uplink/internal/storage"
	"uplink/internal/transfer"
)

var (
	// ErrLocked is returned when another process owns the state directory.
	ErrLocked = errors.New("queue is in use by another uplink process")
	// ErrOffline is reported by sessions started without an object store.
	ErrOffline = errors.New("object store not configured")
)

// Option configures optional Workspace behavior.
type Option func(*options)

type options struct {
	client     storage.Client
	offline    bool
	ctrlOption []controller.Option
}

// WithStorageClient uses client instead of building one from the config.
func WithStorageClient(client storage.Client) Option {
	return func(o *options) { o.client = client }
}

// WithOffline opens the queue without contacting the object store. Listing
// and clearing work; starting a session fails with ErrOffline.
func WithOffline() Option {
	return func(o *options) { o.offline = true }
}

// WithControllerOptions forwards options to the controller.
func WithControllerOptions(opts ...controller.Option) Option {
	return func(o *options) { o.ctrlOption = append(o.ctrlOption, opts...) }
}

// Workspace is an opened queue.
type Workspace struct {
	cfg        *config.Config
	logger     *slog.Logger
	lock       *flock.Flock
	store      kvstore.Store
	controller *controller.Controller
	online     bool
	closed     atomic.Bool
}

// Open acquires the state directory lock, opens the durable store, connects
// the object store and restores the persisted queue.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Workspace, error) {
	if cfg == nil {
		return nil, errors.New("workspace: config is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.NewComponentLogger(logger, "workspace")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, cfg.LockPath())
	}

	store, err := kvstore.Open(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	starter, online, err := newStarter(ctx, cfg, logger, o)
	if err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, err
	}

	adapter := snapshot.NewAdapter(store, cfg.Queue.SnapshotKey, logger)
	ctrl := controller.New(starter, adapter, logger, o.ctrlOption...)
	if _, err := ctrl.Restore(ctx); err != nil {
		_ = store.Close()
		_ = lock.Unlock()
		return nil, err
	}

	logger.Debug("workspace opened",
		logging.String("state_dir", cfg.Paths.StateDir),
		logging.String("backend", cfg.Queue.Backend),
		logging.Bool("online", online),
	)
	return &Workspace{
		cfg:        cfg,
		logger:     logger,
		lock:       lock,
		store:      store,
		controller: ctrl,
		online:     online,
	}, nil
}

func newStarter(ctx context.Context, cfg *config.Config, logger *slog.Logger, o options) (controller.Starter, bool, error) {
	client := o.client
	if client == nil {
		if o.offline {
			return offlineStarter{}, false, nil
		}
		if err := cfg.ValidateStorage(); err != nil {
			return nil, false, err
		}
		built, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, false, fmt.Errorf("connect object store: %w", err)
		}
		client = built
	}
	return transfer.NewUploader(client, transfer.Options{
		PartSize:    cfg.PartSizeBytes(),
		Concurrency: cfg.Storage.Concurrency,
		Logger:      logger,
	}), true, nil
}

// Controller returns the queue controller.
func (w *Workspace) Controller() *controller.Controller { return w.controller }

// Config returns the configuration the workspace was opened with.
func (w *Workspace) Config() *config.Config { return w.cfg }

// Online reports whether sessions can reach the object store.
func (w *Workspace) Online() bool { return w.online }

// Close pauses running uploads, saves the queue, closes the store and
// releases the lock. Calling Close again is a no-op.
func (w *Workspace) Close(ctx context.Context) error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	shutdownErr := w.controller.Shutdown(ctx)
	storeErr := w.store.Close()
	if err := w.lock.Unlock(); err != nil {
		w.logger.Warn("failed to release queue lock", logging.Error(err))
	}
	return errors.Join(shutdownErr, storeErr)
}

type offlineStarter struct{}

func (offlineStarter) Start(context.Context, transfer.Request, transfer.Callbacks) (transfer.Handle, error) {
	return nil, ErrOffline
}

func (offlineStarter) Discard(context.Context, string, *transfer.Checkpoint) error {
	return ErrOffline
}

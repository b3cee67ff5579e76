package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"uplink/internal/config"
	"uplink/internal/logging"
	"uplink/internal/workspace"
)

// storageMode says whether a command needs the object store.
type storageMode int

const (
	// storageOffline never contacts the object store.
	storageOffline storageMode = iota
	// storageOptional connects when the storage settings are complete.
	storageOptional
	// storageRequired fails when the storage settings are incomplete.
	storageRequired
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withWorkspace opens the queue, runs fn and closes the queue again. Close
// pauses whatever fn left running and saves, so it runs even when fn fails.
func (c *commandContext) withWorkspace(cmd *cobra.Command, mode storageMode, fn func(*workspace.Workspace) error, opts ...workspace.Option) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	switch mode {
	case storageOffline:
		opts = append(opts, workspace.WithOffline())
	case storageOptional:
		if cfg.ValidateStorage() != nil {
			opts = append(opts, workspace.WithOffline())
		}
	}

	ws, err := workspace.Open(cmd.Context(), cfg, logger, opts...)
	if err != nil {
		return wrapOpenError(err)
	}
	runErr := fn(ws)
	closeErr := ws.Close(context.WithoutCancel(cmd.Context()))
	return errors.Join(runErr, closeErr)
}

func wrapOpenError(err error) error {
	if errors.Is(err, workspace.ErrLocked) {
		return fmt.Errorf("open queue: %w; wait for the running upload to finish or interrupt it", err)
	}
	return fmt.Errorf("open queue: %w", err)
}

// waitForUploads blocks until no upload is running. SIGINT and SIGTERM end
// the wait early; the caller's Close then pauses and saves.
func waitForUploads(cmd *cobra.Command, ws *workspace.Workspace) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := ws.Controller().WaitIdle(ctx)
	if err != nil && cmd.Context().Err() == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Interrupted, pausing running uploads")
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

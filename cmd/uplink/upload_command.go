package main

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"uplink/internal/controller"
	"uplink/internal/queue"
	"uplink/internal/transfer"
	"uplink/internal/workspace"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var destPrefix string

	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Queue files for upload and transfer them",
		Long: "Queue each FILE under the destination prefix and upload it in the foreground.\n" +
			"Interrupting the command pauses the uploads; resume them with 'uplink queue start-all'.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newProgressPrinter(cmd.OutOrStdout())
			return ctx.withWorkspace(cmd, storageRequired, func(ws *workspace.Workspace) error {
				ids, enqueueErr := enqueueFiles(cmd, ws, args, destPrefix)
				if len(ids) == 0 {
					return enqueueErr
				}
				if err := waitForUploads(cmd, ws); err != nil {
					return err
				}
				return errors.Join(enqueueErr, reportOutcome(cmd, ws, ids))
			}, workspace.WithControllerOptions(controller.WithObserver(printer.observe)))
		},
	}

	cmd.Flags().StringVarP(&destPrefix, "dest", "d", "", "Destination key prefix inside the bucket")
	return cmd
}

// enqueueFiles adds every file to the queue and returns the IDs of the tasks
// created. A file that cannot be opened is reported and skipped.
func enqueueFiles(cmd *cobra.Command, ws *workspace.Workspace, files []string, prefix string) ([]string, error) {
	var (
		ids  []string
		errs []error
	)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %s: %w", file, err))
			continue
		}
		src, err := transfer.OpenFile(abs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id, err := ws.Controller().Enqueue(cmd.Context(), src, destinationKey(prefix, abs))
		if id != "" {
			ids = append(ids, id)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("queue %s: %w", file, err))
		}
	}
	return ids, errors.Join(errs...)
}

// destinationKey joins prefix and the file's base name into an object key
// without a leading slash.
func destinationKey(prefix, file string) string {
	key := path.Join(filepath.ToSlash(strings.TrimSpace(prefix)), filepath.Base(file))
	return strings.TrimLeft(key, "/")
}

// reportOutcome prints how the tasks in ids ended and fails when any of them
// is not completed.
func reportOutcome(cmd *cobra.Command, ws *workspace.Workspace, ids []string) error {
	completed, paused := 0, 0
	for _, id := range ids {
		task, ok := ws.Controller().Task(id)
		if !ok {
			continue
		}
		switch task.Status {
		case queue.StatusCompleted:
			completed++
		case queue.StatusPaused:
			paused++
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Completed %s\n", pluralize(completed, "upload", "uploads"))
	if paused > 0 {
		return fmt.Errorf("%s paused before completing; retry with 'uplink queue start-all'", pluralize(paused, "upload", "uploads"))
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"uplink/internal/controller"
	"uplink/internal/queue"
	"uplink/internal/workspace"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the upload queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueResumeCommand(ctx))
	queueCmd.AddCommand(newQueueStartAllCommand(ctx))
	queueCmd.AddCommand(newQueuePauseCommand(ctx))
	queueCmd.AddCommand(newQueuePauseAllCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status queue.Status
			if strings.TrimSpace(statusFilter) != "" {
				parsed, ok := queue.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of %s)", statusFilter, statusNames())
				}
				status = parsed
			}
			return ctx.withWorkspace(cmd, storageOffline, func(ws *workspace.Workspace) error {
				out := cmd.OutOrStdout()
				tasks := filterByStatus(ws.Controller().Tasks(), status)
				if len(tasks) == 0 {
					if status != "" {
						fmt.Fprintf(out, "No %s uploads\n", status)
						return nil
					}
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprintln(out, renderTaskTable(tasks, shouldColorize(out)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Only show uploads with this status")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, storageOffline, func(ws *workspace.Workspace) error {
				out := cmd.OutOrStdout()
				summary := ws.Controller().Summary()
				fmt.Fprintln(out, summaryLine(summary))
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Count"},
					buildStatusRows(summary, shouldColorize(out)),
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume ID...",
		Short: "Resume paused uploads and wait for them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newProgressPrinter(cmd.OutOrStdout())
			return ctx.withWorkspace(cmd, storageRequired, func(ws *workspace.Workspace) error {
				ctrl := ws.Controller()
				out := cmd.OutOrStdout()
				var (
					started []string
					errs    []error
				)
				for _, id := range args {
					task, ok := ctrl.Task(id)
					switch {
					case !ok:
						fmt.Fprintf(out, "Task %s not found\n", id)
						continue
					case task.Status != queue.StatusPaused:
						fmt.Fprintf(out, "Task %s is %s\n", id, task.Status)
						continue
					}
					if err := ctrl.Resume(cmd.Context(), id); err != nil {
						errs = append(errs, err)
						if !errors.Is(err, controller.ErrPersistence) {
							continue
						}
					}
					started = append(started, id)
				}
				if len(started) == 0 {
					return errors.Join(errs...)
				}
				if err := waitForUploads(cmd, ws); err != nil {
					return err
				}
				return errors.Join(append(errs, reportOutcome(cmd, ws, started))...)
			}, workspace.WithControllerOptions(controller.WithObserver(printer.observe)))
		},
	}
}

func newQueueStartAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start-all",
		Short: "Resume every paused upload and wait for them",
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := newProgressPrinter(cmd.OutOrStdout())
			return ctx.withWorkspace(cmd, storageRequired, func(ws *workspace.Workspace) error {
				ctrl := ws.Controller()
				var paused []string
				for _, task := range ctrl.Tasks() {
					if task.Status == queue.StatusPaused {
						paused = append(paused, task.ID)
					}
				}
				count, startErr := ctrl.StartAll(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "Started %s\n", pluralize(count, "upload", "uploads"))
				if count == 0 {
					return startErr
				}
				if err := waitForUploads(cmd, ws); err != nil {
					return err
				}
				return errors.Join(startErr, reportOutcome(cmd, ws, paused))
			}, workspace.WithControllerOptions(controller.WithObserver(printer.observe)))
		},
	}
}

func newQueuePauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause ID...",
		Short: "Pause uploads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, storageOptional, func(ws *workspace.Workspace) error {
				ctrl := ws.Controller()
				out := cmd.OutOrStdout()
				var errs []error
				for _, id := range args {
					task, ok := ctrl.Task(id)
					switch {
					case !ok:
						fmt.Fprintf(out, "Task %s not found\n", id)
						continue
					case task.Status.IsTerminal():
						fmt.Fprintf(out, "Task %s is already completed\n", id)
						continue
					}
					if err := ctrl.Pause(cmd.Context(), id); err != nil {
						errs = append(errs, err)
					}
					fmt.Fprintf(out, "Task %s paused\n", id)
				}
				return errors.Join(errs...)
			})
		},
	}
}

func newQueuePauseAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause-all",
		Short: "Pause every running upload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, storageOptional, func(ws *workspace.Workspace) error {
				if _, err := ws.Controller().PauseAll(cmd.Context()); err != nil {
					return err
				}
				paused := ws.Controller().Summary().Paused
				fmt.Fprintf(cmd.OutOrStdout(), "%s paused\n", pluralize(paused, "upload", "uploads"))
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var (
		completedOnly  bool
		incompleteOnly bool
		taskID         string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove uploads from the queue",
		Long: "Remove uploads from the queue. Without flags every upload is removed.\n" +
			"Unfinished multipart uploads are aborted on the object store when it is configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := queue.ClearAll()
			switch {
			case completedOnly:
				filter = queue.ClearCompleted()
			case incompleteOnly:
				filter = queue.ClearIncomplete()
			case strings.TrimSpace(taskID) != "":
				filter = queue.ClearID(strings.TrimSpace(taskID))
			}
			return ctx.withWorkspace(cmd, storageOptional, func(ws *workspace.Workspace) error {
				removed, err := ws.Controller().Clear(cmd.Context(), filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if filter.Kind == queue.FilterID && removed == 0 {
					fmt.Fprintf(out, "Task %s not found\n", filter.ID)
					return nil
				}
				fmt.Fprintf(out, "Cleared %s\n", pluralize(removed, "upload", "uploads"))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Remove only completed uploads")
	cmd.Flags().BoolVar(&incompleteOnly, "incomplete", false, "Remove only unfinished uploads")
	cmd.Flags().StringVar(&taskID, "id", "", "Remove the upload with this ID")
	cmd.MarkFlagsMutuallyExclusive("completed", "incomplete", "id")
	return cmd
}

func statusNames() string {
	statuses := queue.AllStatuses()
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}

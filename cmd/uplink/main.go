package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"uplink/internal/workspace"
)

const (
	exitFailure     = 1
	exitQueueLocked = 3
	exitInterrupted = 130
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "uplink: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode lets scripts tell an interrupted run (uploads paused and saved)
// and a busy queue apart from ordinary failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, workspace.ErrLocked):
		return exitQueueLocked
	default:
		return exitFailure
	}
}

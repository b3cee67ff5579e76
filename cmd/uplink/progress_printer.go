package main

import (
	"fmt"
	"io"
	"sync"

	"uplink/internal/progress"
	"uplink/internal/queue"
)

// progressStep is the percentage granularity of printed progress lines.
const progressStep = 10

type printedState struct {
	status queue.Status
	bucket int
}

// progressPrinter writes one line per status change and per progressStep
// of progress. Observer calls arrive from several goroutines.
type progressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	last     map[string]printedState
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{
		out:      out,
		colorize: shouldColorize(out),
		last:     make(map[string]printedState),
	}
}

func (p *progressPrinter) observe(task queue.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := printedState{
		status: task.Status,
		bucket: int(progress.Percentage(task)) / progressStep,
	}
	if previous, ok := p.last[task.ID]; ok && previous == state {
		return
	}
	p.last[task.ID] = state
	fmt.Fprintf(p.out, "%-10s %s %s (%s)\n",
		renderStatus(task.Status, p.colorize),
		task.Title,
		formatPercentage(task),
		progress.Transferred(task),
	)
}

// Package progress derives display values from queue tasks: percentages,
// human readable sizes and completed/total summaries. Every function is pure
// and leaves its input untouched.
package progress

import (
	"fmt"
	"math"

	"uplink/internal/queue"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Summary aggregates a queue for the transmission panel header.
type Summary struct {
	Completed        int
	Total            int
	Uploading        int
	Paused           int
	TransferredBytes int64
	TotalBytes       int64
}

// Incomplete returns the number of tasks that have not finished.
func (s Summary) Incomplete() int {
	return s.Total - s.Completed
}

// Percentage returns the task's progress scaled to 0..100 and rounded to two
// decimals.
func Percentage(task queue.Task) float64 {
	return math.Round(task.Progress*100*100) / 100
}

// Summarize counts tasks per status and sums their byte totals.
func Summarize(tasks []queue.Task) Summary {
	summary := Summary{Total: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case queue.StatusCompleted:
			summary.Completed++
		case queue.StatusUploading:
			summary.Uploading++
		case queue.StatusPaused:
			summary.Paused++
		}
		summary.TransferredBytes += task.CurrentSize
		summary.TotalBytes += task.Size
	}
	return summary
}

// RenderSize formats a byte count with two decimals on a 1024 base, from B
// up to TB. Zero and negative counts render as "0 B".
func RenderSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}

// Transferred renders "<current> / <size>" for a task.
func Transferred(task queue.Task) string {
	return RenderSize(task.CurrentSize) + " / " + RenderSize(task.Size)
}

// TwoDecimal formats v with exactly two decimals. NaN and infinities render
// as "0".
func TwoDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return fmt.Sprintf("%.2f", v)
}

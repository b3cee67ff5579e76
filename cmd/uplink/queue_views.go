package main

import (
	"fmt"
	"strconv"

	"uplink/internal/progress"
	"uplink/internal/queue"
)

func buildTaskRows(tasks []queue.Task, colorize bool) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, []string{
			task.ID,
			task.Title,
			task.DestinationPath,
			renderStatus(task.Status, colorize),
			formatPercentage(task),
			progress.Transferred(task),
		})
	}
	return rows
}

func renderTaskTable(tasks []queue.Task, colorize bool) string {
	return renderTable(
		[]string{"ID", "Title", "Destination", "Status", "Progress", "Transferred"},
		buildTaskRows(tasks, colorize),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func filterByStatus(tasks []queue.Task, status queue.Status) []queue.Task {
	if status == "" {
		return tasks
	}
	filtered := make([]queue.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == status {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

func buildStatusRows(summary progress.Summary, colorize bool) [][]string {
	counts := map[queue.Status]int{
		queue.StatusUploading: summary.Uploading,
		queue.StatusPaused:    summary.Paused,
		queue.StatusCompleted: summary.Completed,
	}
	rows := make([][]string, 0, len(counts))
	for _, status := range queue.AllStatuses() {
		rows = append(rows, []string{
			renderStatus(status, colorize),
			strconv.Itoa(counts[status]),
		})
	}
	return rows
}

func summaryLine(summary progress.Summary) string {
	return fmt.Sprintf("Completed %d/%d, %s / %s transferred",
		summary.Completed,
		summary.Total,
		progress.RenderSize(summary.TransferredBytes),
		progress.RenderSize(summary.TotalBytes),
	)
}

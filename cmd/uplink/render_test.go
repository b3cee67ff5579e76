package main

import (
	"bytes"
	"strings"
	"testing"

	"uplink/internal/queue"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := map[queue.Status]string{
		queue.StatusUploading: "Uploading",
		queue.StatusPaused:    "Paused",
		queue.StatusCompleted: "Completed",
		"":                    "",
	}
	for status, want := range cases {
		if got := formatStatusLabel(status); got != want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestRenderStatusColorizes(t *testing.T) {
	plain := renderStatus(queue.StatusCompleted, false)
	if plain != "Completed" {
		t.Fatalf("unexpected plain label %q", plain)
	}
	colored := renderStatus(queue.StatusCompleted, true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected green label, got %q", colored)
	}
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestProgressPrinterSkipsUnchangedBuckets(t *testing.T) {
	var out bytes.Buffer
	printer := newProgressPrinter(&out)
	task := queue.Task{ID: "a", Title: "movie.mkv", Size: 1000, Status: queue.StatusUploading}

	for _, current := range []int64{0, 10, 50, 120, 130, 1000} {
		task.CurrentSize = current
		task.Progress = float64(current) / float64(task.Size)
		printer.observe(task)
	}
	task.Status = queue.StatusCompleted
	printer.observe(task)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// 0%, 10% bucket (120/130 share it), 100% uploading, completed.
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[len(lines)-1], "Completed") {
		t.Fatalf("expected final completion line, got %q", lines[len(lines)-1])
	}
}

func TestRenderTaskTable(t *testing.T) {
	tasks := []queue.Task{{
		ID:              "task-1",
		Title:           "report.pdf",
		DestinationPath: "docs/report.pdf",
		Size:            2048,
		CurrentSize:     1024,
		Progress:        0.5,
		Status:          queue.StatusPaused,
	}}
	out := renderTaskTable(tasks, false)
	for _, want := range []string{"task-1", "report.pdf", "docs/report.pdf", "Paused", "50.00%", "1.00 KB / 2.00 KB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"uplink/internal/progress"
	"uplink/internal/queue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// formatStatusLabel turns "uploading" into "Uploading". A Caser keeps state,
// so each call gets its own.
func formatStatusLabel(status queue.Status) string {
	value := strings.TrimSpace(string(status))
	if value == "" {
		return ""
	}
	return cases.Title(language.English).String(value)
}

func statusColor(status queue.Status) string {
	switch status {
	case queue.StatusCompleted:
		return ansiGreen
	case queue.StatusPaused:
		return ansiYellow
	case queue.StatusUploading:
		return ansiBlue
	default:
		return ""
	}
}

func renderStatus(status queue.Status, colorize bool) string {
	label := formatStatusLabel(status)
	if !colorize {
		return label
	}
	if color := statusColor(status); color != "" {
		return color + label + ansiReset
	}
	return label
}

func formatPercentage(task queue.Task) string {
	return progress.TwoDecimal(progress.Percentage(task)) + "%"
}

func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

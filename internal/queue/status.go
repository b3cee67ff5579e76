package queue

import "strings"

// Status represents the lifecycle of an upload task.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

var allStatuses = []Status{
	StatusUploading,
	StatusPaused,
	StatusCompleted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

type statusTransition struct {
	from Status
	to   Status
}

var legalTransitions = map[statusTransition]struct{}{
	{from: StatusUploading, to: StatusCompleted}: {},
	{from: StatusUploading, to: StatusPaused}:    {},
	{from: StatusPaused, to: StatusUploading}:    {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to Status) bool {
	_, ok := legalTransitions[statusTransition{from: from, to: to}]
	return ok
}

// IsTerminal reports whether the status can only be left by removing the task.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

package queue

import (
	"fmt"
	"strings"
)

// FilterKind selects which tasks a clear operation removes.
type FilterKind string

const (
	// FilterAll removes every task.
	FilterAll FilterKind = "all"
	// FilterCompleted removes finished tasks and keeps everything else.
	FilterCompleted FilterKind = "completed"
	// FilterIncomplete removes unfinished tasks and keeps completed ones.
	FilterIncomplete FilterKind = "incomplete"
	// FilterID removes exactly the task with the given ID.
	FilterID FilterKind = "id"
)

// Filter describes one clear operation.
type Filter struct {
	Kind FilterKind
	ID   string
}

func ClearAll() Filter        { return Filter{Kind: FilterAll} }
func ClearCompleted() Filter  { return Filter{Kind: FilterCompleted} }
func ClearIncomplete() Filter { return Filter{Kind: FilterIncomplete} }
func ClearID(id string) Filter {
	return Filter{Kind: FilterID, ID: id}
}

// ParseFilter accepts "all", "completed", "incomplete" and "id:<ID>". The
// longer "completed-only" and "incomplete-only" spellings are accepted too.
func ParseFilter(value string) (Filter, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "all":
		return ClearAll(), nil
	case "completed", "completed-only":
		return ClearCompleted(), nil
	case "incomplete", "incomplete-only":
		return ClearIncomplete(), nil
	}
	if prefix, id, ok := strings.Cut(strings.TrimSpace(value), ":"); ok && strings.EqualFold(prefix, "id") {
		if id = strings.TrimSpace(id); id != "" {
			return ClearID(id), nil
		}
	}
	return Filter{}, fmt.Errorf("%w: %q", ErrUnknownFilter, value)
}

// Matches reports whether the filter removes task.
func (f Filter) Matches(task *Task) bool {
	switch f.Kind {
	case FilterAll:
		return true
	case FilterCompleted:
		return task.Status == StatusCompleted
	case FilterIncomplete:
		return task.Status != StatusCompleted
	case FilterID:
		return task.ID == f.ID
	default:
		return false
	}
}

func (f Filter) String() string {
	if f.Kind == FilterID {
		return "id:" + f.ID
	}
	return string(f.Kind)
}

package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when a task with the same ID is already queued.
	ErrDuplicateID = errors.New("duplicate task id")
	// ErrUnknownFilter is returned by ParseFilter for unrecognized filter names.
	ErrUnknownFilter = errors.New("unknown clear filter")
	// ErrInvalidTask is returned when a task violates the size or progress invariants.
	ErrInvalidTask = errors.New("invalid task")
)

// TransitionError reports a status change the state machine does not allow.
type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: illegal transition %s -> %s", e.ID, e.From, e.To)
}

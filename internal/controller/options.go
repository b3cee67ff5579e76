package controller

import (
	"time"

	"github.com/google/uuid"

	"uplink/internal/queue"
	"uplink/internal/transfer"
)

// Opener reopens the local source of a paused task.
type Opener func(path string) (Source, error)

// Observer receives a copy of a task after each applied change. It runs on
// the goroutine that caused the change, outside the controller lock.
type Observer func(task queue.Task)

// Option configures optional Controller behavior.
type Option func(*options)

type options struct {
	open     Opener
	observer Observer
	now      func() time.Time
	newID    func() string
}

// WithOpener replaces the function used to reopen sources on resume.
func WithOpener(open Opener) Option {
	return func(o *options) {
		if open != nil {
			o.open = open
		}
	}
}

// WithObserver registers a change observer.
func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides task ID allocation (used in tests).
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func defaultOptions() options {
	return options{
		open:  openFile,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func openFile(path string) (Source, error) {
	f, err := transfer.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

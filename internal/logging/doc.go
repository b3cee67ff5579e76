// Package logging assembles the slog loggers used by uplink.
//
// It owns the console and JSON handlers, fans records out to the terminal and
// the rolling log file, and exposes helpers that tag log lines with the task
// and object key being transferred. A no-op logger is provided for tests and
// for wiring code that runs before configuration is available.
package logging

// Package transfer runs resumable multipart upload sessions.
//
// An Uploader starts one session per task. Each session creates (or reuses)
// a multipart upload, sends the parts the Checkpoint does not yet record with
// bounded parallelism, and reports every accepted part back as a fresh
// Checkpoint. Cancelling the returned Handle stops network activity; the last
// reported Checkpoint stays valid, so starting again with it continues where
// the previous session stopped.
package transfer

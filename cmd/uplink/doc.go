// Package main implements the uplink command line interface.
//
// The CLI drives resumable multipart uploads to S3 compatible storage. Each
// invocation opens the persisted queue under the configured state directory,
// applies the requested operation and saves the queue again on exit. Commands
// that start transfers (upload, queue resume, queue start-all) stay in the
// foreground until every running upload has completed or paused; an
// interrupt pauses the running uploads so a later invocation can resume them
// from their last committed part.
//
// The exit status is 130 after an interrupt and 3 when another uplink
// process holds the queue; any other failure exits with 1.
package main

// Package kvstore provides the durable key/value surface the queue snapshot
// is written to.
//
// Store is intentionally dumb: it reads and writes opaque string values under
// string keys and knows nothing about tasks. Three backends exist. SQLite
// keeps every key in one WAL-mode database with busy retries. File writes one
// file per key through an atomic rename guarded by an advisory lock. Memory
// serves tests and ephemeral runs.
package kvstore

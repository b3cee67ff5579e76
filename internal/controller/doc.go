// Package controller is the only writer of the upload queue.
//
// Every public operation and every session event runs as one critical
// section: read the current task, apply one state transition, save the whole
// snapshot, release the lock. Sessions are tagged with a token when they
// start; progress and failure events from a session that has since been
// paused or replaced are dropped. A completion event is always applied
// because the object is already committed in the store, which is how a
// completion racing with a pause resolves to Completed.
package controller

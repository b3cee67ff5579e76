// Package queue models upload tasks and the ordered queue that holds them.
//
// A Task moves through a closed set of statuses: uploading, paused and
// completed. The legal moves are uploading to completed, uploading to paused
// and paused back to uploading; the Task methods refuse anything else.
// Progress is always derived from the checkpoint's accepted byte count, never
// accumulated, so out of order part acknowledgements cannot skew it.
//
// Queue is a plain in-memory collection. It enforces one task per ID and
// implements the clear filters; it does not persist or synchronize anything,
// callers (the controller) own locking and snapshots.
package queue

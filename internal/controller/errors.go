package controller

import "errors"

var (
	// ErrSessionStart reports that a transfer could not begin. The task is
	// left Paused and can be resumed later.
	ErrSessionStart = errors.New("upload session could not start")
	// ErrPersistence reports that the snapshot could not be saved. The
	// in-memory queue keeps the mutation.
	ErrPersistence = errors.New("queue snapshot not saved")
	// ErrRestoreBusy is returned by Restore while sessions are running.
	ErrRestoreBusy = errors.New("cannot restore queue while uploads are running")
)

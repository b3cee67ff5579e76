package transfer

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned by Start when a request cannot describe an upload.
var ErrInvalidRequest = errors.New("invalid transfer request")

// ChunkError reports a failure while talking to the object store. Part is the
// failing part number, or zero for create and complete calls.
type ChunkError struct {
	Part int32
	Err  error
}

func (e *ChunkError) Error() string {
	if e.Part == 0 {
		return fmt.Sprintf("multipart transfer: %v", e.Err)
	}
	return fmt.Sprintf("part %d: %v", e.Part, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

package transfer

import (
	"fmt"
	"os"
)

// File is a local file opened as an upload source. The session that receives
// it closes it when the transfer ends.
type File struct {
	*os.File
	size int64
}

// OpenFile opens path for reading and records its size.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload source: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat upload source: %w", err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("upload source %s is not a regular file", path)
	}
	return &File{File: f, size: info.Size()}, nil
}

// Size returns the file length at open time.
func (f *File) Size() int64 { return f.size }

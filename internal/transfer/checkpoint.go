package transfer

import (
	"slices"

	"uplink/internal/storage"
)

// Part records one part the object store accepted.
type Part struct {
	Number int32  `json:"number"`
	ETag   string `json:"etag"`
	Size   int64  `json:"size"`
}

// Checkpoint is the resume token of a multipart upload. Parts are kept in
// the order they were accepted, which is not necessarily part order.
type Checkpoint struct {
	UploadID string `json:"uploadId"`
	PartSize int64  `json:"partSize"`
	Parts    []Part `json:"parts,omitempty"`
}

// CommittedBytes sums the sizes of all accepted parts.
func (c *Checkpoint) CommittedBytes() int64 {
	if c == nil {
		return 0
	}
	var total int64
	for _, part := range c.Parts {
		total += part.Size
	}
	return total
}

// Has reports whether part number was already accepted.
func (c *Checkpoint) Has(number int32) bool {
	if c == nil {
		return false
	}
	for _, part := range c.Parts {
		if part.Number == number {
			return true
		}
	}
	return false
}

// Add records an accepted part, replacing an earlier entry for the same number.
func (c *Checkpoint) Add(part Part) {
	for i := range c.Parts {
		if c.Parts[i].Number == part.Number {
			c.Parts[i] = part
			return
		}
	}
	c.Parts = append(c.Parts, part)
}

// Clone returns a deep copy, or nil for a nil checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Parts = slices.Clone(c.Parts)
	return &clone
}

// Empty reports whether the checkpoint carries no upload at all.
func (c *Checkpoint) Empty() bool {
	return c == nil || c.UploadID == ""
}

// completedParts returns the accepted parts ordered by part number, ready for
// completing the multipart upload.
func (c *Checkpoint) completedParts() []storage.CompletedPart {
	sorted := slices.Clone(c.Parts)
	slices.SortFunc(sorted, func(a, b Part) int { return int(a.Number) - int(b.Number) })
	out := make([]storage.CompletedPart, len(sorted))
	for i, part := range sorted {
		out[i] = storage.CompletedPart{Number: part.Number, ETag: part.ETag}
	}
	return out
}

// PartCount returns how many parts a file of size bytes needs. An empty file
// is sent as a single empty part.
func PartCount(size, partSize int64) int32 {
	if size <= 0 || partSize <= 0 {
		return 1
	}
	return int32((size + partSize - 1) / partSize)
}

// partRange returns the offset and length of part number within size.
func partRange(number int32, size, partSize int64) (int64, int64) {
	offset := int64(number-1) * partSize
	length := min(partSize, size-offset)
	if length < 0 {
		length = 0
	}
	return offset, length
}

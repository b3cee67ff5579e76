package snapshot

import (
	"encoding/json"
	"fmt"

	"uplink/internal/queue"
	"uplink/internal/transfer"
)

// Legacy status codes of the unversioned layout.
const (
	legacyUploading = "0"
	legacyCompleted = "1"
	legacyPaused    = "-1"
)

type legacyRecord struct {
	UploadID    string            `json:"uploadId"`
	Title       string            `json:"title"`
	Path        string            `json:"path"`
	Name        string            `json:"name"`
	Size        int64             `json:"size"`
	CurrentSize int64             `json:"currentSize"`
	Progress    float64           `json:"progress"`
	Status      json.RawMessage   `json:"status"`
	Checkpoint  *legacyCheckpoint `json:"checkpoint"`
}

type legacyCheckpoint struct {
	UploadID  string `json:"uploadId"`
	Name      string `json:"name"`
	FileSize  int64  `json:"fileSize"`
	PartSize  int64  `json:"partSize"`
	DoneParts []struct {
		Number int32  `json:"number"`
		ETag   string `json:"etag"`
	} `json:"doneParts"`
}

func decodeLegacy(data []byte) ([]Record, error) {
	var legacy []legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decode legacy snapshot: %w", err)
	}
	records := make([]Record, 0, len(legacy))
	for _, item := range legacy {
		record := Record{
			ID:          item.UploadID,
			Title:       item.Title,
			Size:        item.Size,
			CurrentSize: item.CurrentSize,
			Progress:    item.Progress,
			Status:      legacyStatus(item.Status),
		}
		record.DestinationPath = item.Path
		if record.DestinationPath == "" {
			record.DestinationPath = item.Name
		}
		if cp := item.Checkpoint; cp != nil {
			if record.DestinationPath == "" {
				record.DestinationPath = cp.Name
			}
			if record.Size == 0 {
				record.Size = cp.FileSize
			}
			record.Checkpoint = migrateCheckpoint(cp, record.Size)
		}
		if record.Title == "" {
			record.Title = record.DestinationPath
		}
		records = append(records, record)
	}
	return records, nil
}

// legacyStatus maps the numeric string codes ("0", "1", "-1", or bare
// numbers) onto status names. Unknown codes pass through and are rejected
// by normalization.
func legacyStatus(raw json.RawMessage) string {
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		var number json.Number
		if err := json.Unmarshal(raw, &number); err != nil {
			return ""
		}
		code = number.String()
	}
	switch code {
	case legacyUploading:
		return string(queue.StatusUploading)
	case legacyCompleted:
		return string(queue.StatusCompleted)
	case legacyPaused:
		return string(queue.StatusPaused)
	default:
		return code
	}
}

// migrateCheckpoint rebuilds part sizes, which the legacy checkpoint did not
// record, from the part size and the file size.
func migrateCheckpoint(cp *legacyCheckpoint, size int64) *transfer.Checkpoint {
	if cp.UploadID == "" || cp.PartSize <= 0 {
		return nil
	}
	out := &transfer.Checkpoint{UploadID: cp.UploadID, PartSize: cp.PartSize}
	total := transfer.PartCount(size, cp.PartSize)
	for _, part := range cp.DoneParts {
		if part.Number < 1 || part.Number > total {
			continue
		}
		length := min(cp.PartSize, size-int64(part.Number-1)*cp.PartSize)
		out.Add(transfer.Part{Number: part.Number, ETag: part.ETag, Size: max(length, 0)})
	}
	return out
}

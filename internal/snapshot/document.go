package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"uplink/internal/queue"
	"uplink/internal/transfer"
)

// CurrentVersion is written into every saved document.
const CurrentVersion = 1

// ErrUnsupportedVersion marks documents written by a newer uplink.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Document is the persisted form of the queue.
type Document struct {
	Version int      `json:"version"`
	Tasks   []Record `json:"tasks"`
}

// Record is one persisted task. The live session handle has no field here.
type Record struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DestinationPath string               `json:"destinationPath"`
	SourcePath      string               `json:"sourcePath,omitempty"`
	Size            int64                `json:"size"`
	CurrentSize     int64                `json:"currentSize"`
	Progress        float64              `json:"progress"`
	Status          string               `json:"status"`
	Checkpoint      *transfer.Checkpoint `json:"checkpoint,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// Encode renders tasks as a current version document.
func Encode(tasks []queue.Task) ([]byte, error) {
	doc := Document{Version: CurrentVersion, Tasks: make([]Record, 0, len(tasks))}
	for _, task := range tasks {
		doc.Tasks = append(doc.Tasks, Record{
			ID:              task.ID,
			Title:           task.Title,
			DestinationPath: task.DestinationPath,
			SourcePath:      task.SourcePath,
			Size:            task.Size,
			CurrentSize:     task.CurrentSize,
			Progress:        task.Progress,
			Status:          string(task.Status),
			Checkpoint:      task.Checkpoint.Clone(),
			CreatedAt:       task.CreatedAt.UTC(),
			UpdatedAt:       task.UpdatedAt.UTC(),
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a stored value into records and reports the document
// version. A top level JSON array is the legacy version 0 layout.
func Decode(data []byte) ([]Record, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, 0, errors.New("decode snapshot: empty value")
	}
	if trimmed[0] == '[' {
		records, err := decodeLegacy(trimmed)
		if err != nil {
			return nil, 0, err
		}
		return records, 0, nil
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version < 1 || doc.Version > CurrentVersion {
		return nil, doc.Version, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return doc.Tasks, doc.Version, nil
}

// Tasks converts records into normalized tasks. Invalid records and repeated
// IDs (after the first) are skipped and reported through skip.
func Tasks(records []Record, skip func(id string, err error)) []queue.Task {
	seen := make(map[string]struct{}, len(records))
	tasks := make([]queue.Task, 0, len(records))
	for _, record := range records {
		task := queue.Task{
			ID:              record.ID,
			Title:           record.Title,
			DestinationPath: record.DestinationPath,
			SourcePath:      record.SourcePath,
			Size:            record.Size,
			CurrentSize:     record.CurrentSize,
			Progress:        record.Progress,
			Status:          queue.Status(record.Status),
			Checkpoint:      record.Checkpoint.Clone(),
			CreatedAt:       record.CreatedAt,
			UpdatedAt:       record.UpdatedAt,
		}
		if err := task.Normalize(); err != nil {
			if skip != nil {
				skip(record.ID, err)
			}
			continue
		}
		if _, dup := seen[task.ID]; dup {
			if skip != nil {
				skip(record.ID, fmt.Errorf("%w: %s", queue.ErrDuplicateID, task.ID))
			}
			continue
		}
		seen[task.ID] = struct{}{}
		tasks = append(tasks, task)
	}
	return tasks
}

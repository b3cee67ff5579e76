package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTaskID is the standardized structured logging key for upload task identifiers.
	FieldTaskID = "task_id"
	// FieldObjectKey is the standardized structured logging key for destination object keys.
	FieldObjectKey = "key"
	// FieldUploadID is the standardized structured logging key for multipart upload identifiers.
	FieldUploadID = "upload_id"
	// FieldPartNumber is the standardized structured logging key for multipart part numbers.
	FieldPartNumber = "part"
)

type contextKey int

const (
	taskIDKey contextKey = iota
	objectKeyKey
)

// WithTaskID stores the task identifier on ctx for later log enrichment.
func WithTaskID(ctx context.Context, id string) context.Context {
	if strings.TrimSpace(id) == "" {
		return ctx
	}
	return context.WithValue(ctx, taskIDKey, id)
}

// TaskIDFromContext returns the task identifier stored by WithTaskID.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(taskIDKey).(string)
	return id, ok && id != ""
}

// WithObjectKey stores the destination object key on ctx.
func WithObjectKey(ctx context.Context, key string) context.Context {
	if strings.TrimSpace(key) == "" {
		return ctx
	}
	return context.WithValue(ctx, objectKeyKey, key)
}

// ObjectKeyFromContext returns the object key stored by WithObjectKey.
func ObjectKeyFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	key, ok := ctx.Value(objectKeyKey).(string)
	return key, ok && key != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := TaskIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTaskID, id))
	}
	if key, ok := ObjectKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldObjectKey, key))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

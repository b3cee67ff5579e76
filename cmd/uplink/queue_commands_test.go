package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"uplink/internal/logging"
	"uplink/internal/queue"
	"uplink/internal/workspace"
)

// seedPausedUpload leaves one paused task behind by failing its second part.
func seedPausedUpload(t *testing.T, env *cliTestEnv, name string) queue.Task {
	t.Helper()
	path := env.writeFile(t, name, sixMiB)
	env.s3.FailPart(2, http.StatusForbidden)
	if _, _, err := runCLI(t, []string{"upload", path}, env.configPath); err == nil {
		t.Fatal("expected seeded upload to pause")
	}
	for _, task := range env.tasks(t) {
		if task.Title == name {
			return task
		}
	}
	t.Fatalf("task %s not found", name)
	return queue.Task{}
}

func TestQueueListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	out, _, err = runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Completed 0/0")
	requireContains(t, out, "Uploading")
	requireContains(t, out, "Paused")
}

func TestQueueListFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	paused := seedPausedUpload(t, env, "first.bin")

	out, _, err := runCLI(t, []string{"queue", "list", "--status", "paused"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, paused.ID)
	requireContains(t, out, "Paused")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "completed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list completed: %v", err)
	}
	requireContains(t, out, "No completed uploads")

	if _, _, err := runCLI(t, []string{"queue", "list", "--status", "failed"}, env.configPath); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestQueueResumeByID(t *testing.T) {
	env := setupCLITestEnv(t)
	paused := seedPausedUpload(t, env, "resume.bin")

	out, _, err := runCLI(t, []string{"queue", "resume", paused.ID, "no-such-id"}, env.configPath)
	if err != nil {
		t.Fatalf("queue resume: %v\n%s", err, out)
	}
	requireContains(t, out, "Task no-such-id not found")
	requireContains(t, out, "Completed 1 upload")

	if _, ok := env.s3.Object("resume.bin"); !ok {
		t.Fatal("expected object after resume")
	}

	out, _, err = runCLI(t, []string{"queue", "resume", paused.ID}, env.configPath)
	if err != nil {
		t.Fatalf("second resume: %v", err)
	}
	requireContains(t, out, "is completed")
}

func TestQueuePauseCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	paused := seedPausedUpload(t, env, "pause.bin")

	out, _, err := runCLI(t, []string{"queue", "pause", paused.ID, "ghost"}, env.configPath)
	if err != nil {
		t.Fatalf("queue pause: %v", err)
	}
	requireContains(t, out, "Task "+paused.ID+" paused")
	requireContains(t, out, "Task ghost not found")

	out, _, err = runCLI(t, []string{"queue", "pause-all"}, env.configPath)
	if err != nil {
		t.Fatalf("queue pause-all: %v", err)
	}
	requireContains(t, out, "1 upload paused")
}

func TestQueueClearByIDAbortsMultipartUpload(t *testing.T) {
	env := setupCLITestEnv(t)
	paused := seedPausedUpload(t, env, "abandon.bin")
	if env.s3.OpenUploads() != 1 {
		t.Fatalf("expected one open multipart upload, got %d", env.s3.OpenUploads())
	}

	out, _, err := runCLI(t, []string{"queue", "clear", "--id", paused.ID}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 upload")
	if env.s3.OpenUploads() != 0 {
		t.Fatalf("expected multipart upload to be aborted, operations: %v", env.s3.Operations())
	}

	out, _, err = runCLI(t, []string{"queue", "clear", "--id", paused.ID}, env.configPath)
	if err != nil {
		t.Fatalf("second clear: %v", err)
	}
	requireContains(t, out, "not found")
}

func TestQueueClearRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "clear", "--completed", "--incomplete"}, env.configPath)
	if err == nil {
		t.Fatal("expected conflicting flags to be rejected")
	}
	if !strings.Contains(err.Error(), "completed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueueCommandsRefuseWhileQueueIsOpen(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	ws, err := workspace.Open(ctx, env.cfg, logging.NewNop(), workspace.WithOffline())
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	defer ws.Close(ctx)

	_, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if !errors.Is(err, workspace.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

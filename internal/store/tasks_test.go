package store_test

import (
	"context"
	"errors"
	"testing"

	"podkeep/internal/services"
	"podkeep/internal/store"
	"podkeep/internal/testsupport"
)

func newTaskStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedEpisode(t, st, "ep-1", "Episode One", "https://cdn.example.com/1.mp3")
	return st
}

func TestTaskLifecycleHappyPath(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	task, err := st.CreateTask(ctx, "task-1", "ep-1", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != store.TaskPending || task.Progress != 0 {
		t.Fatalf("unexpected initial task: %+v", task)
	}

	applied, err := st.MarkDownloading(ctx, task.ID)
	if err != nil || !applied {
		t.Fatalf("mark downloading: applied=%v err=%v", applied, err)
	}

	if err := st.UpdateTaskProgress(ctx, task.ID, 40, 1024); err != nil {
		t.Fatalf("progress: %v", err)
	}
	task, err = st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.Progress != 40 || task.TotalBytes != 1024 {
		t.Fatalf("progress not persisted: %+v", task)
	}

	applied, err = st.MarkTaskCompleted(ctx, task.ID, "/tmp/ep.mp3", 2048)
	if err != nil || !applied {
		t.Fatalf("complete: applied=%v err=%v", applied, err)
	}
	task, err = st.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.Status != store.TaskCompleted || task.Progress != 100 || task.LocalPath != "/tmp/ep.mp3" {
		t.Fatalf("unexpected terminal task: %+v", task)
	}
}

func TestCancelPendingTask(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "task-1", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	task, err := st.CancelTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if task.Status != store.TaskCancelled {
		t.Fatalf("status = %s, want cancelled", task.Status)
	}

	// The worker never gets to claim a cancelled task.
	applied, err := st.MarkDownloading(ctx, "task-1")
	if err != nil {
		t.Fatalf("mark downloading: %v", err)
	}
	if applied {
		t.Fatal("cancelled task must not transition to downloading")
	}
}

func TestCancelTerminalTaskConflicts(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "task-1", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.MarkDownloading(ctx, "task-1"); err != nil {
		t.Fatalf("mark downloading: %v", err)
	}
	if _, err := st.MarkTaskCompleted(ctx, "task-1", "/tmp/x.mp3", 1); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := st.CancelTask(ctx, "task-1")
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict cancelling terminal task, got %v", err)
	}

	task, err := st.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.Status != store.TaskCompleted {
		t.Fatalf("terminal status must stand, got %s", task.Status)
	}
}

func TestCancelMissingTaskNotFound(t *testing.T) {
	st := newTaskStore(t)

	_, err := st.CancelTask(context.Background(), "nope")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCompletionLosesToCancel(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "task-1", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.MarkDownloading(ctx, "task-1"); err != nil {
		t.Fatalf("mark downloading: %v", err)
	}
	if _, err := st.CancelTask(ctx, "task-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	applied, err := st.MarkTaskCompleted(ctx, "task-1", "/tmp/x.mp3", 1)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if applied {
		t.Fatal("completion must not overwrite a cancel")
	}

	task, err := st.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.Status != store.TaskCancelled {
		t.Fatalf("status = %s, want cancelled", task.Status)
	}
}

func TestProgressWritesIgnoredAfterCancel(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "task-1", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.MarkDownloading(ctx, "task-1"); err != nil {
		t.Fatalf("mark downloading: %v", err)
	}
	if err := st.UpdateTaskProgress(ctx, "task-1", 30, 512); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if _, err := st.CancelTask(ctx, "task-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if err := st.UpdateTaskProgress(ctx, "task-1", 60, 1024); err != nil {
		t.Fatalf("late progress write should be a no-op, got %v", err)
	}
	task, err := st.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.Progress != 30 {
		t.Fatalf("progress = %d, want 30 (frozen at cancel)", task.Progress)
	}
}

func TestMarkTaskFailedGuards(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "task-1", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	applied, err := st.MarkTaskFailed(ctx, "task-1", "connection reset")
	if err != nil || !applied {
		t.Fatalf("fail pending: applied=%v err=%v", applied, err)
	}

	applied, err = st.MarkTaskFailed(ctx, "task-1", "again")
	if err != nil {
		t.Fatalf("second fail: %v", err)
	}
	if applied {
		t.Fatal("terminal task must not be failed twice")
	}

	task, err := st.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.ErrorMessage != "connection reset" {
		t.Fatalf("error message = %q", task.ErrorMessage)
	}
}

func TestDeleteTask(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "task-1", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeleteTask(ctx, "task-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteTask(ctx, "task-1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found on repeat delete, got %v", err)
	}
}

func TestListTasksFiltersByStatus(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "task-1", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CreateTask(ctx, "task-2", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CancelTask(ctx, "task-2"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	all, err := st.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}

	pending, err := st.ListTasks(ctx, store.TaskPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "task-1" {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
}

func TestResetStuckDownloads(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	if _, err := st.CreateTask(ctx, "task-1", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CreateTask(ctx, "task-2", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.MarkDownloading(ctx, "task-2"); err != nil {
		t.Fatalf("mark downloading: %v", err)
	}
	if _, err := st.CreateTask(ctx, "task-3", "ep-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CancelTask(ctx, "task-3"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	reset, err := st.ResetStuckDownloads(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset != 2 {
		t.Fatalf("reset = %d, want 2", reset)
	}

	for _, id := range []string{"task-1", "task-2"} {
		task, err := st.GetTask(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if task.Status != store.TaskFailed || task.ErrorMessage != store.RestartInterruptedReason {
			t.Fatalf("task %s not reset: %+v", id, task)
		}
	}

	task, err := st.GetTask(ctx, "task-3")
	if err != nil {
		t.Fatalf("get task-3: %v", err)
	}
	if task.Status != store.TaskCancelled {
		t.Fatalf("cancelled task must not be reset, got %s", task.Status)
	}
}

func TestCreateCompletedTask(t *testing.T) {
	st := newTaskStore(t)
	ctx := context.Background()

	task, err := st.CreateCompletedTask(ctx, "task-1", "ep-1", "", "/tmp/ep.mp3", 4096)
	if err != nil {
		t.Fatalf("create completed: %v", err)
	}
	if task.Status != store.TaskCompleted || task.Progress != 100 || task.LocalPath != "/tmp/ep.mp3" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"podkeep/internal/services"
)

const taskColumns = "id, episode_id, status, progress, local_path, error_message, batch_id, total_bytes, created_at, updated_at"

// CreateTask inserts a new pending download task. The record is visible to
// readers before any worker is dispatched.
func (s *Store) CreateTask(ctx context.Context, id, episodeID, batchID string) (*Task, error) {
	timestamp := nowStamp()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO download_tasks (id, episode_id, status, progress, batch_id, created_at, updated_at)
        VALUES (?, ?, ?, 0, ?, ?, ?)`,
		id, episodeID, TaskPending, nullableString(batchID), timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// CreateCompletedTask inserts a task that is already terminal, used when an
// artifact for the episode exists on disk and the transfer is skipped.
func (s *Store) CreateCompletedTask(ctx context.Context, id, episodeID, batchID, localPath string, totalBytes int64) (*Task, error) {
	timestamp := nowStamp()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO download_tasks (id, episode_id, status, progress, local_path, batch_id, total_bytes, created_at, updated_at)
        VALUES (?, ?, ?, 100, ?, ?, ?, ?, ?)`,
		id, episodeID, TaskCompleted, localPath, nullableString(batchID), totalBytes, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completed task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask fetches a download task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM download_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "task", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// TaskStatusOf returns only the current status of a task. Workers poll this
// between chunks to observe external cancellation.
func (s *Store) TaskStatusOf(ctx context.Context, id string) (TaskStatus, error) {
	var status TaskStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM download_tasks WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", services.Wrap(services.ErrNotFound, "store", "task", id, nil)
	}
	if err != nil {
		return "", fmt.Errorf("task status: %w", err)
	}
	return status, nil
}

// ListTasks returns tasks filtered by status set (or all tasks when no
// status is provided), oldest first.
func (s *Store) ListTasks(ctx context.Context, statuses ...TaskStatus) ([]*Task, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + taskColumns + ` FROM download_tasks`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// MarkDownloading transitions a pending task to downloading. The returned
// boolean reports whether the transition applied (false when the task was
// cancelled before the worker started).
func (s *Store) MarkDownloading(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE download_tasks SET status = ?, progress = 0, updated_at = ?
        WHERE id = ? AND status = ?`,
		TaskDownloading, nowStamp(), id, TaskPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark downloading: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateTaskProgress persists transfer progress. Only the owning worker
// writes progress, and only while the task is downloading, so observed
// values are monotonically non-decreasing.
func (s *Store) UpdateTaskProgress(ctx context.Context, id string, progress int, totalBytes int64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.db.ExecContext(ctx, `
        UPDATE download_tasks SET progress = ?, total_bytes = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		progress, totalBytes, nowStamp(), id, TaskDownloading,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// MarkTaskCompleted finishes a download. The status predicate makes a cancel
// racing the completion write win: the returned boolean is false when the
// task was no longer downloading and the caller must discard the artifact.
func (s *Store) MarkTaskCompleted(ctx context.Context, id, localPath string, totalBytes int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE download_tasks SET status = ?, progress = 100, local_path = ?, total_bytes = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		TaskCompleted, localPath, totalBytes, nowStamp(), id, TaskDownloading,
	)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkTaskFailed records a transfer failure. A task already cancelled or
// completed is left untouched.
func (s *Store) MarkTaskFailed(ctx context.Context, id, message string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE download_tasks SET status = ?, error_message = ?, updated_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		TaskFailed, message, nowStamp(), id, TaskPending, TaskDownloading,
	)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CancelTask sets a non-terminal task to cancelled. Cancelling a terminal
// task is a conflict; the terminal status stays authoritative.
func (s *Store) CancelTask(ctx context.Context, id string) (*Task, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE download_tasks SET status = ?, updated_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		TaskCancelled, nowStamp(), id, TaskPending, TaskDownloading,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		task, err := s.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, services.Wrap(services.ErrConflict, "store", "cancel",
			fmt.Sprintf("task %s is already %s", id, task.Status), nil)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes the record. Artifact cleanup belongs to the caller.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM download_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "task", id, nil)
	}
	return nil
}

// ResetStuckDownloads fails tasks whose workers died with a previous daemon
// process. Task records survive restarts; in-flight transfers do not.
func (s *Store) ResetStuckDownloads(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE download_tasks SET status = ?, error_message = ?, updated_at = ?
        WHERE status IN (?, ?)`,
		TaskFailed, RestartInterruptedReason, nowStamp(), TaskPending, TaskDownloading,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck downloads: %w", err)
	}
	return res.RowsAffected()
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id         string
		episodeID  string
		statusStr  string
		progress   int
		localPath  sql.NullString
		errMessage sql.NullString
		batchID    sql.NullString
		totalBytes sql.NullInt64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &episodeID, &statusStr, &progress, &localPath, &errMessage, &batchID, &totalBytes, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	task := &Task{
		ID:           id,
		EpisodeID:    episodeID,
		Status:       TaskStatus(statusStr),
		Progress:     progress,
		LocalPath:    localPath.String,
		ErrorMessage: errMessage.String,
		BatchID:      batchID.String,
		TotalBytes:   totalBytes.Int64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

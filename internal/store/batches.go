package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"podkeep/internal/services"
)

const batchColumns = "id, status, total, completed_count, failed_count, created_at, updated_at"

// CreateBatch records a download-all request covering the given number of
// child tasks.
func (s *Store) CreateBatch(ctx context.Context, id string, total int) (*Batch, error) {
	if total <= 0 {
		return nil, services.Wrap(services.ErrValidation, "store", "batch", "batch must cover at least one task", nil)
	}
	timestamp := nowStamp()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO batch_tasks (id, status, total, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`,
		id, BatchInProgress, total, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return s.GetBatch(ctx, id)
}

// GetBatch fetches a batch by id.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batch_tasks WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "batch", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// ListBatches returns all batches, newest first.
func (s *Store) ListBatches(ctx context.Context) ([]*Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batch_tasks ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// RecordChildTerminal bumps the batch counters for one finished child task
// and finalizes the batch status once every child is accounted for. The
// counter update and the finalization run in a single transaction so
// concurrent workers cannot double-count or leave a full batch in progress.
func (s *Store) RecordChildTerminal(ctx context.Context, batchID string, succeeded bool) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch update: %w", err)
	}
	defer tx.Rollback()

	column := "failed_count"
	if succeeded {
		column = "completed_count"
	}
	res, err := tx.ExecContext(ctx, `
        UPDATE batch_tasks SET `+column+` = `+column+` + 1, updated_at = ?
        WHERE id = ?`,
		nowStamp(), batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("bump batch counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrNotFound, "store", "batch", batchID, nil)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batch_tasks WHERE id = ?`, batchID)
	batch, err := scanBatch(row)
	if err != nil {
		return nil, fmt.Errorf("reload batch: %w", err)
	}

	if batch.CompletedCount+batch.FailedCount >= batch.Total && batch.Status == BatchInProgress {
		final := finalBatchStatus(batch.CompletedCount, batch.FailedCount)
		if _, err := tx.ExecContext(ctx, `
            UPDATE batch_tasks SET status = ?, updated_at = ? WHERE id = ?`,
			final, nowStamp(), batchID,
		); err != nil {
			return nil, fmt.Errorf("finalize batch: %w", err)
		}
		batch.Status = final
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch update: %w", err)
	}
	return batch, nil
}

func finalBatchStatus(completed, failed int) BatchStatus {
	switch {
	case failed == 0:
		return BatchCompleted
	case completed == 0:
		return BatchFailed
	default:
		return BatchPartiallyCompleted
	}
}

func scanBatch(scanner interface{ Scan(dest ...any) error }) (*Batch, error) {
	var (
		batch      Batch
		statusStr  string
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&batch.ID, &statusStr, &batch.Total, &batch.CompletedCount, &batch.FailedCount, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	batch.Status = BatchStatus(statusStr)
	if created, err := parseTimeString(createdRaw.String); err == nil {
		batch.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		batch.UpdatedAt = updated
	}
	return &batch, nil
}

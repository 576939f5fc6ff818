package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"podkeep/internal/fileutil"
	"podkeep/internal/logging"
	"podkeep/internal/store"
)

const shutdownReason = "interrupted by daemon shutdown"

// errCancelled is an internal signal that the task left the downloading
// state under the worker; the canceller already owns the terminal status.
var errCancelled = errors.New("task cancelled")

// runWorker performs one transfer. All task-state writes go through guarded
// store updates, so a cancel landing mid-transfer always wins: the worker
// notices at the next chunk boundary, or its final completion write simply
// does not apply. Store writes use a background context because they must
// land even while the daemon is shutting down.
func (m *Manager) runWorker(taskID string, episode *store.Episode) {
	ctx := context.Background()
	logger := m.logger.With(
		logging.String(logging.FieldTaskID, taskID),
		logging.String(logging.FieldEpisodeID, episode.ID),
	)

	claimed, err := m.store.MarkDownloading(ctx, taskID)
	if err != nil {
		logger.Error("claim task", logging.Error(err))
		return
	}
	if !claimed {
		// Cancelled before the worker started.
		return
	}

	localPath, totalBytes, err := m.transfer(ctx, taskID, episode)
	if errors.Is(err, errCancelled) {
		logger.Info("transfer stopped by cancel")
		return
	}
	if err != nil {
		m.failTask(ctx, taskID, err.Error(), logger)
		return
	}

	applied, err := m.store.MarkTaskCompleted(ctx, taskID, localPath, totalBytes)
	if err != nil {
		logger.Error("record completion", logging.Error(err))
		return
	}
	if !applied {
		// A cancel won the race after the last chunk; honor it.
		_ = os.Remove(localPath)
		logger.Info("discarded artifact for cancelled task")
		return
	}
	m.recordBatchChild(ctx, taskID, true)
	logger.Info("download completed",
		logging.String("path", localPath),
		logging.Int64("bytes", totalBytes))
}

func (m *Manager) transfer(ctx context.Context, taskID string, episode *store.Episode) (string, int64, error) {
	if minFree := m.cfg.Downloads.MinFreeSpaceMiB; minFree > 0 {
		free, err := fileutil.FreeSpace(m.cfg.Paths.DownloadDir)
		if err != nil {
			return "", 0, fmt.Errorf("check free space: %v", err)
		}
		if free < uint64(minFree)*1024*1024 {
			return "", 0, fmt.Errorf("insufficient disk space: %d MiB free, %d MiB required", free/(1024*1024), minFree)
		}
	}

	// The request rides the manager context so Stop aborts the transfer.
	req, err := http.NewRequestWithContext(m.ctx, http.MethodGet, episode.AudioURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %v", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		if m.ctx.Err() != nil {
			return "", 0, errors.New(shutdownReason)
		}
		return "", 0, fmt.Errorf("fetch audio: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, fmt.Errorf("source returned HTTP %d", resp.StatusCode)
	}
	total := resp.ContentLength
	if total <= 0 {
		return "", 0, errors.New("source did not report a content length")
	}

	finalPath := m.ArtifactPath(episode)
	partialPath := finalPath + ".partial"
	out, err := os.Create(partialPath)
	if err != nil {
		return "", 0, fmt.Errorf("create partial file: %v", err)
	}

	downloaded, err := m.copyChunks(ctx, taskID, out, resp.Body, total)
	closeErr := out.Close()
	if err != nil {
		_ = os.Remove(partialPath)
		return "", 0, err
	}
	if closeErr != nil {
		_ = os.Remove(partialPath)
		return "", 0, fmt.Errorf("flush partial file: %v", closeErr)
	}

	if err := os.Rename(partialPath, finalPath); err != nil {
		_ = os.Remove(partialPath)
		return "", 0, fmt.Errorf("finalize artifact: %v", err)
	}
	return finalPath, downloaded, nil
}

// copyChunks streams the body in configured chunks, persisting progress and
// honoring cancellation between chunks.
func (m *Manager) copyChunks(ctx context.Context, taskID string, out *os.File, body io.Reader, total int64) (int64, error) {
	buf := make([]byte, m.cfg.ChunkSize())
	var downloaded int64
	lastReported := 0
	step := m.cfg.Downloads.ProgressStep
	if step <= 0 {
		step = 1
	}

	for {
		if m.ctx.Err() != nil {
			return downloaded, errors.New(shutdownReason)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return downloaded, fmt.Errorf("write chunk: %v", writeErr)
			}
			downloaded += int64(n)
		}
		if readErr == io.EOF {
			if downloaded < total {
				return downloaded, fmt.Errorf("truncated transfer: %d of %d bytes", downloaded, total)
			}
			return downloaded, nil
		}
		if readErr != nil {
			if m.ctx.Err() != nil {
				return downloaded, errors.New(shutdownReason)
			}
			return downloaded, fmt.Errorf("read chunk: %v", readErr)
		}

		status, err := m.store.TaskStatusOf(ctx, taskID)
		if err != nil {
			return downloaded, fmt.Errorf("re-read status: %v", err)
		}
		if status != store.TaskDownloading {
			return downloaded, errCancelled
		}

		progress := int(downloaded * 100 / total)
		if progress > 100 {
			progress = 100
		}
		if progress-lastReported >= step {
			if err := m.store.UpdateTaskProgress(ctx, taskID, progress, total); err != nil {
				return downloaded, fmt.Errorf("persist progress: %v", err)
			}
			lastReported = progress
		}
	}
}

func (m *Manager) failTask(ctx context.Context, taskID, message string, logger *slog.Logger) {
	applied, err := m.store.MarkTaskFailed(ctx, taskID, message)
	if err != nil {
		logger.Error("record failure", logging.Error(err))
		return
	}
	if !applied {
		return
	}
	m.recordBatchChild(ctx, taskID, false)
	logger.Error("download failed", logging.String("reason", message))
}

func (m *Manager) recordBatchChild(ctx context.Context, taskID string, succeeded bool) {
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil || task.BatchID == "" {
		return
	}
	batch, err := m.store.RecordChildTerminal(ctx, task.BatchID, succeeded)
	if err != nil {
		m.logger.Error("record batch child",
			logging.String(logging.FieldBatchID, task.BatchID),
			logging.Error(err))
		return
	}
	if batch.Terminal() {
		m.logger.Info("batch finished",
			logging.String(logging.FieldBatchID, batch.ID),
			logging.String("status", string(batch.Status)))
	}
}

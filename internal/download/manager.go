// Package download runs the task lifecycle for episode transfers: create,
// track, cancel, and delete background downloads plus the download-all
// batch flow.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"podkeep/internal/config"
	"podkeep/internal/fileutil"
	"podkeep/internal/logging"
	"podkeep/internal/services"
	"podkeep/internal/store"
)

// Manager owns the download workers and exposes the task operations the API
// server calls. Task state lives in the store; the Manager only tracks
// worker goroutine lifetimes.
type Manager struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	client *http.Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// BatchResult reports the tasks created by a download-all request.
type BatchResult struct {
	Batch   *store.Batch
	TaskIDs []string
}

// NewManager builds a download manager. Call Stop to drain workers before
// closing the store.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		store:  st,
		logger: logging.WithComponent(logger, "download"),
		client: &http.Client{Timeout: cfg.DownloadTimeout()},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Stop cancels in-flight workers and waits for them to finish. Interrupted
// transfers are marked failed by their workers on the way out.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	m.logger.Info("download workers drained")
}

// Create starts a background download for the episode and returns the
// tracking task. The task record is visible before the worker begins, so a
// poll immediately after return observes at least a pending status. With
// artifact reuse enabled, an episode whose file already exists yields an
// immediately-completed task without a transfer.
func (m *Manager) Create(ctx context.Context, episodeID string) (*store.Task, error) {
	episode, err := m.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	return m.createTask(ctx, episode, "")
}

func (m *Manager) createTask(ctx context.Context, episode *store.Episode, batchID string) (*store.Task, error) {
	taskID := uuid.NewString()

	if m.cfg.Downloads.SkipExisting {
		artifact := m.ArtifactPath(episode)
		if info, err := os.Stat(artifact); err == nil && info.Size() > 0 {
			task, err := m.store.CreateCompletedTask(ctx, taskID, episode.ID, batchID, artifact, info.Size())
			if err != nil {
				return nil, err
			}
			if batchID != "" {
				if _, err := m.store.RecordChildTerminal(ctx, batchID, true); err != nil {
					return nil, err
				}
			}
			m.logger.Info("artifact reused",
				logging.String(logging.FieldTaskID, task.ID),
				logging.String(logging.FieldEpisodeID, episode.ID),
				logging.String("path", artifact))
			return task, nil
		}
	}

	task, err := m.store.CreateTask(ctx, taskID, episode.ID, batchID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		// Daemon is shutting down; leave the task for restart recovery.
		return task, nil
	}
	m.wg.Add(1)
	m.mu.Unlock()

	episodeCopy := *episode
	go func() {
		defer m.wg.Done()
		m.runWorker(task.ID, &episodeCopy)
	}()

	return task, nil
}

// Get returns a single task.
func (m *Manager) Get(ctx context.Context, taskID string) (*store.Task, error) {
	return m.store.GetTask(ctx, taskID)
}

// List returns tasks, optionally filtered by status.
func (m *Manager) List(ctx context.Context, statuses ...store.TaskStatus) ([]*store.Task, error) {
	return m.store.ListTasks(ctx, statuses...)
}

// GetBatch returns a download-all batch.
func (m *Manager) GetBatch(ctx context.Context, batchID string) (*store.Batch, error) {
	return m.store.GetBatch(ctx, batchID)
}

// Cancel requests cancellation of a non-terminal task. The running worker
// observes the cancelled status at its next chunk boundary and stops;
// cancelling an already-terminal task is a conflict.
func (m *Manager) Cancel(ctx context.Context, taskID string) (*store.Task, error) {
	task, err := m.store.CancelTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.BatchID != "" {
		if _, err := m.store.RecordChildTerminal(ctx, task.BatchID, false); err != nil {
			return nil, err
		}
	}
	m.logger.Info("task cancelled", logging.String(logging.FieldTaskID, taskID))
	return task, nil
}

// Delete removes a terminal task's record and best-effort removes its
// artifact. Deleting a pending or downloading task is a conflict; cancel it
// first.
func (m *Manager) Delete(ctx context.Context, taskID string) error {
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.Status.Terminal() {
		return services.Wrap(services.ErrConflict, "download", "delete",
			fmt.Sprintf("task %s is %s; cancel it first", taskID, task.Status), nil)
	}
	if err := m.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	if task.LocalPath != "" {
		if err := os.Remove(task.LocalPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("artifact removal failed",
				logging.String(logging.FieldTaskID, taskID),
				logging.Error(err))
		}
	}
	return nil
}

// DownloadAll creates one task per cached episode under a fresh batch.
// Dispatch is staggered by the configured delay so a large feed does not
// open every connection at once.
func (m *Manager) DownloadAll(ctx context.Context) (*BatchResult, error) {
	episodes, err := m.store.ListEpisodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "download", "all", "no episodes cached; refresh the feed first", nil)
	}

	batchID := uuid.NewString()
	batch, err := m.store.CreateBatch(ctx, batchID, len(episodes))
	if err != nil {
		return nil, err
	}

	delay := m.cfg.DispatchDelay()
	taskIDs := make([]string, 0, len(episodes))
	for i, episode := range episodes {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				m.releaseBatchSlots(batchID, len(episodes)-len(taskIDs))
				return nil, ctx.Err()
			}
		}
		task, err := m.createTask(ctx, episode, batchID)
		if err != nil {
			m.releaseBatchSlots(batchID, len(episodes)-len(taskIDs))
			return nil, err
		}
		taskIDs = append(taskIDs, task.ID)
	}

	m.logger.Info("batch created",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("tasks", len(taskIDs)))
	return &BatchResult{Batch: batch, TaskIDs: taskIDs}, nil
}

// releaseBatchSlots records undispatched batch slots as failed children. The
// batch total is fixed at creation, so an aborted dispatch loop must still
// account for every slot or the batch never finalizes.
func (m *Manager) releaseBatchSlots(batchID string, slots int) {
	ctx := context.Background()
	for i := 0; i < slots; i++ {
		if _, err := m.store.RecordChildTerminal(ctx, batchID, false); err != nil {
			m.logger.Warn("batch slot release failed",
				logging.String(logging.FieldBatchID, batchID),
				logging.Error(err))
			return
		}
	}
}

// ArtifactPath returns the final on-disk location for an episode's audio.
// The name starts with the episode id so episodes sharing a title never
// share a file.
func (m *Manager) ArtifactPath(episode *store.Episode) string {
	name := fileutil.SanitizeFileName(episode.ID + "-" + episode.Title)
	return filepath.Join(m.cfg.Paths.DownloadDir, name+audioExtension(episode.AudioURL))
}

func audioExtension(audioURL string) string {
	trimmed := audioURL
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	ext := strings.ToLower(path.Ext(trimmed))
	switch ext {
	case ".mp3", ".m4a", ".aac", ".ogg", ".opus", ".flac", ".wav":
		return ext
	default:
		return ".mp3"
	}
}

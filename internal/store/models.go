package store

import (
	"strings"
	"time"
)

// TaskStatus represents the lifecycle of a download task.
type TaskStatus string

const (
	TaskPending     TaskStatus = "pending"
	TaskDownloading TaskStatus = "downloading"
	TaskCompleted   TaskStatus = "completed"
	TaskFailed      TaskStatus = "failed"
	TaskCancelled   TaskStatus = "cancelled"
)

// RestartInterruptedReason is the error message set on tasks whose workers
// died with a previous daemon process.
const RestartInterruptedReason = "interrupted by daemon restart"

var allTaskStatuses = []TaskStatus{
	TaskPending,
	TaskDownloading,
	TaskCompleted,
	TaskFailed,
	TaskCancelled,
}

var taskStatusSet = func() map[TaskStatus]struct{} {
	set := make(map[TaskStatus]struct{}, len(allTaskStatuses))
	for _, status := range allTaskStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllTaskStatuses returns the ordered list of known statuses.
func AllTaskStatuses() []TaskStatus {
	cp := make([]TaskStatus, len(allTaskStatuses))
	copy(cp, allTaskStatuses)
	return cp
}

// ParseTaskStatus converts a string into a known TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, bool) {
	normalized := TaskStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := taskStatusSet[normalized]
	return normalized, ok
}

// Terminal reports whether no further worker writes follow this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// Task is one tracked download attempt for a single episode.
type Task struct {
	ID           string
	EpisodeID    string
	Status       TaskStatus
	Progress     int
	LocalPath    string
	ErrorMessage string
	BatchID      string
	TotalBytes   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BatchStatus represents the derived state of a download-all batch.
type BatchStatus string

const (
	BatchInProgress         BatchStatus = "in_progress"
	BatchCompleted          BatchStatus = "completed"
	BatchFailed             BatchStatus = "failed"
	BatchPartiallyCompleted BatchStatus = "partially_completed"
)

// Batch aggregates the tasks created by a single download-all request.
type Batch struct {
	ID             string
	Status         BatchStatus
	Total          int
	CompletedCount int
	FailedCount    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal reports whether every child task has reached a terminal state.
func (b Batch) Terminal() bool {
	return b.Status != BatchInProgress
}

// Episode is a cached feed entry. The feed service owns its contents; the
// download core only reads it.
type Episode struct {
	ID              string
	Title           string
	Description     string
	PublishDate     string
	AudioURL        string
	ImageURL        string
	DurationSeconds int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SongFavorite marks a track heard at a position inside an episode.
type SongFavorite struct {
	ID              int64
	EpisodeID       string
	PositionSeconds int
	SongTitle       string
	Artist          string
	SpotifyURL      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HistoryEntry records one playback event.
type HistoryEntry struct {
	ID              int64
	EpisodeID       string
	EpisodeTitle    string
	PositionSeconds int
	PlayedAt        time.Time
}

// Stats aggregates record counts for the status endpoint.
type Stats struct {
	Episodes         int
	FavoriteEpisodes int
	FavoriteSongs    int
	Tasks            map[TaskStatus]int
}

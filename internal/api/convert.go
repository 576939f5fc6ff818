package api

import (
	"time"

	"podkeep/internal/store"
)

// FromTask converts a stored task to its API shape.
func FromTask(task *store.Task) Task {
	if task == nil {
		return Task{}
	}
	return Task{
		ID:           task.ID,
		EpisodeID:    task.EpisodeID,
		Status:       string(task.Status),
		Progress:     task.Progress,
		LocalPath:    task.LocalPath,
		ErrorMessage: task.ErrorMessage,
		BatchID:      task.BatchID,
		TotalBytes:   task.TotalBytes,
		CreatedAt:    formatTime(task.CreatedAt),
		UpdatedAt:    formatTime(task.UpdatedAt),
	}
}

// FromTasks converts a task list.
func FromTasks(tasks []*store.Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, FromTask(task))
	}
	return out
}

// FromBatch converts a stored batch to its API shape.
func FromBatch(batch *store.Batch) Batch {
	if batch == nil {
		return Batch{}
	}
	return Batch{
		ID:        batch.ID,
		Status:    string(batch.Status),
		Total:     batch.Total,
		Completed: batch.CompletedCount,
		Failed:    batch.FailedCount,
		CreatedAt: formatTime(batch.CreatedAt),
		UpdatedAt: formatTime(batch.UpdatedAt),
	}
}

// FromEpisode converts a stored episode to its API shape.
func FromEpisode(episode *store.Episode, favorite bool) Episode {
	if episode == nil {
		return Episode{}
	}
	return Episode{
		ID:              episode.ID,
		Title:           episode.Title,
		Description:     episode.Description,
		PublishDate:     episode.PublishDate,
		AudioURL:        episode.AudioURL,
		ImageURL:        episode.ImageURL,
		DurationSeconds: episode.DurationSeconds,
		Favorite:        favorite,
	}
}

// FromSong converts a stored song favorite to its API shape.
func FromSong(song *store.SongFavorite) Song {
	if song == nil {
		return Song{}
	}
	return Song{
		ID:              song.ID,
		EpisodeID:       song.EpisodeID,
		PositionSeconds: song.PositionSeconds,
		SongTitle:       song.SongTitle,
		Artist:          song.Artist,
		SpotifyURL:      song.SpotifyURL,
		CreatedAt:       formatTime(song.CreatedAt),
	}
}

// FromSongs converts a song list.
func FromSongs(songs []*store.SongFavorite) []Song {
	out := make([]Song, 0, len(songs))
	for _, song := range songs {
		out = append(out, FromSong(song))
	}
	return out
}

// FromHistory converts a stored history entry to its API shape.
func FromHistory(entry *store.HistoryEntry) HistoryEntry {
	if entry == nil {
		return HistoryEntry{}
	}
	return HistoryEntry{
		ID:              entry.ID,
		EpisodeID:       entry.EpisodeID,
		EpisodeTitle:    entry.EpisodeTitle,
		PositionSeconds: entry.PositionSeconds,
		PlayedAt:        formatTime(entry.PlayedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

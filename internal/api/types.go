package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes a download task in a transport-friendly format.
type Task struct {
	ID           string `json:"id"`
	EpisodeID    string `json:"episode_id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	LocalPath    string `json:"local_path,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	BatchID      string `json:"batch_id,omitempty"`
	TotalBytes   int64  `json:"total_bytes,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Batch describes a download-all batch.
type Batch struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Episode describes a cached feed entry.
type Episode struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	PublishDate     string `json:"publish_date,omitempty"`
	AudioURL        string `json:"audio_url"`
	ImageURL        string `json:"image_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Favorite        bool   `json:"favorite"`
}

// Song describes a favorited track.
type Song struct {
	ID              int64  `json:"id"`
	EpisodeID       string `json:"episode_id"`
	PositionSeconds int    `json:"position_seconds"`
	SongTitle       string `json:"song_title"`
	Artist          string `json:"artist"`
	SpotifyURL      string `json:"spotify_url,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// HistoryEntry describes one playback event.
type HistoryEntry struct {
	ID              int64  `json:"id"`
	EpisodeID       string `json:"episode_id"`
	EpisodeTitle    string `json:"episode_title,omitempty"`
	PositionSeconds int    `json:"position_seconds"`
	PlayedAt        string `json:"played_at,omitempty"`
}

// Status summarizes daemon state for the status endpoint.
type Status struct {
	Running           bool           `json:"running"`
	PID               int            `json:"pid"`
	DatabasePath      string         `json:"database_path"`
	Episodes          int            `json:"episodes"`
	FavoriteEpisodes  int            `json:"favorite_episodes"`
	FavoriteSongs     int            `json:"favorite_songs"`
	Tasks             map[string]int `json:"tasks"`
	SpotifyConfigured bool           `json:"spotify_configured"`
}

// RefreshSummary reports a feed ingestion pass.
type RefreshSummary struct {
	Total   int `json:"total"`
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// BatchCreated is the response to a download-all request.
type BatchCreated struct {
	BatchID string   `json:"batch_id"`
	TaskIDs []string `json:"task_ids"`
}

package store

import (
	"context"
	"database/sql"
	"fmt"
)

const defaultHistoryLimit = 10

// AddHistory records a playback event for an episode.
func (s *Store) AddHistory(ctx context.Context, episodeID string, positionSeconds int) error {
	if positionSeconds < 0 {
		positionSeconds = 0
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO playback_history (episode_id, position_seconds, played_at)
        VALUES (?, ?, ?)`,
		episodeID, positionSeconds, nowStamp(),
	)
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// ListHistory returns the most recent playback events, newest first. A
// non-positive limit falls back to the default page size. Episode titles are
// joined in; events for episodes no longer in the cache keep an empty title.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT h.id, h.episode_id, COALESCE(e.title, ''), h.position_seconds, h.played_at
        FROM playback_history h
        LEFT JOIN episodes e ON e.id = h.episode_id
        ORDER BY h.played_at DESC, h.id DESC
        LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var (
			entry     HistoryEntry
			playedRaw sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.EpisodeID, &entry.EpisodeTitle, &entry.PositionSeconds, &playedRaw); err != nil {
			return nil, err
		}
		if played, err := parseTimeString(playedRaw.String); err == nil {
			entry.PlayedAt = played
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

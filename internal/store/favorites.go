package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"podkeep/internal/services"
)

// AddFavoriteEpisode marks an episode as a favorite. Adding an existing
// favorite is a no-op; the returned boolean reports whether a row was added.
func (s *Store) AddFavoriteEpisode(ctx context.Context, episodeID string) (bool, error) {
	if _, err := s.GetEpisode(ctx, episodeID); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO favorite_episodes (episode_id, created_at) VALUES (?, ?)
        ON CONFLICT (episode_id) DO NOTHING`,
		episodeID, nowStamp(),
	)
	if err != nil {
		return false, fmt.Errorf("add favorite episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RemoveFavoriteEpisode unmarks a favorite episode.
func (s *Store) RemoveFavoriteEpisode(ctx context.Context, episodeID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorite_episodes WHERE episode_id = ?`, episodeID)
	if err != nil {
		return fmt.Errorf("remove favorite episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "favorite", episodeID, nil)
	}
	return nil
}

// IsFavoriteEpisode reports whether the episode is marked as a favorite.
func (s *Store) IsFavoriteEpisode(ctx context.Context, episodeID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM favorite_episodes WHERE episode_id = ?`, episodeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check favorite episode: %w", err)
	}
	return true, nil
}

// ListFavoriteEpisodes returns the favorited episodes, most recently
// favorited first.
func (s *Store) ListFavoriteEpisodes(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT e.id, e.title, e.description, e.publish_date, e.audio_url, e.image_url, e.duration_seconds, e.created_at, e.updated_at
        FROM favorite_episodes f
        JOIN episodes e ON e.id = f.episode_id
        ORDER BY f.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list favorite episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

const songColumns = "id, episode_id, position_seconds, song_title, artist, spotify_url, created_at, updated_at"

// AddFavoriteSong records a track heard at a position inside an episode and
// returns the stored row.
func (s *Store) AddFavoriteSong(ctx context.Context, song *SongFavorite) (*SongFavorite, error) {
	if song.EpisodeID == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "song", "episode id is required", nil)
	}
	if song.SongTitle == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "song", "song title is required", nil)
	}
	timestamp := nowStamp()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO favorite_songs (episode_id, position_seconds, song_title, artist, spotify_url, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		song.EpisodeID, song.PositionSeconds, song.SongTitle, song.Artist, nullableString(song.SpotifyURL), timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("add favorite song: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetFavoriteSong(ctx, id)
}

// UpdateFavoriteSong replaces the mutable fields of a stored song favorite.
func (s *Store) UpdateFavoriteSong(ctx context.Context, song *SongFavorite) (*SongFavorite, error) {
	if song.SongTitle == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "song", "song title is required", nil)
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE favorite_songs SET position_seconds = ?, song_title = ?, artist = ?, spotify_url = ?, updated_at = ?
        WHERE id = ?`,
		song.PositionSeconds, song.SongTitle, song.Artist, nullableString(song.SpotifyURL), nowStamp(), song.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update favorite song: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrNotFound, "store", "song", fmt.Sprintf("%d", song.ID), nil)
	}
	return s.GetFavoriteSong(ctx, song.ID)
}

// RemoveFavoriteSong deletes a song favorite.
func (s *Store) RemoveFavoriteSong(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorite_songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove favorite song: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "song", fmt.Sprintf("%d", id), nil)
	}
	return nil
}

// GetFavoriteSong fetches one song favorite by id.
func (s *Store) GetFavoriteSong(ctx context.Context, id int64) (*SongFavorite, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+songColumns+` FROM favorite_songs WHERE id = ?`, id)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "song", fmt.Sprintf("%d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get favorite song: %w", err)
	}
	return song, nil
}

// ListFavoriteSongs returns song favorites, optionally filtered to a single
// episode, ordered by position within the episode.
func (s *Store) ListFavoriteSongs(ctx context.Context, episodeID string) ([]*SongFavorite, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if episodeID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+songColumns+` FROM favorite_songs ORDER BY created_at DESC, id DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+songColumns+` FROM favorite_songs WHERE episode_id = ? ORDER BY position_seconds, id`, episodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("list favorite songs: %w", err)
	}
	defer rows.Close()

	var songs []*SongFavorite
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func scanSong(scanner interface{ Scan(dest ...any) error }) (*SongFavorite, error) {
	var (
		song       SongFavorite
		spotifyURL sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&song.ID, &song.EpisodeID, &song.PositionSeconds, &song.SongTitle, &song.Artist, &spotifyURL, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	song.SpotifyURL = spotifyURL.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		song.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		song.UpdatedAt = updated
	}
	return &song, nil
}

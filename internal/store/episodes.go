package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"podkeep/internal/services"
)

const episodeColumns = "id, title, description, publish_date, audio_url, image_url, duration_seconds, created_at, updated_at"

// UpsertEpisode inserts or updates an episode keyed by its id. Re-adding an
// existing id updates the record in place; the returned boolean reports
// whether a new row was created.
func (s *Store) UpsertEpisode(ctx context.Context, ep Episode) (bool, error) {
	if strings.TrimSpace(ep.ID) == "" {
		return false, services.Wrap(services.ErrValidation, "store", "upsert episode", "episode id is required", nil)
	}
	if strings.TrimSpace(ep.Title) == "" || strings.TrimSpace(ep.AudioURL) == "" {
		return false, services.Wrap(services.ErrValidation, "store", "upsert episode", "title and audio_url are required", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM episodes WHERE id = ?", ep.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check episode: %w", err)
	}

	timestamp := nowStamp()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO episodes (id, title, description, publish_date, audio_url, image_url, duration_seconds, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            description = excluded.description,
            publish_date = excluded.publish_date,
            audio_url = excluded.audio_url,
            image_url = excluded.image_url,
            duration_seconds = excluded.duration_seconds,
            updated_at = excluded.updated_at`,
		ep.ID,
		ep.Title,
		nullableString(ep.Description),
		nullableString(ep.PublishDate),
		ep.AudioURL,
		nullableString(ep.ImageURL),
		ep.DurationSeconds,
		timestamp,
		timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("upsert episode: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit upsert: %w", err)
	}
	return exists == 0, nil
}

// GetEpisode fetches an episode by id.
func (s *Store) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "episode", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// ListEpisodes returns all cached episodes, newest publish date first.
func (s *Store) ListEpisodes(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM episodes ORDER BY publish_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id          string
		title       string
		description sql.NullString
		publishDate sql.NullString
		audioURL    string
		imageURL    sql.NullString
		duration    sql.NullInt64
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &title, &description, &publishDate, &audioURL, &imageURL, &duration, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	ep := &Episode{
		ID:              id,
		Title:           title,
		Description:     description.String,
		PublishDate:     publishDate.String,
		AudioURL:        audioURL,
		ImageURL:        imageURL.String,
		DurationSeconds: int(duration.Int64),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		ep.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		ep.UpdatedAt = updated
	}
	return ep, nil
}

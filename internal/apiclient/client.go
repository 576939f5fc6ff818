// Package apiclient is the HTTP client the CLI uses to talk to a running
// podkeep daemon.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"podkeep/internal/api"
	"podkeep/internal/config"
	"podkeep/internal/services/spotify"
)

// Client issues requests against the daemon API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New builds a client for the daemon bound per the given config.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is not set")
	}
	client := &Client{
		baseURL:    "http://" + bind,
		token:      cfg.Paths.APIToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewForAddress builds a client for an explicit host:port, used when the
// CLI points at a non-default daemon.
func NewForAddress(addr, token string, opts ...Option) *Client {
	client := &Client{
		baseURL:    "http://" + strings.TrimSpace(addr),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("daemon returned %d", e.StatusCode)
}

// Health reports whether the daemon answers on its API port.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.get(ctx, "/api/health", &out)
}

// Status fetches the daemon status summary.
func (c *Client) Status(ctx context.Context) (*api.Status, error) {
	var out struct {
		Status api.Status `json:"status"`
	}
	if err := c.get(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out.Status, nil
}

// ListEpisodes fetches the cached episodes.
func (c *Client) ListEpisodes(ctx context.Context) ([]api.Episode, error) {
	var out struct {
		Episodes []api.Episode `json:"episodes"`
	}
	if err := c.get(ctx, "/api/episodes", &out); err != nil {
		return nil, err
	}
	return out.Episodes, nil
}

// GetEpisode fetches one episode.
func (c *Client) GetEpisode(ctx context.Context, id string) (*api.Episode, error) {
	var out struct {
		Episode api.Episode `json:"episode"`
	}
	if err := c.get(ctx, "/api/episodes/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out.Episode, nil
}

// RandomEpisode fetches a random cached episode.
func (c *Client) RandomEpisode(ctx context.Context) (*api.Episode, error) {
	var out struct {
		Episode api.Episode `json:"episode"`
	}
	if err := c.get(ctx, "/api/episodes/random", &out); err != nil {
		return nil, err
	}
	return &out.Episode, nil
}

// RefreshFeed triggers a feed ingestion pass.
func (c *Client) RefreshFeed(ctx context.Context) (*api.RefreshSummary, error) {
	var out struct {
		Refresh api.RefreshSummary `json:"refresh"`
	}
	if err := c.post(ctx, "/api/episodes/refresh", nil, &out); err != nil {
		return nil, err
	}
	return &out.Refresh, nil
}

// StartDownload creates a download task for an episode.
func (c *Client) StartDownload(ctx context.Context, episodeID string) (*api.Task, error) {
	var out struct {
		Task api.Task `json:"task"`
	}
	if err := c.post(ctx, "/api/episodes/"+url.PathEscape(episodeID)+"/download", nil, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// DownloadAll creates tasks for every cached episode.
func (c *Client) DownloadAll(ctx context.Context) (*api.BatchCreated, error) {
	var out struct {
		Batch api.BatchCreated `json:"batch"`
	}
	if err := c.post(ctx, "/api/downloads/all", nil, &out); err != nil {
		return nil, err
	}
	return &out.Batch, nil
}

// ListDownloads fetches tasks, optionally filtered by status.
func (c *Client) ListDownloads(ctx context.Context, statuses ...string) ([]api.Task, error) {
	endpoint := "/api/downloads"
	if len(statuses) > 0 {
		params := url.Values{}
		for _, status := range statuses {
			params.Add("status", status)
		}
		endpoint += "?" + params.Encode()
	}
	var out struct {
		Downloads []api.Task `json:"downloads"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Downloads, nil
}

// DownloadStatus fetches one task.
func (c *Client) DownloadStatus(ctx context.Context, taskID string) (*api.Task, error) {
	var out struct {
		Task api.Task `json:"task"`
	}
	if err := c.get(ctx, "/api/downloads/"+url.PathEscape(taskID)+"/status", &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// BatchStatus fetches one batch.
func (c *Client) BatchStatus(ctx context.Context, batchID string) (*api.Batch, error) {
	var out struct {
		Batch api.Batch `json:"batch"`
	}
	if err := c.get(ctx, "/api/batches/"+url.PathEscape(batchID)+"/status", &out); err != nil {
		return nil, err
	}
	return &out.Batch, nil
}

// CancelDownload cancels a non-terminal task.
func (c *Client) CancelDownload(ctx context.Context, taskID string) (*api.Task, error) {
	var out struct {
		Task api.Task `json:"task"`
	}
	if err := c.post(ctx, "/api/downloads/"+url.PathEscape(taskID)+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// DeleteDownload removes a terminal task and its artifact.
func (c *Client) DeleteDownload(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/downloads/"+url.PathEscape(taskID), nil, nil)
}

// ListFavoriteEpisodes fetches favorited episodes.
func (c *Client) ListFavoriteEpisodes(ctx context.Context) ([]api.Episode, error) {
	var out struct {
		Episodes []api.Episode `json:"episodes"`
	}
	if err := c.get(ctx, "/api/favorites/episodes", &out); err != nil {
		return nil, err
	}
	return out.Episodes, nil
}

// AddFavoriteEpisode marks an episode as favorite.
func (c *Client) AddFavoriteEpisode(ctx context.Context, episodeID string) error {
	return c.post(ctx, "/api/favorites/episodes/"+url.PathEscape(episodeID), nil, nil)
}

// RemoveFavoriteEpisode unmarks a favorite episode.
func (c *Client) RemoveFavoriteEpisode(ctx context.Context, episodeID string) error {
	return c.do(ctx, http.MethodDelete, "/api/favorites/episodes/"+url.PathEscape(episodeID), nil, nil)
}

// SongRequest carries the writable fields of a song favorite.
type SongRequest struct {
	EpisodeID       string `json:"episode_id"`
	PositionSeconds int    `json:"position_seconds"`
	SongTitle       string `json:"song_title"`
	Artist          string `json:"artist"`
	SpotifyURL      string `json:"spotify_url,omitempty"`
}

// ListSongs fetches favorite songs, optionally for one episode.
func (c *Client) ListSongs(ctx context.Context, episodeID string) ([]api.Song, error) {
	endpoint := "/api/favorites/songs"
	if episodeID != "" {
		endpoint += "?episode_id=" + url.QueryEscape(episodeID)
	}
	var out struct {
		Songs []api.Song `json:"songs"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Songs, nil
}

// AddSong records a favorite song.
func (c *Client) AddSong(ctx context.Context, req SongRequest) (*api.Song, error) {
	var out struct {
		Song api.Song `json:"song"`
	}
	if err := c.post(ctx, "/api/favorites/songs", req, &out); err != nil {
		return nil, err
	}
	return &out.Song, nil
}

// UpdateSong replaces a favorite song's fields.
func (c *Client) UpdateSong(ctx context.Context, id int64, req SongRequest) (*api.Song, error) {
	var out struct {
		Song api.Song `json:"song"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/favorites/songs/"+strconv.FormatInt(id, 10), req, &out); err != nil {
		return nil, err
	}
	return &out.Song, nil
}

// RemoveSong deletes a favorite song.
func (c *Client) RemoveSong(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/favorites/songs/"+strconv.FormatInt(id, 10), nil, nil)
}

// History fetches recent playback events.
func (c *Client) History(ctx context.Context, limit int) ([]api.HistoryEntry, error) {
	endpoint := "/api/history"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		History []api.HistoryEntry `json:"history"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// AddHistory appends a playback event.
func (c *Client) AddHistory(ctx context.Context, episodeID string, positionSeconds int) error {
	body := map[string]any{"episode_id": episodeID, "position_seconds": positionSeconds}
	return c.post(ctx, "/api/history", body, nil)
}

// SearchResult mirrors the daemon's catalog search response.
type SearchResult struct {
	Demo   bool            `json:"demo"`
	Tracks []spotify.Track `json:"tracks"`
}

// SearchTracks queries the catalog search endpoint.
func (c *Client) SearchTracks(ctx context.Context, artist, title string) (*SearchResult, error) {
	params := url.Values{}
	if artist != "" {
		params.Set("artist", artist)
	}
	if title != "" {
		params.Set("title", title)
	}
	var out SearchResult
	if err := c.get(ctx, "/api/spotify/search?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return &APIError{StatusCode: resp.StatusCode, Message: failure.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

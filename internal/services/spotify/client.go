// Package spotify searches the Spotify catalog for tracks heard in episodes.
//
// Credentials are optional. Without them the client runs in demo mode and
// returns canned results flagged as such, so the rest of the system keeps
// working against an unconfigured catalog.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"podkeep/internal/config"
)

// Track is a single catalog match, normalized for API responses.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artists    string `json:"artists"`
	Album      string `json:"album"`
	PreviewURL string `json:"preview_url,omitempty"`
	SpotifyURL string `json:"spotify_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// SearchResult carries catalog matches plus a flag marking canned demo
// output from an unconfigured client.
type SearchResult struct {
	Tracks []Track `json:"tracks"`
	Demo   bool    `json:"demo"`
}

// Searcher defines the catalog operations the API server depends on.
type Searcher interface {
	SearchTrack(ctx context.Context, artist, title string) (*SearchResult, error)
	Configured() bool
}

// Client talks to the Spotify Web API using the client-credentials flow.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	authURL      string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ Searcher = (*Client)(nil)

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

// WithBaseURLs overrides the API and auth endpoints, mainly for tests.
func WithBaseURLs(baseURL, authURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
		if authURL != "" {
			c.authURL = authURL
		}
	}
}

// New creates a Spotify client from configuration. Missing credentials are
// not an error; the client starts in demo mode instead.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.Spotify.BaseURL)
	if baseURL == "" {
		return nil, errors.New("spotify base url required")
	}
	authURL := strings.TrimSpace(cfg.Spotify.AuthURL)
	if authURL == "" {
		return nil, errors.New("spotify auth url required")
	}

	client := &Client{
		clientID:     strings.TrimSpace(cfg.Spotify.ClientID),
		clientSecret: strings.TrimSpace(cfg.Spotify.ClientSecret),
		baseURL:      strings.TrimRight(baseURL, "/"),
		authURL:      authURL,
		httpClient:   &http.Client{Timeout: time.Duration(cfg.Spotify.RequestTimeout) * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Configured reports whether real credentials are present.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// SearchTrack searches the catalog for a track. At least one of artist and
// title must be non-empty. An unconfigured client returns demo results.
func (c *Client) SearchTrack(ctx context.Context, artist, title string) (*SearchResult, error) {
	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	if artist == "" && title == "" {
		return nil, errors.New("artist or title must not be empty")
	}

	if !c.Configured() {
		return demoResult(artist, title), nil
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse spotify url: %w", err)
	}
	params := url.Values{}
	params.Set("q", buildQuery(artist, title))
	params.Set("type", "track")
	params.Set("limit", "10")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify search returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload searchPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode spotify response: %w", err)
	}

	result := &SearchResult{Tracks: make([]Track, 0, len(payload.Tracks.Items))}
	for _, item := range payload.Tracks.Items {
		result.Tracks = append(result.Tracks, normalizeTrack(item))
	}
	return result, nil
}

// token returns a cached access token, fetching a fresh one when the cached
// token is expired or close to it.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > 30*time.Second {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify token endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("spotify token response missing access_token")
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func buildQuery(artist, title string) string {
	var parts []string
	if title != "" {
		parts = append(parts, "track:"+title)
	}
	if artist != "" {
		parts = append(parts, "artist:"+artist)
	}
	return strings.Join(parts, " ")
}

type searchPayload struct {
	Tracks struct {
		Items []trackPayload `json:"items"`
	} `json:"tracks"`
}

type trackPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	PreviewURL   string `json:"preview_url"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

func normalizeTrack(item trackPayload) Track {
	names := make([]string, 0, len(item.Artists))
	for _, artist := range item.Artists {
		if artist.Name != "" {
			names = append(names, artist.Name)
		}
	}
	track := Track{
		ID:         item.ID,
		Name:       item.Name,
		Artists:    strings.Join(names, ", "),
		Album:      item.Album.Name,
		PreviewURL: item.PreviewURL,
		SpotifyURL: item.ExternalURLs.Spotify,
	}
	if len(item.Album.Images) > 0 {
		track.ImageURL = item.Album.Images[0].URL
	}
	return track
}

func demoResult(artist, title string) *SearchResult {
	name := title
	if name == "" {
		name = "Sample Track"
	}
	displayArtist := artist
	if displayArtist == "" {
		displayArtist = "Sample Artist"
	}
	return &SearchResult{
		Demo: true,
		Tracks: []Track{
			{
				ID:      "demo-1",
				Name:    name,
				Artists: displayArtist,
				Album:   "Demo Results",
			},
			{
				ID:      "demo-2",
				Name:    name + " (Extended Mix)",
				Artists: displayArtist,
				Album:   "Demo Results",
			},
		},
	}
}

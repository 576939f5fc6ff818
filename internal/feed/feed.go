// Package feed ingests the configured podcast RSS feed into the episode cache.
package feed

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"podkeep/internal/config"
	"podkeep/internal/logging"
	"podkeep/internal/services"
	"podkeep/internal/store"
)

// Service fetches the feed and keeps the store's episode cache current.
type Service struct {
	store  *store.Store
	url    string
	client *http.Client
	logger *slog.Logger
}

// RefreshResult summarizes one feed ingestion pass.
type RefreshResult struct {
	Total   int
	Added   int
	Updated int
}

// NewService builds a feed service from configuration.
func NewService(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Service, error) {
	if st == nil {
		return nil, services.Wrap(services.ErrConfiguration, "feed", "new", "store is required", nil)
	}
	if strings.TrimSpace(cfg.Feed.URL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "feed", "new", "feed url is not set", nil)
	}
	return &Service{
		store:  st,
		url:    cfg.Feed.URL,
		client: &http.Client{Timeout: cfg.FeedTimeout()},
		logger: logging.WithComponent(logger, "feed"),
	}, nil
}

// Refresh fetches and parses the feed, then upserts every playable item
// into the episode cache. Items without an audio enclosure are skipped.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	parser := gofeed.NewParser()
	parser.Client = s.client

	parsed, err := parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return RefreshResult{}, services.Wrap(services.ErrTransfer, "feed", "refresh", "fetch feed", err)
	}

	result := RefreshResult{}
	for _, item := range parsed.Items {
		episode, ok := episodeFromItem(item)
		if !ok {
			continue
		}
		result.Total++
		created, err := s.store.UpsertEpisode(ctx, episode)
		if err != nil {
			return RefreshResult{}, err
		}
		if created {
			result.Added++
		} else {
			result.Updated++
		}
	}

	s.logger.Info("feed refreshed",
		logging.String("feed", parsed.Title),
		logging.Int("total", result.Total),
		logging.Int("added", result.Added),
	)
	return result, nil
}

func episodeFromItem(item *gofeed.Item) (store.Episode, bool) {
	audioURL := enclosureURL(item)
	if audioURL == "" {
		return store.Episode{}, false
	}

	episode := store.Episode{
		ID:       episodeID(item, audioURL),
		Title:    strings.TrimSpace(item.Title),
		AudioURL: audioURL,
	}
	if episode.Title == "" {
		episode.Title = "Untitled episode"
	}
	episode.Description = strings.TrimSpace(item.Description)
	if item.PublishedParsed != nil {
		episode.PublishDate = item.PublishedParsed.UTC().Format("2006-01-02T15:04:05Z")
	}
	if item.Image != nil {
		episode.ImageURL = item.Image.URL
	}
	if item.ITunesExt != nil {
		if episode.ImageURL == "" {
			episode.ImageURL = item.ITunesExt.Image
		}
		episode.DurationSeconds = parseDuration(item.ITunesExt.Duration)
	}
	return episode, true
}

func enclosureURL(item *gofeed.Item) string {
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		if enclosure.Type == "" || strings.HasPrefix(enclosure.Type, "audio/") {
			return enclosure.URL
		}
	}
	return ""
}

// episodeID prefers the feed GUID and falls back to a hash of the audio URL
// so items stay stable across refreshes either way.
func episodeID(item *gofeed.Item, audioURL string) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	sum := sha1.Sum([]byte(audioURL))
	return "ep-" + hex.EncodeToString(sum[:6])
}

// parseDuration accepts the iTunes duration forms: plain seconds, MM:SS, or
// HH:MM:SS. Anything unparseable yields zero.
func parseDuration(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if !strings.Contains(raw, ":") {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			return 0
		}
		return seconds
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0
	}
	total := 0
	for _, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || value < 0 {
			return 0
		}
		total = total*60 + value
	}
	return total
}

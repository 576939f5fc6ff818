package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"podkeep/internal/feed"
	"podkeep/internal/logging"
	"podkeep/internal/testsupport"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
  <channel>
    <title>The Weekendmix</title>
    <item>
      <title>Weekendmix 501</title>
      <guid>wm-501</guid>
      <description>Two hours of classics.</description>
      <pubDate>Fri, 12 Jan 2024 18:00:00 GMT</pubDate>
      <itunes:duration>2:01:30</itunes:duration>
      <enclosure url="https://cdn.example.com/wm-501.mp3" type="audio/mpeg" length="174000000"/>
    </item>
    <item>
      <title>Weekendmix 500</title>
      <description>No guid on this one.</description>
      <pubDate>Fri, 05 Jan 2024 18:00:00 GMT</pubDate>
      <itunes:duration>7290</itunes:duration>
      <enclosure url="https://cdn.example.com/wm-500.mp3" type="audio/mpeg" length="173000000"/>
    </item>
    <item>
      <title>Show notes only</title>
      <guid>wm-notes</guid>
    </item>
  </channel>
</rss>`

func TestRefreshUpsertsEpisodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedFixture))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithFeedURL(server.URL))
	st := testsupport.MustOpenStore(t, cfg)

	svc, err := feed.NewService(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("feed.NewService: %v", err)
	}

	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// The item without an enclosure is not playable and is skipped.
	if result.Total != 2 || result.Added != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	ep, err := st.GetEpisode(context.Background(), "wm-501")
	if err != nil {
		t.Fatalf("get wm-501: %v", err)
	}
	if ep.AudioURL != "https://cdn.example.com/wm-501.mp3" {
		t.Fatalf("audio url = %q", ep.AudioURL)
	}
	if ep.DurationSeconds != 2*3600+60+30 {
		t.Fatalf("duration = %d", ep.DurationSeconds)
	}
	if ep.PublishDate != "2024-01-12T18:00:00Z" {
		t.Fatalf("publish date = %q", ep.PublishDate)
	}

	episodes, err := st.ListEpisodes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("episodes = %d, want 2", len(episodes))
	}
	// The guid-less item got a stable derived id.
	for _, ep := range episodes {
		if ep.ID == "" {
			t.Fatalf("episode with empty id: %+v", ep)
		}
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedFixture))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithFeedURL(server.URL))
	st := testsupport.MustOpenStore(t, cfg)

	svc, err := feed.NewService(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("feed.NewService: %v", err)
	}

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if result.Added != 0 || result.Updated != 2 {
		t.Fatalf("second refresh should update in place: %+v", result)
	}
}

func TestRefreshFailsOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithFeedURL(server.URL))
	st := testsupport.MustOpenStore(t, cfg)

	svc, err := feed.NewService(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("feed.NewService: %v", err)
	}
	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected error from failing feed server")
	}
}

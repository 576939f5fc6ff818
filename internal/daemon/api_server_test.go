package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"podkeep/internal/config"
	"podkeep/internal/daemon"
	"podkeep/internal/download"
	"podkeep/internal/logging"
	"podkeep/internal/services/spotify"
	"podkeep/internal/store"
	"podkeep/internal/testsupport"
)

type testHarness struct {
	cfg     *config.Config
	store   *store.Store
	manager *download.Manager
	daemon  *daemon.Daemon
	base    string
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *testHarness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	mgr := download.NewManager(cfg, st, logging.NewNop())

	catalog, err := spotify.New(cfg)
	if err != nil {
		t.Fatalf("spotify.New: %v", err)
	}

	d, err := daemon.New(cfg, st, logging.NewNop(), mgr, nil, catalog)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &testHarness{
		cfg:     cfg,
		store:   st,
		manager: mgr,
		daemon:  d,
		base:    "http://" + d.APIAddr(),
	}
}

func (h *testHarness) request(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.base+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	payload := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response for %s %s: %v", method, path, err)
	}
	return resp, payload
}

func TestHealthAndStatus(t *testing.T) {
	h := newHarness(t)

	resp, payload := h.request(t, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK || payload["success"] != true {
		t.Fatalf("health: %d %v", resp.StatusCode, payload)
	}

	resp, payload = h.request(t, http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	status, ok := payload["status"].(map[string]any)
	if !ok {
		t.Fatalf("missing status payload: %v", payload)
	}
	if status["running"] != true {
		t.Fatalf("daemon should report running: %v", status)
	}
	if status["spotify_configured"] != false {
		t.Fatalf("unconfigured spotify should report false: %v", status)
	}
}

func TestEpisodeEndpoints(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedEpisode(t, h.store, "ep-1", "Weekendmix 501", "https://cdn.example.com/wm-501.mp3")

	resp, payload := h.request(t, http.MethodGet, "/api/episodes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list code = %d", resp.StatusCode)
	}
	episodes, ok := payload["episodes"].([]any)
	if !ok || len(episodes) != 1 {
		t.Fatalf("unexpected episodes payload: %v", payload)
	}

	resp, payload = h.request(t, http.MethodGet, "/api/episodes/ep-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get code = %d", resp.StatusCode)
	}
	episode := payload["episode"].(map[string]any)
	if episode["title"] != "Weekendmix 501" {
		t.Fatalf("unexpected episode: %v", episode)
	}

	resp, _ = h.request(t, http.MethodGet, "/api/episodes/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing episode code = %d, want 404", resp.StatusCode)
	}

	resp, payload = h.request(t, http.MethodGet, "/api/episodes/random", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("random code = %d", resp.StatusCode)
	}
	if payload["episode"].(map[string]any)["id"] != "ep-1" {
		t.Fatalf("unexpected random episode: %v", payload)
	}
}

func TestUpsertEpisodeEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, payload := h.request(t, http.MethodPost, "/api/episodes", map[string]any{
		"id":        "ep-manual",
		"title":     "Manual Entry",
		"audio_url": "https://cdn.example.com/manual.mp3",
	})
	if resp.StatusCode != http.StatusCreated || payload["created"] != true {
		t.Fatalf("create: %d %v", resp.StatusCode, payload)
	}

	resp, payload = h.request(t, http.MethodPost, "/api/episodes", map[string]any{
		"id":        "ep-manual",
		"title":     "Manual Entry v2",
		"audio_url": "https://cdn.example.com/manual.mp3",
	})
	if resp.StatusCode != http.StatusOK || payload["created"] != false {
		t.Fatalf("update: %d %v", resp.StatusCode, payload)
	}

	resp, _ = h.request(t, http.MethodPost, "/api/episodes", map[string]any{"id": "bad"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("validation code = %d, want 400", resp.StatusCode)
	}
}

func TestDownloadEndpoints(t *testing.T) {
	payload := make([]byte, 16*1024)
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer source.Close()

	h := newHarness(t)
	testsupport.SeedEpisode(t, h.store, "ep-1", "Mix", source.URL+"/mix.mp3")

	resp, body := h.request(t, http.MethodPost, "/api/episodes/ep-1/download", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start code = %d: %v", resp.StatusCode, body)
	}
	taskID, ok := body["task_id"].(string)
	if !ok || taskID == "" {
		t.Fatalf("missing task_id: %v", body)
	}

	resp, _ = h.request(t, http.MethodPost, "/api/episodes/missing/download", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown episode code = %d, want 404", resp.StatusCode)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, body = h.request(t, http.MethodGet, "/api/downloads/"+taskID+"/status", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status code = %d", resp.StatusCode)
		}
		task := body["task"].(map[string]any)
		if task["status"] == "completed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never completed: %v", task)
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, body = h.request(t, http.MethodGet, "/api/downloads", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list code = %d", resp.StatusCode)
	}
	if downloads := body["downloads"].([]any); len(downloads) != 1 {
		t.Fatalf("downloads = %d, want 1", len(downloads))
	}

	req, _ := http.NewRequest(http.MethodGet, h.base+"/api/downloads/"+taskID+"/file", nil)
	fileResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	defer fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusOK {
		t.Fatalf("file code = %d", fileResp.StatusCode)
	}

	// Terminal task: cancel conflicts, delete succeeds.
	resp, _ = h.request(t, http.MethodPost, "/api/downloads/"+taskID+"/cancel", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cancel terminal code = %d, want 409", resp.StatusCode)
	}
	resp, _ = h.request(t, http.MethodDelete, "/api/downloads/"+taskID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete code = %d", resp.StatusCode)
	}
	resp, _ = h.request(t, http.MethodGet, "/api/downloads/"+taskID+"/status", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted task code = %d, want 404", resp.StatusCode)
	}
}

func TestDownloadAllEndpoint(t *testing.T) {
	payload := make([]byte, 4096)
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer source.Close()

	h := newHarness(t)

	resp, _ := h.request(t, http.MethodPost, "/api/downloads/all", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty cache code = %d, want 404", resp.StatusCode)
	}

	testsupport.SeedEpisode(t, h.store, "ep-1", "One", source.URL+"/1.mp3")
	testsupport.SeedEpisode(t, h.store, "ep-2", "Two", source.URL+"/2.mp3")

	resp, body := h.request(t, http.MethodPost, "/api/downloads/all", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download all code = %d: %v", resp.StatusCode, body)
	}
	batch := body["batch"].(map[string]any)
	batchID := batch["batch_id"].(string)
	if len(batch["task_ids"].([]any)) != 2 {
		t.Fatalf("unexpected batch payload: %v", batch)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, body = h.request(t, http.MethodGet, "/api/batches/"+batchID+"/status", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("batch status code = %d", resp.StatusCode)
		}
		status := body["batch"].(map[string]any)["status"].(string)
		if status != "in_progress" {
			if status != "completed" {
				t.Fatalf("batch status = %s, want completed", status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("batch never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFavoriteAndHistoryEndpoints(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedEpisode(t, h.store, "ep-1", "One", "https://cdn.example.com/1.mp3")

	resp, _ := h.request(t, http.MethodPost, "/api/favorites/episodes/ep-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("favorite code = %d", resp.StatusCode)
	}
	resp, body := h.request(t, http.MethodGet, "/api/favorites/episodes", nil)
	if resp.StatusCode != http.StatusOK || len(body["episodes"].([]any)) != 1 {
		t.Fatalf("favorites list: %d %v", resp.StatusCode, body)
	}

	resp, body = h.request(t, http.MethodPost, "/api/favorites/songs", map[string]any{
		"episode_id":       "ep-1",
		"position_seconds": 120,
		"song_title":       "Breathe",
		"artist":           "Telepopmusik",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add song code = %d: %v", resp.StatusCode, body)
	}
	songID := int64(body["song"].(map[string]any)["id"].(float64))

	resp, body = h.request(t, http.MethodPut, fmt.Sprintf("/api/favorites/songs/%d", songID), map[string]any{
		"episode_id":       "ep-1",
		"position_seconds": 130,
		"song_title":       "Breathe",
		"artist":           "Telepopmusik",
		"spotify_url":      "https://open.spotify.com/track/abc",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update song code = %d: %v", resp.StatusCode, body)
	}

	resp, body = h.request(t, http.MethodGet, "/api/favorites/songs?episode_id=ep-1", nil)
	if resp.StatusCode != http.StatusOK || len(body["songs"].([]any)) != 1 {
		t.Fatalf("songs list: %d %v", resp.StatusCode, body)
	}

	resp, _ = h.request(t, http.MethodDelete, fmt.Sprintf("/api/favorites/songs/%d", songID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete song code = %d", resp.StatusCode)
	}

	resp, _ = h.request(t, http.MethodPost, "/api/history", map[string]any{
		"episode_id":       "ep-1",
		"position_seconds": 90,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add history code = %d", resp.StatusCode)
	}
	resp, body = h.request(t, http.MethodGet, "/api/history?limit=5", nil)
	if resp.StatusCode != http.StatusOK || len(body["history"].([]any)) != 1 {
		t.Fatalf("history list: %d %v", resp.StatusCode, body)
	}

	resp, _ = h.request(t, http.MethodDelete, "/api/favorites/episodes/ep-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unfavorite code = %d", resp.StatusCode)
	}
}

func TestSpotifySearchEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, body := h.request(t, http.MethodGet, "/api/spotify/search?artist=Moby&title=Porcelain", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search code = %d", resp.StatusCode)
	}
	if body["demo"] != true {
		t.Fatalf("unconfigured search should be demo: %v", body)
	}

	resp, _ = h.request(t, http.MethodGet, "/api/spotify/search", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty query code = %d, want 400", resp.StatusCode)
	}
}

func TestBearerTokenAuth(t *testing.T) {
	h := newHarness(t, testsupport.WithAPIToken("sekrit"))

	resp, err := http.Get(h.base + "/api/health")
	if err != nil {
		t.Fatalf("unauthenticated request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, h.base+"/api/health", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authenticated request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("code = %d, want 200", resp.StatusCode)
	}
}

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"podkeep/internal/api"
	"podkeep/internal/config"
	"podkeep/internal/logging"
	"podkeep/internal/services"
	"podkeep/internal/store"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is not set")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.HandleFunc("GET /api/status", srv.handleStatus)

	mux.HandleFunc("GET /api/episodes", srv.handleListEpisodes)
	mux.HandleFunc("POST /api/episodes", srv.handleUpsertEpisode)
	mux.HandleFunc("POST /api/episodes/refresh", srv.handleRefresh)
	mux.HandleFunc("GET /api/episodes/random", srv.handleRandomEpisode)
	mux.HandleFunc("GET /api/episodes/{id}", srv.handleGetEpisode)
	mux.HandleFunc("POST /api/episodes/{id}/download", srv.handleStartDownload)

	mux.HandleFunc("GET /api/downloads", srv.handleListDownloads)
	mux.HandleFunc("POST /api/downloads/all", srv.handleDownloadAll)
	mux.HandleFunc("GET /api/downloads/{id}/status", srv.handleDownloadStatus)
	mux.HandleFunc("POST /api/downloads/{id}/cancel", srv.handleCancelDownload)
	mux.HandleFunc("DELETE /api/downloads/{id}", srv.handleDeleteDownload)
	mux.HandleFunc("GET /api/downloads/{id}/file", srv.handleDownloadFile)
	mux.HandleFunc("GET /api/batches/{id}/status", srv.handleBatchStatus)

	mux.HandleFunc("GET /api/favorites/episodes", srv.handleListFavoriteEpisodes)
	mux.HandleFunc("POST /api/favorites/episodes/{id}", srv.handleAddFavoriteEpisode)
	mux.HandleFunc("DELETE /api/favorites/episodes/{id}", srv.handleRemoveFavoriteEpisode)

	mux.HandleFunc("GET /api/favorites/songs", srv.handleListSongs)
	mux.HandleFunc("POST /api/favorites/songs", srv.handleAddSong)
	mux.HandleFunc("PUT /api/favorites/songs/{id}", srv.handleUpdateSong)
	mux.HandleFunc("DELETE /api/favorites/songs/{id}", srv.handleRemoveSong)

	mux.HandleFunc("GET /api/history", srv.handleListHistory)
	mux.HandleFunc("POST /api/history", srv.handleAddHistory)

	mux.HandleFunc("GET /api/spotify/search", srv.handleSpotifySearch)

	srv.server = &http.Server{
		Handler:           authMiddleware(cfg.Paths.APIToken, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.daemon.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	info := s.daemon.Status()

	tasks := make(map[string]int, len(stats.Tasks))
	for status, count := range stats.Tasks {
		tasks[string(status)] = count
	}
	payload := api.Status{
		Running:          info.Running,
		PID:              info.PID,
		DatabasePath:     info.DatabasePath,
		Episodes:         stats.Episodes,
		FavoriteEpisodes: stats.FavoriteEpisodes,
		FavoriteSongs:    stats.FavoriteSongs,
		Tasks:            tasks,
	}
	if s.daemon.catalog != nil {
		payload.SpotifyConfigured = s.daemon.catalog.Configured()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": payload})
}

func (s *apiServer) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.daemon.store.ListEpisodes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views, err := s.episodeViews(r.Context(), episodes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "episodes": views})
}

func (s *apiServer) handleUpsertEpisode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID              string `json:"id"`
		Title           string `json:"title"`
		Description     string `json:"description"`
		PublishDate     string `json:"publish_date"`
		AudioURL        string `json:"audio_url"`
		ImageURL        string `json:"image_url"`
		DurationSeconds int    `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.daemon.store.UpsertEpisode(r.Context(), store.Episode{
		ID:              body.ID,
		Title:           body.Title,
		Description:     body.Description,
		PublishDate:     body.PublishDate,
		AudioURL:        body.AudioURL,
		ImageURL:        body.ImageURL,
		DurationSeconds: body.DurationSeconds,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, map[string]any{"success": true, "created": created, "id": body.ID})
}

func (s *apiServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.daemon.feedSvc == nil {
		s.writeErrorMessage(w, http.StatusServiceUnavailable, "feed service unavailable")
		return
	}
	result, err := s.daemon.feedSvc.Refresh(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"refresh": api.RefreshSummary{Total: result.Total, Added: result.Added, Updated: result.Updated},
	})
}

func (s *apiServer) handleRandomEpisode(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.daemon.store.ListEpisodes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(episodes) == 0 {
		s.writeErrorMessage(w, http.StatusNotFound, "no episodes cached")
		return
	}
	episode := episodes[rand.IntN(len(episodes))]
	favorite, err := s.daemon.store.IsFavoriteEpisode(r.Context(), episode.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "episode": api.FromEpisode(episode, favorite)})
}

func (s *apiServer) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := s.daemon.store.GetEpisode(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	favorite, err := s.daemon.store.IsFavoriteEpisode(r.Context(), episode.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "episode": api.FromEpisode(episode, favorite)})
}

func (s *apiServer) handleStartDownload(w http.ResponseWriter, r *http.Request) {
	task, err := s.daemon.manager.Create(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "task_id": task.ID, "task": api.FromTask(task)})
}

func (s *apiServer) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	var statuses []store.TaskStatus
	for _, value := range r.URL.Query()["status"] {
		status, ok := store.ParseTaskStatus(value)
		if !ok {
			s.writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}
	tasks, err := s.daemon.manager.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "downloads": api.FromTasks(tasks)})
}

func (s *apiServer) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.manager.DownloadAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"batch":   api.BatchCreated{BatchID: result.Batch.ID, TaskIDs: result.TaskIDs},
	})
}

func (s *apiServer) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.daemon.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "task": api.FromTask(task)})
}

func (s *apiServer) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	batch, err := s.daemon.manager.GetBatch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "batch": api.FromBatch(batch)})
}

func (s *apiServer) handleCancelDownload(w http.ResponseWriter, r *http.Request) {
	task, err := s.daemon.manager.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "task": api.FromTask(task)})
}

func (s *apiServer) handleDeleteDownload(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.manager.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *apiServer) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	task, err := s.daemon.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if task.Status != store.TaskCompleted || task.LocalPath == "" {
		s.writeErrorMessage(w, http.StatusNotFound, "no file for this task")
		return
	}
	if _, err := os.Stat(task.LocalPath); err != nil {
		s.writeErrorMessage(w, http.StatusNotFound, "artifact missing from disk")
		return
	}
	http.ServeFile(w, r, task.LocalPath)
}

func (s *apiServer) handleListFavoriteEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.daemon.store.ListFavoriteEpisodes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]api.Episode, 0, len(episodes))
	for _, episode := range episodes {
		views = append(views, api.FromEpisode(episode, true))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "episodes": views})
}

func (s *apiServer) handleAddFavoriteEpisode(w http.ResponseWriter, r *http.Request) {
	added, err := s.daemon.store.AddFavoriteEpisode(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "added": added})
}

func (s *apiServer) handleRemoveFavoriteEpisode(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.store.RemoveFavoriteEpisode(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *apiServer) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.daemon.store.ListFavoriteSongs(r.Context(), r.URL.Query().Get("episode_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "songs": api.FromSongs(songs)})
}

type songBody struct {
	EpisodeID       string `json:"episode_id"`
	PositionSeconds int    `json:"position_seconds"`
	SongTitle       string `json:"song_title"`
	Artist          string `json:"artist"`
	SpotifyURL      string `json:"spotify_url"`
}

func (s *apiServer) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var body songBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	song, err := s.daemon.store.AddFavoriteSong(r.Context(), &store.SongFavorite{
		EpisodeID:       body.EpisodeID,
		PositionSeconds: body.PositionSeconds,
		SongTitle:       body.SongTitle,
		Artist:          body.Artist,
		SpotifyURL:      body.SpotifyURL,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "song": api.FromSong(song)})
}

func (s *apiServer) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid song id")
		return
	}
	var body songBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	song, err := s.daemon.store.UpdateFavoriteSong(r.Context(), &store.SongFavorite{
		ID:              id,
		EpisodeID:       body.EpisodeID,
		PositionSeconds: body.PositionSeconds,
		SongTitle:       body.SongTitle,
		Artist:          body.Artist,
		SpotifyURL:      body.SpotifyURL,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "song": api.FromSong(song)})
}

func (s *apiServer) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid song id")
		return
	}
	if err := s.daemon.store.RemoveFavoriteSong(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *apiServer) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.daemon.store.ListHistory(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]api.HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		views = append(views, api.FromHistory(entry))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "history": views})
}

func (s *apiServer) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EpisodeID       string `json:"episode_id"`
		PositionSeconds int    `json:"position_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.EpisodeID) == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "episode_id is required")
		return
	}
	if err := s.daemon.store.AddHistory(r.Context(), body.EpisodeID, body.PositionSeconds); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (s *apiServer) handleSpotifySearch(w http.ResponseWriter, r *http.Request) {
	if s.daemon.catalog == nil {
		s.writeErrorMessage(w, http.StatusServiceUnavailable, "catalog search unavailable")
		return
	}
	artist := r.URL.Query().Get("artist")
	title := r.URL.Query().Get("title")
	if strings.TrimSpace(artist) == "" && strings.TrimSpace(title) == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "artist or title is required")
		return
	}
	result, err := s.daemon.catalog.SearchTrack(r.Context(), artist, title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"demo":    result.Demo,
		"tracks":  result.Tracks,
	})
}

func (s *apiServer) episodeViews(ctx context.Context, episodes []*store.Episode) ([]api.Episode, error) {
	views := make([]api.Episode, 0, len(episodes))
	for _, episode := range episodes {
		favorite, err := s.daemon.store.IsFavoriteEpisode(ctx, episode.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, api.FromEpisode(episode, favorite))
	}
	return views, nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	s.writeErrorMessage(w, services.HTTPStatus(err), err.Error())
}

func (s *apiServer) writeErrorMessage(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.WithComponent(s.logger, "api-server")
}

package store_test

import (
	"context"
	"errors"
	"testing"

	"podkeep/internal/services"
	"podkeep/internal/store"
	"podkeep/internal/testsupport"
)

func TestFavoriteEpisodeRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedEpisode(t, st, "ep-1", "One", "https://cdn.example.com/1.mp3")

	added, err := st.AddFavoriteEpisode(ctx, "ep-1")
	if err != nil || !added {
		t.Fatalf("add: added=%v err=%v", added, err)
	}

	// Adding twice is a no-op.
	added, err = st.AddFavoriteEpisode(ctx, "ep-1")
	if err != nil {
		t.Fatalf("repeat add: %v", err)
	}
	if added {
		t.Fatal("repeat add must not create a row")
	}

	fav, err := st.IsFavoriteEpisode(ctx, "ep-1")
	if err != nil || !fav {
		t.Fatalf("is favorite: fav=%v err=%v", fav, err)
	}

	list, err := st.ListFavoriteEpisodes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "ep-1" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := st.RemoveFavoriteEpisode(ctx, "ep-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := st.RemoveFavoriteEpisode(ctx, "ep-1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found on repeat remove, got %v", err)
	}
}

func TestAddFavoriteEpisodeRequiresEpisode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	_, err := st.AddFavoriteEpisode(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found for unknown episode, got %v", err)
	}
}

func TestFavoriteSongCRUD(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedEpisode(t, st, "ep-1", "One", "https://cdn.example.com/1.mp3")

	song, err := st.AddFavoriteSong(ctx, &store.SongFavorite{
		EpisodeID:       "ep-1",
		PositionSeconds: 312,
		SongTitle:       "Breathe",
		Artist:          "Telepopmusik",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if song.ID == 0 {
		t.Fatal("expected assigned id")
	}

	song.SpotifyURL = "https://open.spotify.com/track/abc"
	song.PositionSeconds = 320
	updated, err := st.UpdateFavoriteSong(ctx, song)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.SpotifyURL != song.SpotifyURL || updated.PositionSeconds != 320 {
		t.Fatalf("update not persisted: %+v", updated)
	}

	songs, err := st.ListFavoriteSongs(ctx, "ep-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("list = %d, want 1", len(songs))
	}

	if err := st.RemoveFavoriteSong(ctx, song.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := st.GetFavoriteSong(ctx, song.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found after remove, got %v", err)
	}
}

func TestFavoriteSongValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := st.AddFavoriteSong(ctx, &store.SongFavorite{SongTitle: "x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing episode, got %v", err)
	}
	if _, err := st.AddFavoriteSong(ctx, &store.SongFavorite{EpisodeID: "ep-1"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}
	if _, err := st.UpdateFavoriteSong(ctx, &store.SongFavorite{ID: 999, SongTitle: "x"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found updating missing song, got %v", err)
	}
}

func TestListFavoriteSongsOrdersByPosition(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedEpisode(t, st, "ep-1", "One", "https://cdn.example.com/1.mp3")

	for _, song := range []store.SongFavorite{
		{EpisodeID: "ep-1", PositionSeconds: 600, SongTitle: "Later", Artist: "B"},
		{EpisodeID: "ep-1", PositionSeconds: 120, SongTitle: "Earlier", Artist: "A"},
	} {
		if _, err := st.AddFavoriteSong(ctx, &song); err != nil {
			t.Fatalf("add %s: %v", song.SongTitle, err)
		}
	}

	songs, err := st.ListFavoriteSongs(ctx, "ep-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(songs) != 2 || songs[0].SongTitle != "Earlier" {
		t.Fatalf("unexpected order: %+v", songs)
	}
}

func TestHistoryNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedEpisode(t, st, "ep-1", "One", "https://cdn.example.com/1.mp3")

	for i := 0; i < 12; i++ {
		if err := st.AddHistory(ctx, "ep-1", i*30); err != nil {
			t.Fatalf("add history %d: %v", i, err)
		}
	}

	entries, err := st.ListHistory(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("default limit = %d entries, want 10", len(entries))
	}
	if entries[0].PositionSeconds != 11*30 {
		t.Fatalf("expected newest first, got position %d", entries[0].PositionSeconds)
	}
	if entries[0].EpisodeTitle != "One" {
		t.Fatalf("expected joined title, got %q", entries[0].EpisodeTitle)
	}

	limited, err := st.ListHistory(ctx, 3)
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(limited) != 3 {
		t.Fatalf("limit 3 = %d entries", len(limited))
	}
}

package testsupport

import (
	"context"
	"testing"

	"podkeep/internal/config"
	"podkeep/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedEpisode inserts an episode for tests using the provided store.
func SeedEpisode(t testing.TB, st *store.Store, id, title, audioURL string) store.Episode {
	t.Helper()

	ep := store.Episode{
		ID:          id,
		Title:       title,
		AudioURL:    audioURL,
		PublishDate: "2024-01-15T00:00:00Z",
	}
	if _, err := st.UpsertEpisode(context.Background(), ep); err != nil {
		t.Fatalf("store.UpsertEpisode: %v", err)
	}
	return ep
}

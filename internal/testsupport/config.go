package testsupport

import (
	"path/filepath"
	"testing"

	"podkeep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Downloads.DispatchDelayMS = 0
	cfgVal.Downloads.MinFreeSpaceMiB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFeedURL points the feed service at a test server.
func WithFeedURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feed.URL = url
	}
}

// WithSpotifyCredentials enables the live Spotify integration in tests.
func WithSpotifyCredentials(id, secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Spotify.ClientID = id
		b.cfg.Spotify.ClientSecret = secret
	}
}

// WithProgressStep overrides the progress reporting granularity.
func WithProgressStep(step int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloads.ProgressStep = step
	}
}

// WithDispatchDelay overrides the pause between batch task dispatches.
func WithDispatchDelay(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloads.DispatchDelayMS = ms
	}
}

// WithAPIToken enables bearer-token auth on the test daemon.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithSkipExisting toggles artifact reuse for pre-existing files.
func WithSkipExisting(skip bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Downloads.SkipExisting = skip
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

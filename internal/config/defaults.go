package config

const (
	defaultDataDir     = "~/.local/share/podkeep/data"
	defaultDownloadDir = "~/.local/share/podkeep/downloads"
	defaultLogDir      = "~/.local/share/podkeep/logs"
	defaultAPIBind     = "127.0.0.1:7380"

	defaultFeedURL            = "https://www.omnycontent.com/d/playlist/803f1544-419a-4fea-962b-acdb0133575d/fc3e7e4d-ccec-4eaa-ac4f-ad8800fe0af6/d17ea2a1-6ead-4392-aff0-ad8800fe4119/podcast.rss"
	defaultFeedRequestTimeout = 30

	defaultSpotifyBaseURL        = "https://api.spotify.com/v1"
	defaultSpotifyAuthURL        = "https://accounts.spotify.com/api/token"
	defaultSpotifyRequestTimeout = 10

	defaultChunkSizeKiB    = 32
	defaultProgressStep    = 5
	defaultDispatchDelayMS = 100
	defaultMinFreeSpaceMiB = 64

	defaultLogLevel = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Feed: Feed{
			URL:            defaultFeedURL,
			RequestTimeout: defaultFeedRequestTimeout,
		},
		Spotify: Spotify{
			BaseURL:        defaultSpotifyBaseURL,
			AuthURL:        defaultSpotifyAuthURL,
			RequestTimeout: defaultSpotifyRequestTimeout,
		},
		Downloads: Downloads{
			ChunkSizeKiB:    defaultChunkSizeKiB,
			ProgressStep:    defaultProgressStep,
			DispatchDelayMS: defaultDispatchDelayMS,
			SkipExisting:    true,
			MinFreeSpaceMiB: defaultMinFreeSpaceMiB,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateSpotify(); err != nil {
		return err
	}
	if err := c.validateDownloads(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.URL == "" {
		return errors.New("feed.url must be set")
	}
	parsed, err := url.Parse(c.Feed.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("feed.url %q is not a valid URL", c.Feed.URL)
	}
	if c.Feed.RequestTimeout <= 0 {
		return errors.New("feed.request_timeout must be positive (seconds)")
	}
	return nil
}

// Spotify credentials are optional; only the endpoints are mandatory since
// the client falls back to demo mode without credentials.
func (c *Config) validateSpotify() error {
	if c.Spotify.BaseURL == "" {
		return errors.New("spotify.base_url must be set")
	}
	if c.Spotify.AuthURL == "" {
		return errors.New("spotify.auth_url must be set")
	}
	if c.Spotify.RequestTimeout <= 0 {
		return errors.New("spotify.request_timeout must be positive (seconds)")
	}
	if (c.Spotify.ClientID == "") != (c.Spotify.ClientSecret == "") {
		return errors.New("spotify.client_id and spotify.client_secret must be set together")
	}
	return nil
}

func (c *Config) validateDownloads() error {
	if c.Downloads.ChunkSizeKiB <= 0 {
		return errors.New("downloads.chunk_size_kib must be positive")
	}
	if c.Downloads.ProgressStep <= 0 || c.Downloads.ProgressStep > 100 {
		return errors.New("downloads.progress_step must be between 1 and 100")
	}
	if c.Downloads.DispatchDelayMS < 0 {
		return errors.New("downloads.dispatch_delay_ms must not be negative")
	}
	if c.Downloads.MinFreeSpaceMiB < 0 {
		return errors.New("downloads.min_free_space_mib must not be negative")
	}
	if c.Downloads.RequestTimeout < 0 {
		return errors.New("downloads.request_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (console, json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}

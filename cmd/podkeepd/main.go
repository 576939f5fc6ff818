package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"podkeep/internal/config"
	"podkeep/internal/daemon"
	"podkeep/internal/download"
	"podkeep/internal/feed"
	"podkeep/internal/logging"
	"podkeep/internal/services/spotify"
	"podkeep/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}

	reset, err := st.ResetStuckDownloads(ctx)
	if err != nil {
		logger.Error("reset interrupted downloads", logging.Error(err))
		st.Close()
		return
	}
	if reset > 0 {
		logger.Info("marked interrupted downloads as failed", slog.Int64("count", reset))
	}

	feedSvc, err := feed.NewService(cfg, st, logger)
	if err != nil {
		logger.Error("create feed service", logging.Error(err))
		st.Close()
		return
	}

	catalog, err := spotify.New(cfg)
	if err != nil {
		logger.Error("create spotify client", logging.Error(err))
		st.Close()
		return
	}

	manager := download.NewManager(cfg, st, logger)

	d, err := daemon.New(cfg, st, logger, manager, feedSvc, catalog)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		manager.Stop()
		st.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("podkeepd shutting down")
}

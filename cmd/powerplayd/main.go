package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"powerplay/internal/config"
	"powerplay/internal/daemon"
	"powerplay/internal/deps"
	"powerplay/internal/docstore"
	"powerplay/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		if status.Available {
			logger.Info("external dependency found",
				logging.String("dependency", status.Name),
				logging.String("command", status.Command))
			continue
		}
		logger.Warn("external dependency missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail))
	}

	store, err := docstore.Open(cfg)
	if err != nil {
		logger.Error("open document store", logging.Error(err))
		return
	}

	coord, err := buildCoordinator(ctx, cfg, store, logger)
	if err != nil {
		logger.Error("assemble pipeline", logging.Error(err))
		_ = store.Close()
		return
	}

	d, err := daemon.New(cfg, store, coord, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("powerplayd shutting down")
}

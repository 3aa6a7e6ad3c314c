package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/Assist/internal/app"
	"github.com/markdave123-py/Assist/internal/config"
	"github.com/markdave123-py/Assist/internal/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	log := logger.New(logger.LogConfig{LogLevel: cfg.LogLevel, LogPath: cfg.LogPath})

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if application.Ingestor != nil {
		application.Ingestor.Start(ctx, cfg.IngestWorkers)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- application.Server.Start() }()

	log.Info("Assist is running", "backend", cfg.Backend, "store", cfg.StoreDriver)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
		}
	}

	log.Info("shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

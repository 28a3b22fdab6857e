package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kmorrow/ava/pkg/config"
	"github.com/kmorrow/ava/pkg/controller"
	"github.com/kmorrow/ava/pkg/model/gemini"
	"github.com/kmorrow/ava/pkg/refimage"
	"github.com/kmorrow/ava/pkg/server"
	"github.com/kmorrow/ava/pkg/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	// Config first, the log level depends on it.
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("Failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Setup logger.
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	messages, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer messages.Close()

	// Initialize model provider and controller.
	provider := gemini.New(cfg.GeminiAPIKey)
	refs := refimage.New(cfg.ReferenceImages, nil)
	ctrl := controller.New(provider, refs, cfg.Tier)

	// Hot-reload tier and reference images on config edits.
	if *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, func(next *config.Config) {
			ctrl.SetTier(next.Tier)
			ctrl.SetReferencePool(refimage.New(next.ReferenceImages, nil))
		})
		if err != nil {
			slog.Error("Failed to create config watcher", "error", err)
			os.Exit(1)
		}
		if err := watcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", "error", err)
			os.Exit(1)
		}
		defer watcher.Stop()
	}

	// Start server.
	srv := server.New(messages, ctrl)
	go func() {
		if err := srv.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}

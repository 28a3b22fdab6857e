package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads the config file when it changes on disk, so tier and
// reference-pool changes take effect without a restart.
type Watcher struct {
	path     string
	onReload func(*Config)
	watcher  *fsnotify.Watcher

	// lastHash is only touched from Start and the event goroutine.
	lastHash [sha256.Size]byte
}

// NewWatcher creates a watcher for the config file at path. onReload runs on
// the watcher goroutine after each successful reload.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, onReload: onReload, watcher: fw}, nil
}

// Start begins watching. It returns immediately; events are processed until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch config file %s: %w", w.path, err)
	}
	if data, err := os.ReadFile(w.path); err == nil {
		w.lastHash = sha256.Sum256(data)
	}
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Error("reading changed config file", "path", w.path, "error", err)
		return
	}
	// Editors often truncate before writing; skip the intermediate state.
	if len(data) == 0 {
		return
	}
	sum := sha256.Sum256(data)
	if sum == w.lastHash {
		return
	}

	config, err := Load(w.path)
	if err != nil {
		slog.Error("reloading config file", "path", w.path, "error", err)
		return
	}
	w.lastHash = sum
	slog.Info("config file changed, reloaded", "path", w.path)
	w.onReload(config)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// configSettleDelay collapses the burst of events an editor save produces.
const configSettleDelay = 100 * time.Millisecond

// watchConfig calls onReload with the re-read config whenever the file at
// path changes, until ctx is canceled. The parent directory is watched so
// that rename-on-save editors keep working. Invalid configs are logged and
// skipped.
func watchConfig(ctx context.Context, path string, logger *slog.Logger, onReload func(Config)) error {
	path = filepath.Clean(ExpandPath(path))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	logger.Debug("watching config", "path", path)

	var settle *time.Timer
	var settleCh <-chan time.Time
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(configSettleDelay)
			} else {
				settle.Reset(configSettleDelay)
			}
			settleCh = settle.C

		case <-settleCh:
			settleCh = nil
			cfg, err := LoadConfigFile(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				logger.Warn("config reload rejected, keeping current settings", "path", path, "error", err)
				continue
			}
			logger.Info("config reloaded", "path", path)
			onReload(cfg)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}

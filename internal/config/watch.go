package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDelay collapses the burst of events an editor produces on save.
const watchDelay = 300 * time.Millisecond

// Watch reloads the configuration file at path whenever it changes and
// hands every successfully loaded configuration to fn. Invalid edits are
// logged and skipped. The watcher runs until ctx is done; fn is called on
// its own goroutine, one reload at a time per burst of events.
func Watch(ctx context.Context, path string, log *zap.Logger, fn func(*Config)) error {
	if log == nil {
		log = zap.NewNop()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("bad config path %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// watch the directory, editors often replace the file on save
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(absPath), err)
	}

	reload := func() {
		cfg, err := LoadConfiguration(absPath)
		if err != nil {
			log.Warn("Ignoring invalid configuration change", zap.String("file", absPath), zap.Error(err))
			return
		}
		log.Debug("Configuration reloaded", zap.String("file", absPath))
		fn(cfg)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if name, _ := filepath.Abs(event.Name); name != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDelay, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

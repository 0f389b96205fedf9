package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"agentmemory/internal/logging"
)

// watchLoggingConfig watches the per-workspace .memory/config.json file and
// hot-reloads the category/level settings on change, so a long-running
// memoryctl process (e.g. under `maintain --watch`) doesn't need a restart
// to pick up a debug_mode flip.
func watchLoggingConfig(ws string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(ws, ".memory")
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != "config.json" {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := logging.ReloadConfig(); err != nil {
					logger.Warn("failed to reload logging config", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("logging config watcher error", zap.Error(err))
			}
		}
	}()

	return watcher, nil
}

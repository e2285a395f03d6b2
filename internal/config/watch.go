package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/cjeanneret/CamGo/internal/debug"
)

// Watch reloads path whenever it changes and hands the new configuration
// to onChange. Files that fail to load are logged and skipped. It blocks
// until ctx is done.
//
// The parent directory is watched rather than the file, so editors that
// save by renaming a temp file over the original are picked up too.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	debug.Verbose("Config: watching %s", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(target)
			if err != nil {
				debug.Error(fmt.Errorf("reload config: %w", err))
				continue
			}
			debug.Info("Config reloaded from %s", target)
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			debug.Error(fmt.Errorf("config watcher: %w", err))
		}
	}
}

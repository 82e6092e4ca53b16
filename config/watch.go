package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-loads the config whenever the file under root changes and calls
// onChange with the fresh config. Invalid intermediate states (editors often
// truncate before writing) are skipped silently. Watch blocks until ctx is
// cancelled.
func Watch(ctx context.Context, root string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace the file on save,
	// which would drop a file-level watch.
	if err := watcher.Add(root); err != nil {
		return err
	}

	target := filepath.Join(root, ConfigFileName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(root)
			if err != nil {
				continue
			}
			onChange(cfg)
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

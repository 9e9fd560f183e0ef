package prefs

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever the prefs file is changed by another
// process, calling onReload (if non-nil) after each successful reload.
// It blocks until ctx is cancelled.
func (s *JSONStore) Watch(ctx context.Context, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: the file is replaced by rename on every write.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if err := s.Reload(); err != nil {
				slog.Warn("prefs: failed to reload prefs", "path", s.path, "err", err)
				continue
			}
			slog.Debug("prefs: reloaded prefs", "path", s.path)
			if onReload != nil {
				onReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("prefs: watcher error", "err", err)
		}
	}
}

package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Invalidator is notified when the watched document changes on disk.
type Invalidator interface {
	Invalidate()
}

// WatchFile watches the directory holding path and invalidates target whenever
// the document is written, created or renamed. It blocks until ctx is cancelled.
func WatchFile(ctx context.Context, target Invalidator, path string, log Logger) error {
	if log == nil {
		log = noopLogger{}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve catalog path: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir %s: %w", dir, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.InfoObj("catalog watcher started", "catalog_watch", map[string]any{"path": abs})

	for {
		select {
		case <-ctx.Done():
			log.InfoObj("catalog watcher stopped", "catalog_watch", map[string]any{"path": abs})
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				target.Invalidate()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WarnObj("catalog watcher error", "catalog_watch", map[string]any{"error": watchErr.Error()})
		}
	}
}

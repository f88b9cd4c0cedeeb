package workflow

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces editor save bursts into one revalidation.
const defaultDebounce = 300 * time.Millisecond

// WatchChanges watches the active changes tree and invokes onChange after
// every settled burst of filesystem events. It blocks until ctx is done.
// Newly created change directories are picked up as they appear.
func (m *Manager) WatchChanges(ctx context.Context, logger *slog.Logger, debounce time.Duration, onChange func()) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	addTree := func(root string) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if err := watcher.Add(path); err != nil {
					logger.Debug("watch add failed", "path", path, "error", err)
				}
			}
			return nil
		})
	}
	addTree(m.ChangesPath())

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Backup and temp files churn during apply; ignore them.
			if strings.HasSuffix(event.Name, ".bak") || strings.Contains(filepath.Base(event.Name), ".tmp-") {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				addTree(event.Name)
			}
			logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-fire:
			onChange()
		}
	}
}

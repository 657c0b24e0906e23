package scanner

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reposcope/repomap/internal/obslog"
)

// WatchDebounce is the minimum quiet period after the last filesystem event
// before Watch triggers a re-scan. A single timer is enough since a re-scan
// already re-walks the whole tree rather than patching one file.
const WatchDebounce = 300 * time.Millisecond

// Watch recursively registers an fsnotify watch on root and every
// subdirectory except hidden ones (names starting with "."), and calls rescan (expected to be Scan) once per debounced
// burst of filesystem events until ctx is cancelled. It is a convenience
// wrapper around Scan for long-running CLI invocations (cmd/repomap's
// `watch` command); no indexing operation depends on it.
func Watch(ctx context.Context, root string, rescan func(context.Context) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addWatches(w, root); err != nil {
		return err
	}

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.Add(ev.Name); addErr != nil {
						obslog.Warnf("scanner.watch", "failed to watch new directory", "path", ev.Name, "err", addErr)
					}
				}
			}
			if timer == nil {
				timer = time.AfterFunc(WatchDebounce, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(WatchDebounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			obslog.Warnf("scanner.watch", "fsnotify error", "err", err)

		case <-pending:
			obslog.Debugf("scanner.watch", "debounced change detected, rescanning", "root", root)
			if err := rescan(ctx); err != nil {
				obslog.Warnf("scanner.watch", "rescan failed", "err", err)
			}
		}
	}
}

func addWatches(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() != "." && len(info.Name()) > 1 && info.Name()[0] == '.' {
			return filepath.SkipDir
		}
		if addErr := w.Add(path); addErr != nil {
			obslog.Warnf("scanner.watch", "failed to watch directory", "path", path, "err", addErr)
		}
		return nil
	})
}

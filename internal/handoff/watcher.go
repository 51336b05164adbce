package handoff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// Watch emits the handoff each time the file changes, debounced so a burst
// of writes produces one update. The channel closes when ctx ends.
func (f *FileStore) Watch(ctx context.Context, debounce time.Duration) (<-chan Handoff, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Renames replace the inode, so the directory is watched rather than the file
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w := &fileWatcher{
		store:    f,
		fs:       watcher,
		debounce: debounce,
		out:      make(chan Handoff, 1),
		reload:   make(chan struct{}, 1),
	}
	w.lastMod = w.modTime()

	go w.loop(ctx)
	return w.out, nil
}

type fileWatcher struct {
	store    *FileStore
	fs       *fsnotify.Watcher
	debounce time.Duration
	timer    *time.Timer
	lastMod  time.Time
	out      chan Handoff
	reload   chan struct{}
}

func (w *fileWatcher) loop(ctx context.Context) {
	defer close(w.out)
	defer func() {
		if w.timer != nil {
			w.timer.Stop()
		}
		if err := w.fs.Close(); err != nil {
			w.store.logger.LogError(err, "Failed to close handoff file watcher")
		}
	}()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.store.logger.LogError(err, "Handoff file watcher error")

		case <-w.reload:
			if !w.hasChanged() {
				continue
			}
			h, err := w.store.Load(ctx)
			if err != nil {
				w.store.logger.LogError(err, "Failed to reload handoff file")
				continue
			}
			// keep only the newest record if the reader is behind
			select {
			case <-w.out:
			default:
			}
			w.out <- h

		case <-ctx.Done():
			return
		}
	}
}

// shouldProcessEvent keeps write, create and rename events for the handoff file
func (w *fileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

// scheduleReload restarts the debounce timer. It runs on the loop goroutine only.
func (w *fileWatcher) scheduleReload() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.reload <- struct{}{}:
		default:
		}
	})
}

func (w *fileWatcher) modTime() time.Time {
	stat, err := os.Stat(w.store.path)
	if err != nil {
		return time.Time{}
	}
	return stat.ModTime()
}

// hasChanged compares the file's modification time with the last one seen
func (w *fileWatcher) hasChanged() bool {
	mod := w.modTime()
	if mod.Equal(w.lastMod) {
		return false
	}
	w.lastMod = mod
	return true
}

package guilds

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	. "github.com/alterra-community/alterra-bot/internal/logging"
)

// debounceDelay coalesces bursts of filesystem events into one reload.
const debounceDelay = 250 * time.Millisecond

// Watcher reloads the store when the durable file is edited outside the
// process. Writes made by the store itself are recognized and skipped.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the store's durable file.
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{store: store, watcher: fw}, nil
}

// Start begins watching until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	// Watch the directory: the file itself is replaced by rename on every
	// save, which breaks per-file watches on some platforms.
	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	L_info("guilds: watching config file", "path", w.store.Path())
	go w.loop(ctx)
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	target := filepath.Clean(w.store.Path())

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

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounceDelay, func() {
					if IsShuttingDown() {
						return
					}
					w.store.reloadIfChanged()
				})
			} else {
				timer.Reset(debounceDelay)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			L_warn("guilds: watcher error", "error", err)
		}
	}
}

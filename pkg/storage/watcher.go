package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounceInterval coalesces bursts of filesystem events (a record
// write produces a create, a write and a rename) into a single signal.
const watchDebounceInterval = 100 * time.Millisecond

// Watcher observes a local storage directory and signals on C whenever
// records change, so in-memory mirrors can refresh themselves.
type Watcher struct {
	fw       *fsnotify.Watcher
	basePath string
	C        chan struct{}
}

// NewWatcher creates a watcher over the given LocalStorage.
func NewWatcher(store *LocalStorage) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fw:       fw,
		basePath: store.BasePath(),
		C:        make(chan struct{}, 1),
	}
	if err := w.addRecursive(store.BasePath()); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := w.addRecursive(filepath.Join(dir, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// Start runs the watch loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fw.Close()

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-timerC:
			timerC = nil
			select {
			case w.C <- struct{}{}:
			default:
			}
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			// New record-type directories appear after provisioning.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fw.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounceInterval)
			} else {
				timer.Reset(watchDebounceInterval)
			}
			timerC = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("storage watcher error", "error", err)
		}
	}
}

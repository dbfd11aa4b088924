package fsys

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatchUnsupported is returned for file systems that are not on the local
// disk.
var ErrWatchUnsupported = errors.New("watching is only supported on the local file system")

// WatchDelay coalesces bursts of events into a single change notification.
const WatchDelay = 150 * time.Millisecond

// Watcher reports changes inside one directory at a time.
type Watcher struct {
	fs        *FS
	w         *fsnotify.Watcher
	onChange  func(dir string)
	debounced func(func())
	logger    *zap.Logger

	mu    sync.Mutex
	dir   string
	osDir string

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher starts a watcher; onChange runs on its own goroutine with the
// watched directory whenever its contents change.
func (f *FS) NewWatcher(onChange func(dir string)) (*Watcher, error) {
	if !f.local {
		return nil, ErrWatchUnsupported
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		fs:        f,
		w:         fw,
		onChange:  onChange,
		debounced: debounce.New(WatchDelay),
		logger:    f.logger,
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch switches the watcher to dir.
func (w *Watcher) Watch(dir string) error {
	dir, err := w.fs.resolve(dir)
	if err != nil {
		return err
	}
	osDir := w.fs.osPath(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	if dir == w.dir {
		return nil
	}
	if w.osDir != "" {
		// The old directory may already be gone.
		_ = w.w.Remove(w.osDir)
	}
	if err := w.w.Add(osDir); err != nil {
		w.dir, w.osDir = "", ""
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.dir, w.osDir = dir, osDir
	return nil
}

// Dir returns the directory currently watched.
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.debounced(func() {
				if dir := w.Dir(); dir != "" && w.onChange != nil {
					w.onChange(dir)
				}
			})
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.w.Close()
	w.wg.Wait()
	return err
}

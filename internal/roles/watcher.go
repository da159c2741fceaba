package roles

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"skillmatch/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Catalog when its backing file changes
type Watcher struct {
	mu sync.Mutex

	catalog *Catalog
	file    string
	lastMod time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	// onReload is called after every reload attempt
	onReload func(error)
	logger   *errors.Logger

	running bool
}

// NewWatcher creates a watcher for the catalog's backing file
func NewWatcher(catalog *Catalog, debounceDelay time.Duration, logger *errors.Logger) (*Watcher, error) {
	if catalog.File() == "" {
		return nil, fmt.Errorf("role catalog has no backing file to watch")
	}
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}

	file, err := filepath.Abs(catalog.File())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role catalog path: %w", err)
	}

	return &Watcher{
		catalog:       catalog,
		file:          file,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		done:          make(chan struct{}),
		logger:        logger,
	}, nil
}

// OnReload registers a callback invoked with the result of each reload.
// It must be set before Start.
func (w *Watcher) OnReload(fn func(error)) {
	w.onReload = fn
}

// Start begins watching the catalog file
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("role catalog watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Editors replace files atomically, so watch the directory and filter by name
	dir := filepath.Dir(w.file)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	if stat, err := os.Stat(w.file); err == nil {
		w.lastMod = stat.ModTime()
	}

	w.fsWatcher = watcher
	w.running = true
	go w.watchLoop()

	if w.logger != nil {
		w.logger.Info("Role catalog watcher started", "file", w.file, "debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops the watcher and waits for its loop to exit
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	err := w.fsWatcher.Close()
	w.mu.Unlock()

	<-w.done
	if w.logger != nil {
		w.logger.Info("Role catalog watcher stopped")
	}
	return err
}

// IsRunning returns whether the watcher is currently running
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.LogError(err, "Role catalog watcher error")
			}

		case <-w.reloadChan:
			if w.hasFileChanged() {
				w.reload()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) reload() {
	err := w.catalog.Reload()
	if err != nil && w.logger != nil {
		w.logger.LogError(err, "Role catalog reload failed, keeping previous roles", "file", w.file)
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.file {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasFileChanged reports whether the file's modification time moved forward
func (w *Watcher) hasFileChanged() bool {
	stat, err := os.Stat(w.file)
	if err != nil {
		return false
	}
	if stat.ModTime().Equal(w.lastMod) {
		return false
	}
	w.lastMod = stat.ModTime()
	return true
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}

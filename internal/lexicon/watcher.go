package lexicon

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/keywords"
)

// ReloadHook observes the outcome of every reload attempt.
type ReloadHook func(err error)

// Watcher rebuilds the engine held by a store whenever the lexicon file
// changes. A lexicon that fails to load leaves the current engine in place.
type Watcher struct {
	mu sync.RWMutex

	settings config.MatchingConfig
	store    *keywords.Store
	logger   *errors.Logger
	onReload ReloadHook

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	lastModTime   time.Time

	stopChan   chan struct{}
	reloadChan chan struct{}
	running    bool
	reloads    int
	lastError  error
}

// NewWatcher creates a watcher for settings.LexiconFile that swaps store.
func NewWatcher(settings config.MatchingConfig, store *keywords.Store, onReload ReloadHook, logger *errors.Logger) (*Watcher, error) {
	if settings.LexiconFile == "" {
		return nil, fmt.Errorf("no lexicon file configured to watch")
	}
	debounce := settings.WatchDebounce
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Watcher{
		settings:      settings,
		store:         store,
		logger:        logger,
		onReload:      onReload,
		debounceDelay: debounce,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
	}, nil
}

// Start begins watching the lexicon file.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("lexicon watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Editors and config management tools replace files with a rename, so
	// the directory is watched rather than the file itself.
	dir := filepath.Dir(w.settings.LexiconFile)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	w.fsWatcher = watcher

	if stat, err := os.Stat(w.settings.LexiconFile); err == nil {
		w.lastModTime = stat.ModTime()
	}

	w.running = true
	go w.watchLoop()

	if w.logger != nil {
		w.logger.Info("Lexicon watcher started", "file", w.settings.LexiconFile, "debounce_delay", w.debounceDelay)
	}
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false

	if err := w.fsWatcher.Close(); err != nil {
		return err
	}
	if w.logger != nil {
		w.logger.Info("Lexicon watcher stopped")
	}
	return nil
}

func (w *Watcher) watchLoop() {
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
				w.logger.LogError(err, "Lexicon watcher error")
			}

		case <-w.reloadChan:
			if w.hasFileChanged() {
				w.Reload()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.settings.LexiconFile) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) hasFileChanged() bool {
	stat, err := os.Stat(w.settings.LexiconFile)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if stat.ModTime().Equal(w.lastModTime) {
		return false
	}
	w.lastModTime = stat.ModTime()
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

// Reload rebuilds the engine from the lexicon file now.
func (w *Watcher) Reload() error {
	engine, _, err := BuildEngine(w.settings)

	w.mu.Lock()
	w.reloads++
	w.lastError = err
	w.mu.Unlock()

	if err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Lexicon reload failed, keeping current configuration", "file", w.settings.LexiconFile)
		}
	} else {
		w.store.Swap(engine)
		if w.logger != nil {
			w.logger.Info("Lexicon reloaded", "file", w.settings.LexiconFile)
		}
	}

	if w.onReload != nil {
		w.onReload(err)
	}
	return err
}

// Status reports the watcher state for health endpoints.
func (w *Watcher) Status() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := map[string]any{
		"running": w.running,
		"file":    w.settings.LexiconFile,
		"reloads": w.reloads,
	}
	if w.lastError != nil {
		status["last_error"] = w.lastError.Error()
	}
	return status
}

package csvdoc

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ChangeOp names the kind of on-disk change observed for the CSV file
type ChangeOp string

const (
	ChangeWrite  ChangeOp = "write"
	ChangeCreate ChangeOp = "create"
	ChangeRemove ChangeOp = "remove"
	ChangeRename ChangeOp = "rename"
)

// ChangeCallback is called once per debounced change to the watched file
type ChangeCallback func(op ChangeOp)

// Watcher reports changes to a single CSV file. It watches the parent
// directory because atomic replaces swap the inode under the file name.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange ChangeCallback
	logger   zerolog.Logger

	done     chan struct{}
	timer    *time.Timer
	lastOp   ChangeOp
	timerMu  sync.Mutex
	stopOnce sync.Once
}

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	Path     string
	Debounce time.Duration
	OnChange ChangeCallback
	Logger   zerolog.Logger
}

// NewWatcher creates a watcher for one file
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("watch path is required")
	}
	if config.Debounce == 0 {
		config.Debounce = 200 * time.Millisecond
	}

	absPath, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		path:     filepath.Clean(absPath),
		debounce: config.Debounce,
		onChange: config.OnChange,
		logger:   config.Logger.With().Str("component", "csv-watcher").Logger(),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch csv directory: %w", err)
	}

	go w.eventLoop()

	w.logger.Info().Str("path", w.path).Msg("CSV watcher started")
	return nil
}

// Stop stops watching and cancels any pending notification
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if op, ok := changeOp(event.Op); ok {
				w.schedule(op)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

// schedule coalesces bursts of events into one callback carrying the last op
func (w *Watcher) schedule(op ChangeOp) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	w.lastOp = op
	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.timerMu.Lock()
		last := w.lastOp
		w.timer = nil
		w.timerMu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}

		if w.onChange != nil {
			w.onChange(last)
		}
	})
}

func changeOp(op fsnotify.Op) (ChangeOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ChangeCreate, true
	case op.Has(fsnotify.Write):
		return ChangeWrite, true
	case op.Has(fsnotify.Remove):
		return ChangeRemove, true
	case op.Has(fsnotify.Rename):
		return ChangeRename, true
	}
	return "", false
}

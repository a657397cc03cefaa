// Package watcher reloads the daemon config when its file changes.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/claude-sessions/config"
	"github.com/sirupsen/logrus"
)

// Watcher watches a config directory and reloads the config after changes
// settle.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	file     string // base name to watch; empty means any known config file
	debounce time.Duration
	onReload func(*config.Config)
	logger   *logrus.Entry

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Watcher. If path is empty the watcher follows whichever
// config file appears in dir. onReload receives every successfully loaded
// config; invalid edits are logged and skipped.
func New(dir, path string, debounce time.Duration, onReload func(*config.Config), logger *logrus.Entry) (*Watcher, error) {
	if path != "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	w := &Watcher{
		watcher:  fw,
		dir:      dir,
		debounce: debounce,
		onReload: onReload,
		logger:   logger,
	}
	if path != "" {
		w.file = filepath.Base(path)
	}
	return w, nil
}

// Start processes file events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.stopTimer()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}

func (w *Watcher) matches(name string) bool {
	base := filepath.Base(name)
	if w.file != "" {
		return base == w.file
	}
	for _, candidate := range config.FileNames {
		if base == candidate {
			return true
		}
	}
	return false
}

// schedule (re)arms the reload timer so a burst of writes reloads once.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload() {
	var (
		cfg *config.Config
		err error
	)
	if w.file != "" {
		cfg, err = config.Load(filepath.Join(w.dir, w.file))
	} else {
		var path string
		path, err = config.FindConfigFile(w.dir)
		if err == nil {
			cfg, err = config.Load(path)
		}
	}
	if err != nil {
		w.logger.WithError(err).Warn("Ignoring config change")
		return
	}

	w.logger.Info("Config reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

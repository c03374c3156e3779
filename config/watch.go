package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"oxygen/telemetry/log"
)

// Watcher reloads an EngineConfig file into a Store whenever the file
// changes, grounded on ariadne's engine/config fsnotify-driven reload.
type Watcher struct {
	fsw   *fsnotify.Watcher
	store *Store
	path  string
	done  chan struct{}
}

// WatchFile starts watching path for changes, pushing successfully
// parsed reloads into store. Parse errors are logged and the previous
// configuration is left in place.
func WatchFile(path string, store *Store, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: new watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	if logger == nil {
		logger = log.Nop()
	}
	w := &Watcher{fsw: fsw, store: store, path: path, done: make(chan struct{})}
	go w.loop(logger)
	return w, nil
}

func (w *Watcher) loop(logger *log.Logger) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				logger.Warn("config: reload failed, keeping previous configuration",
					log.String("path", w.path), log.Error(err))
				continue
			}
			w.store.Set(cfg)
			logger.Info("config: reloaded", log.String("path", w.path))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("config: watcher error", log.Error(err))
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

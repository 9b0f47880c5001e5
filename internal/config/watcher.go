package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/tradetalk/tradetalk/internal/logging"
)

// Watcher observes the env file and re-applies LOG_LEVEL when it changes.
// Everything else in the file requires a restart.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	done    chan struct{}
}

// Watch starts observing path. It returns immediately; events are handled
// on a background goroutine until Close is called.
func Watch(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file system watcher: %w", err)
	}

	// Watch the directory rather than the file itself: editors and
	// orchestrators replace env files atomically, which drops the watch
	// on the old inode.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher{watcher: fw, path: path, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	values, err := godotenv.Read(w.path)
	if err != nil {
		slog.Error("Failed to re-read env file", "path", w.path, "error", err)
		return
	}
	lvl := logging.ParseLevel(values["LOG_LEVEL"])
	logging.SetLevel(lvl)
	slog.Info("Log level reloaded", "level", lvl.String())
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

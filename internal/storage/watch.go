package storage

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// ExternalChangeWatcher is an opt-in watcher over the filesystem adapter's
// backing files. The engine's own atomicity guarantee only covers writes it
// performs itself (spec.md §5 "best-effort atomicity, no multi-process
// guarantee"); this watcher makes an out-of-band edit visible as a log line
// instead of letting the in-memory collection silently go stale.
type ExternalChangeWatcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// NewExternalChangeWatcher starts watching the given paths. Paths that
// don't exist yet are skipped; fsnotify requires a file (or its parent
// directory) to already exist to watch it.
func NewExternalChangeWatcher(logger *slog.Logger, paths ...string) (*ExternalChangeWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			logger.Warn("external change watcher could not watch path", "path", p, "error", err)
		}
	}

	ecw := &ExternalChangeWatcher{watcher: w, logger: logger, done: make(chan struct{})}
	go ecw.run()
	return ecw, nil
}

func (w *ExternalChangeWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Warn("collection file changed outside the engine's own writes",
					"path", event.Name, "op", event.Op.String())
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("external change watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *ExternalChangeWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

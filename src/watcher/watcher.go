package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/config"
	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"

	"github.com/fsnotify/fsnotify"
)

// Editors fire several events per save, re-reads are coalesced.
const reloadDelay = 200 * time.Millisecond

// -----------------------------------------------------------------------------

// ConfigWatcher reapplies subscription parameters when the config file
// changes on disk. Other config fields need a restart.
type ConfigWatcher struct {
	path       string
	controller interfaces.ISubscriptionController
	logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewConfigWatcher(path string, ctrl interfaces.ISubscriptionController, log *logger.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		path:       path,
		controller: ctrl,
		logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Run blocks until ctx is cancelled. Failure to set up the watcher disables
// hot reload but never takes the process down.
func (w *ConfigWatcher) Run(ctx context.Context) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warning("Config watcher unavailable: %v", err)
		return
	}
	defer fsw.Close()

	// Watch the directory, editors usually replace the file on save.
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		w.logger.Warning("Cannot watch %s: %v", dir, err)
		return
	}
	w.logger.Info("Watching %s for parameter changes", w.path)

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDelay)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warning("Config watcher error: %v", err)

		case <-pending:
			pending = nil
			w.applyChange()
		}
	}
}

// -----------------------------------------------------------------------------

func (w *ConfigWatcher) applyChange() {
	cfg, err := config.NewConfig(w.path)
	if err != nil {
		w.logger.Warning("Ignoring config change, reload failed: %v", err)
		return
	}

	params := cfg.DefaultParams()
	if err := w.controller.SetParameters(params); err != nil {
		w.logger.Warning("Config change rejected: %v", err)
		return
	}
	w.logger.Info("Config reloaded, subscription parameters now filter=%s sort=%s", params.Filter, params.SortKey)
}

package spool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher emits descriptor paths for bundles appearing in the spool
// directory. Existing descriptors are emitted once at startup, then fsnotify
// events take over. The gridding collaborator writes component files first
// and the descriptor last, so a descriptor's appearance means the bundle is
// complete.
type Watcher struct {
	dir    string
	logger *slog.Logger
	events chan string
}

// NewWatcher prepares a watcher for dir. Run must be called to start it.
func NewWatcher(dir string, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:    dir,
		logger: logger,
		events: make(chan string),
	}
}

// Events returns the descriptor path channel. Closed when Run returns.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Run scans the spool directory, then watches it until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Bundles spooled before startup, or while the service was down.
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), DescriptorSuffix) {
			continue
		}
		if !w.emit(ctx, filepath.Join(w.dir, e.Name())) {
			return ctx.Err()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if !strings.HasSuffix(ev.Name, DescriptorSuffix) {
				continue
			}
			if !w.emit(ctx, ev.Name) {
				return ctx.Err()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("spool watch error", "error", err)
		}
	}
}

func (w *Watcher) emit(ctx context.Context, path string) bool {
	select {
	case w.events <- path:
		w.logger.Debug("bundle spooled", "descriptor", path)
		return true
	case <-ctx.Done():
		return false
	}
}

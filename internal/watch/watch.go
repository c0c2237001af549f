// Package watch drives dev-mode incremental rebuilds. Filesystem
// events are debounced, applied to the collation as upserts and
// removals strictly between scheduler passes, then a rebuild of the
// changed files is triggered. An optional periodic full rebuild
// catches anything the event stream missed.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/uwe-app/app-sub001/internal/collation"
	"github.com/uwe-app/app-sub001/internal/logfields"
)

// RebuildFunc runs one scheduler pass over the given source files, or
// over the whole destination set when files is empty. Force bypasses
// the incremental manifest so unchanged pages re-render.
type RebuildFunc func(ctx context.Context, files []string, force bool) error

// Watcher maps filesystem events under a collation's source root to
// rebuild passes.
type Watcher struct {
	coll       *collation.Collation
	rebuild    RebuildFunc
	invalidate func(path string)

	watcher  *fsnotify.Watcher
	sched    gocron.Scheduler
	interval time.Duration
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]fsnotify.Op

	stop chan struct{}
	once sync.Once
}

// New creates a watcher over the collation's source root.
func New(coll *collation.Collation, rebuild RebuildFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		coll:     coll,
		rebuild:  rebuild,
		watcher:  fw,
		debounce: 250 * time.Millisecond,
		pending:  make(map[string]fsnotify.Op),
		stop:     make(chan struct{}),
	}, nil
}

// WithPeriodicRebuild schedules a full rebuild at the given interval.
func (w *Watcher) WithPeriodicRebuild(interval time.Duration) *Watcher {
	w.interval = interval
	return w
}

// WithTemplateInvalidation registers a callback run for every changed
// layout file before the forced rebuild, so the template engine drops
// its cached parse.
func (w *Watcher) WithTemplateInvalidation(fn func(path string)) *Watcher {
	w.invalidate = fn
	return w
}

// Start registers every directory under the source root and launches
// the event loop. It returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	root := w.coll.SourceRoot()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch source tree %s: %w", root, err)
	}

	if w.interval > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create rebuild scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(w.interval),
			gocron.NewTask(func() {
				if err := w.rebuild(ctx, nil, false); err != nil {
					slog.Error("Periodic rebuild failed", logfields.Error(err))
				}
			}),
			gocron.WithName("periodic-rebuild"),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule periodic rebuild: %w", err)
		}
		w.sched = sched
		sched.Start()
	}

	slog.Info("Watching source tree", "root", root, "interval", w.interval)
	go w.eventLoop(ctx)
	return nil
}

// Stop shuts down the watcher and the periodic scheduler.
func (w *Watcher) Stop() error {
	var errs []error
	w.once.Do(func() { close(w.stop) })
	if w.sched != nil {
		errs = append(errs, w.sched.Shutdown())
	}
	errs = append(errs, w.watcher.Close())
	return errors.Join(errs...)
}

func (w *Watcher) eventLoop(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.record(event)
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		case <-timer.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) record(event fsnotify.Event) {
	if filepath.Base(event.Name) == ".ignore" {
		return
	}
	w.mu.Lock()
	w.pending[filepath.Clean(event.Name)] |= event.Op
	w.mu.Unlock()
}

// flush applies accumulated events to the collation and rebuilds the
// changed files. The collation is only mutated here, never while a
// scheduler pass is running.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	var changed []string
	var layoutChanged bool
	for path, op := range batch {
		info, statErr := os.Stat(path)

		switch {
		case statErr == nil && info.IsDir():
			if op.Has(fsnotify.Create) {
				if err := w.watcher.Add(path); err != nil {
					slog.Error("Failed to watch new directory", "dir", path, logfields.Error(err))
				}
			}
		case statErr == nil && w.coll.IsLayout(path):
			// Layout files have no destination of their own. Drop the
			// cached template and re-render every dependent page.
			if w.invalidate != nil {
				w.invalidate(path)
			}
			layoutChanged = true
		case statErr == nil:
			if err := w.coll.Upsert(path); err != nil {
				slog.Error("Failed to re-collate file", logfields.Source(path), logfields.Error(err))
				continue
			}
			changed = append(changed, path)
		default:
			if stale, ok := w.coll.Remove(path); ok {
				if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
					slog.Error("Failed to remove stale artifact", logfields.Artifact(stale), logfields.Error(err))
				}
				slog.Debug("Removed vanished source", logfields.Source(path), logfields.Artifact(stale))
			}
		}
	}

	if layoutChanged {
		slog.Info("Layout changed, rebuilding all pages")
		if err := w.rebuild(ctx, nil, true); err != nil {
			slog.Error("Rebuild failed", logfields.Error(err))
		}
		return
	}

	if len(changed) == 0 {
		return
	}
	slog.Info("Rebuilding changed files", logfields.Files(len(changed)))
	if err := w.rebuild(ctx, changed, false); err != nil {
		slog.Error("Rebuild failed", logfields.Error(err))
	}
}

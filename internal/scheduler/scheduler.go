// Package scheduler drives one build pass over a collation's
// destination set: select entries in scope, prune unchanged files via
// the manifest, then dispatch the per-file pipeline sequentially or
// across a bounded worker pool.
//
// The collation is read-only for the duration of a pass; the manifest
// is the only shared mutable state and synchronizes internally. No
// ordering is guaranteed between destination files.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/uwe-app/app-sub001/internal/collation"
	"github.com/uwe-app/app-sub001/internal/logfields"
	"github.com/uwe-app/app-sub001/internal/manifest"
	"github.com/uwe-app/app-sub001/internal/metrics"
)

// Renderer is the per-file pipeline contract.
type Renderer interface {
	RenderFile(ctx context.Context, t collation.Target) error
}

// Options controls one scheduler pass.
type Options struct {
	// Workers bounds the dispatch pool; zero means available
	// parallelism, one forces sequential dispatch.
	Workers int
	// FailFast aborts the pass on the first worker error. The abort is
	// a cancellation signal observed at dispatch boundaries, not a
	// graceful shutdown: the pass returns without waiting for in-flight
	// work. When false, all dispatched work finishes and errors are
	// aggregated.
	FailFast bool
	// Force bypasses the manifest and rebuilds everything in scope.
	Force bool
	// Prefix restricts the pass to sources under a directory prefix.
	Prefix string
	// Files restricts the pass to an explicit source list.
	Files []string
}

// Scheduler executes build passes against one collation.
type Scheduler struct {
	coll     *collation.Collation
	man      *manifest.Manifest
	renderer Renderer
	recorder metrics.Recorder
}

// New creates a scheduler. The manifest may be nil, in which case the
// collation's attached manifest (if any) is consulted.
func New(coll *collation.Collation, man *manifest.Manifest, renderer Renderer) *Scheduler {
	if man == nil {
		man = coll.Manifest()
	}
	return &Scheduler{
		coll:     coll,
		man:      man,
		renderer: renderer,
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder injects a metrics recorder.
func (s *Scheduler) WithRecorder(r metrics.Recorder) *Scheduler {
	s.recorder = r
	return s
}

// Run executes one pass: select, prune, dispatch, aggregate.
func (s *Scheduler) Run(ctx context.Context, opts Options) error {
	started := time.Now()

	targets := s.selectTargets(opts)
	targets = s.prune(targets, opts.Force)

	slog.Info("Starting build pass",
		logfields.Locale(s.coll.Locale()),
		logfields.Files(len(targets)),
		logfields.Workers(workerCount(opts)),
		slog.Bool("fail_fast", opts.FailFast))

	var err error
	if workerCount(opts) == 1 {
		err = s.runSequential(ctx, targets)
	} else {
		err = s.runParallel(ctx, targets, opts)
	}

	s.recorder.BuildCompleted(time.Since(started), err != nil)
	if err != nil {
		return err
	}

	slog.Info("Build pass complete",
		logfields.Locale(s.coll.Locale()),
		logfields.Files(len(targets)),
		logfields.Duration(time.Since(started)))
	return nil
}

func workerCount(opts Options) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return runtime.NumCPU()
}

// selectTargets filters the destination set down to the requested
// scope: an explicit file list wins over a directory prefix; no scope
// selects everything.
func (s *Scheduler) selectTargets(opts Options) []collation.Target {
	all := s.coll.Destinations()

	if len(opts.Files) > 0 {
		wanted := make(map[string]bool, len(opts.Files))
		for _, f := range opts.Files {
			wanted[filepath.Clean(f)] = true
		}
		out := make([]collation.Target, 0, len(opts.Files))
		for _, t := range all {
			if wanted[t.Source] {
				out = append(out, t)
			}
		}
		return out
	}

	if opts.Prefix != "" {
		prefix := filepath.Clean(opts.Prefix)
		out := make([]collation.Target, 0, len(all))
		for _, t := range all {
			if t.Source == prefix || strings.HasPrefix(t.Source, prefix+string(filepath.Separator)) {
				out = append(out, t)
			}
		}
		return out
	}

	return all
}

func (s *Scheduler) prune(targets []collation.Target, force bool) []collation.Target {
	if s.man == nil {
		return targets
	}
	out := make([]collation.Target, 0, len(targets))
	for _, t := range targets {
		if !s.man.IsDirty(t.Source, t.Destination, force) {
			s.recorder.FileSkipped()
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *Scheduler) runSequential(ctx context.Context, targets []collation.Target) error {
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.dispatch(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

type result struct {
	source string
	err    error
}

// runParallel spreads the targets across a bounded worker pool. Results
// flow back over a buffered channel so a fail-fast return never blocks
// the remaining workers.
func (s *Scheduler) runParallel(ctx context.Context, targets []collation.Target, opts Options) error {
	if len(targets) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := workerCount(opts)
	sem := make(chan struct{}, workers)
	results := make(chan result, len(targets))

	var wg sync.WaitGroup
	for _, t := range targets {
		wg.Add(1)
		go func(t collation.Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results <- result{source: t.Source, err: err}
				return
			}
			results <- result{source: t.Source, err: s.dispatch(ctx, t)}
		}(t)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	for res := range results {
		if res.err == nil {
			continue
		}
		if errors.Is(res.err, context.Canceled) {
			// Work preempted by the fail-fast abort, not a file failure.
			continue
		}
		if opts.FailFast {
			cancel()
			return fmt.Errorf("build aborted: %w", res.err)
		}
		errs = append(errs, res.err)
	}

	return errors.Join(errs...)
}

// dispatch runs the per-file pipeline and records the result. A
// successful dispatch always touches the manifest before returning.
func (s *Scheduler) dispatch(ctx context.Context, t collation.Target) error {
	if err := s.renderer.RenderFile(ctx, t); err != nil {
		s.recorder.FileFailed()
		return fmt.Errorf("%s: %w", t.Source, err)
	}

	if t.Operation == collation.OpRender {
		s.recorder.FileRendered()
	} else {
		s.recorder.FileCopied()
	}
	if s.man != nil {
		s.man.Touch(t.Source)
	}
	return nil
}

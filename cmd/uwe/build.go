package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/uwe-app/app-sub001/internal/book"
	"github.com/uwe-app/app-sub001/internal/collation"
	"github.com/uwe-app/app-sub001/internal/config"
	"github.com/uwe-app/app-sub001/internal/events"
	"github.com/uwe-app/app-sub001/internal/gitinfo"
	"github.com/uwe-app/app-sub001/internal/highlight"
	"github.com/uwe-app/app-sub001/internal/hooks"
	"github.com/uwe-app/app-sub001/internal/locale"
	"github.com/uwe-app/app-sub001/internal/logfields"
	"github.com/uwe-app/app-sub001/internal/manifest"
	"github.com/uwe-app/app-sub001/internal/metrics"
	"github.com/uwe-app/app-sub001/internal/redirects"
	"github.com/uwe-app/app-sub001/internal/render"
	"github.com/uwe-app/app-sub001/internal/scheduler"
	"github.com/uwe-app/app-sub001/internal/search"
	tpl "github.com/uwe-app/app-sub001/internal/template"
	"github.com/uwe-app/app-sub001/internal/watch"
)

// site bundles everything one locale variant needs for a build pass.
type site struct {
	cfg     *config.Config
	coll    *collation.Collation
	man     *manifest.Manifest
	sched   *scheduler.Scheduler
	engine  *tpl.HTMLEngine
	indexer search.Indexer
}

// newSite collates one variant and assembles its render pipeline.
func newSite(cfg *config.Config, variant locale.Variant, recorder metrics.Recorder) (*site, error) {
	coll, err := (&collation.Builder{Config: cfg, Locale: variant.Dir()}).Walk()
	if err != nil {
		return nil, fmt.Errorf("collate %s: %w", cfg.Source, err)
	}

	man := manifest.New(coll.TargetRoot(), cfg.Build.Incremental)
	man.Load()
	coll.SetManifest(man)

	if cfg.GitInfo {
		repo, err := gitinfo.Open(cfg.Source)
		if err != nil {
			slog.Warn("Git metadata unavailable", "error", err)
		} else if err := repo.Annotate(coll); err != nil {
			return nil, err
		}
	}

	var highlighter highlight.Highlighter = highlight.Noop{}
	if cfg.HTML.Highlight {
		theme := ""
		if cfg.Highlight != nil {
			theme = cfg.Highlight.Theme
		}
		highlighter = highlight.New(theme)
	}

	var indexer search.Indexer = search.Noop{}
	if cfg.Search != nil {
		path := cfg.Search.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(coll.TargetRoot(), path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("search index directory: %w", err)
		}
		idx, err := search.NewSQLiteIndex(path)
		if err != nil {
			return nil, err
		}
		indexer = idx
	}

	engine := tpl.NewHTMLEngine(render.TemplateFuncs(coll, cfg.Link.Verify))
	pipeline := &render.Pipeline{
		Collation:   coll,
		Engine:      engine,
		Config:      cfg,
		Highlighter: highlighter,
		Search:      indexer,
	}

	return &site{
		cfg:     cfg,
		coll:    coll,
		man:     man,
		sched:   scheduler.New(coll, man, pipeline).WithRecorder(recorder),
		engine:  engine,
		indexer: indexer,
	}, nil
}

// run executes one scheduler pass and persists the manifest.
func (s *site) run(ctx context.Context, prefix string, files []string, force bool) error {
	err := s.sched.Run(ctx, scheduler.Options{
		Workers:  s.cfg.Build.Workers,
		FailFast: s.cfg.Build.FailFast,
		Force:    s.cfg.Build.Force || force,
		Prefix:   prefix,
		Files:    files,
	})
	if err != nil {
		return err
	}
	return s.man.Save()
}

func (s *site) close() error {
	return s.indexer.Close()
}

// startMetrics wires the Prometheus recorder and serves its registry
// for scraping when metrics are enabled. The exporter is nil when they
// are not.
func startMetrics(cfg *config.Config) (metrics.Recorder, *metrics.Exporter, error) {
	if cfg.Metrics == nil || !cfg.Metrics.Enabled {
		return metrics.NoopRecorder{}, nil, nil
	}
	recorder := metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
	exporter := metrics.NewExporter(cfg.Metrics.Address, prometheus.DefaultGatherer)
	if err := exporter.Start(); err != nil {
		return nil, nil, err
	}
	slog.Info("Serving metrics", "addr", exporter.Addr())
	return recorder, exporter, nil
}

func shutdownExporter(exporter *metrics.Exporter) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exporter.Shutdown(ctx); err != nil {
		slog.Warn("Failed to stop metrics listener", "error", err)
	}
}

func runBuild(ctx context.Context, cfg *config.Config, prefix string) error {
	buildID := uuid.NewString()
	start := time.Now()
	slog.Info("Starting build", logfields.BuildID(buildID), logfields.Source(cfg.Source), logfields.Dest(cfg.Target))

	publisher := events.Publisher(events.Noop{})
	if cfg.Events != nil {
		p, err := events.Connect(ctx, cfg.Events)
		if err != nil {
			return err
		}
		publisher = p
	}
	defer publisher.Close()

	recorder, exporter, err := startMetrics(cfg)
	if err != nil {
		return err
	}
	if exporter != nil {
		defer shutdownExporter(exporter)
	}

	if err := publisher.Publish(events.BuildEvent{BuildID: buildID, Host: cfg.Host, Phase: "started"}); err != nil {
		slog.Warn("Failed to publish build event", "error", err)
	}

	// Redirect graph problems are configuration errors: fail before any
	// output is written.
	if err := redirects.Validate(cfg.Redirects); err != nil {
		return err
	}

	err = buildAll(ctx, cfg, prefix, recorder)
	duration := time.Since(start)

	event := events.BuildEvent{
		BuildID:  buildID,
		Host:     cfg.Host,
		Phase:    "completed",
		Failed:   err != nil,
		Duration: duration.String(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	if pubErr := publisher.Publish(event); pubErr != nil {
		slog.Warn("Failed to publish build event", "error", pubErr)
	}

	if err == nil {
		slog.Info("Build complete", logfields.BuildID(buildID), logfields.Duration(duration))
	}
	return err
}

func buildAll(ctx context.Context, cfg *config.Config, prefix string, recorder metrics.Recorder) error {
	baseDir := filepath.Dir(cfg.Source)
	if err := hooks.Run(ctx, "before", cfg.Hooks.Before, baseDir); err != nil {
		return err
	}

	variants, err := locale.Parse(cfg.Locales)
	if err != nil {
		return err
	}

	for _, variant := range variants {
		s, err := newSite(cfg, variant, recorder)
		if err != nil {
			return err
		}
		err = s.run(ctx, prefix, nil, false)
		if closeErr := s.close(); closeErr != nil {
			slog.Warn("Failed to close search index", "error", closeErr)
		}
		if err != nil {
			return err
		}
		// Book output lands in the same locale subtree as the variant's
		// rendered pages.
		if err := copyBooks(cfg, baseDir, s.coll.TargetRoot()); err != nil {
			return err
		}
		slog.Info("Variant built", logfields.Locale(variant.Name), logfields.Files(s.man.Len()))
	}

	if err := redirects.Write(cfg.Redirects, cfg.Target); err != nil {
		return err
	}

	return hooks.Run(ctx, "after", cfg.Hooks.After, baseDir)
}

func copyBooks(cfg *config.Config, baseDir, targetRoot string) error {
	if cfg.Book == nil {
		return nil
	}
	for _, path := range cfg.Book.Paths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if _, err := book.Copy(path, targetRoot, cfg.Build.Release); err != nil {
			return err
		}
	}
	return nil
}

// runDev builds the primary variant, then keeps it in sync with the
// source tree until interrupted.
func runDev(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	variants, err := locale.Parse(cfg.Locales)
	if err != nil {
		return err
	}

	recorder, exporter, err := startMetrics(cfg)
	if err != nil {
		return err
	}
	if exporter != nil {
		defer shutdownExporter(exporter)
	}

	s, err := newSite(cfg, variants[0], recorder)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(); err != nil {
			slog.Warn("Failed to close search index", "error", err)
		}
	}()

	rebuild := func(ctx context.Context, files []string, force bool) error {
		return s.run(ctx, "", files, force)
	}

	if err := rebuild(ctx, nil, false); err != nil {
		slog.Error("Initial build failed", "error", err)
	}

	w, err := watch.New(s.coll, rebuild)
	if err != nil {
		return err
	}
	w = w.WithTemplateInvalidation(s.engine.Invalidate)
	if interval > 0 {
		w = w.WithPeriodicRebuild(interval)
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := w.Stop(); err != nil {
			slog.Warn("Failed to stop watcher", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	return nil
}

func runClean(cfg *config.Config) error {
	if err := os.RemoveAll(cfg.Target); err != nil {
		return fmt.Errorf("remove target %s: %w", cfg.Target, err)
	}
	sidecar := manifest.SidecarPath(cfg.Target)
	if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove manifest %s: %w", sidecar, err)
	}
	slog.Info("Cleaned output", "target", cfg.Target)
	return nil
}

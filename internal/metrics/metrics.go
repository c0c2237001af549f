// Package metrics records build observability counters. Components
// receive a Recorder by injection; the default NoopRecorder keeps the
// hot path free of nil checks when metrics are not configured.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder observes scheduler and renderer activity.
type Recorder interface {
	FileRendered()
	FileCopied()
	FileSkipped()
	FileFailed()
	BuildCompleted(duration time.Duration, failed bool)
}

// NoopRecorder does nothing.
type NoopRecorder struct{}

func (NoopRecorder) FileRendered()                      {}
func (NoopRecorder) FileCopied()                        {}
func (NoopRecorder) FileSkipped()                       {}
func (NoopRecorder) FileFailed()                        {}
func (NoopRecorder) BuildCompleted(time.Duration, bool) {}

// PrometheusRecorder exports build counters on a prometheus registry.
type PrometheusRecorder struct {
	rendered prometheus.Counter
	copied   prometheus.Counter
	skipped  prometheus.Counter
	failed   prometheus.Counter
	builds   *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewPrometheusRecorder registers the build metrics on the given
// registry.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		rendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_build_files_rendered_total",
			Help: "Pages rendered through the template pipeline.",
		}),
		copied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_build_files_copied_total",
			Help: "Files copied verbatim to the output tree.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_build_files_skipped_total",
			Help: "Files pruned by the incremental manifest.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_build_files_failed_total",
			Help: "Files whose per-file pipeline returned an error.",
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_build_passes_total",
			Help: "Completed scheduler passes by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "site_build_duration_seconds",
			Help:    "Wall-clock duration of a scheduler pass.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	reg.MustRegister(r.rendered, r.copied, r.skipped, r.failed, r.builds, r.duration)
	return r
}

func (r *PrometheusRecorder) FileRendered() { r.rendered.Inc() }
func (r *PrometheusRecorder) FileCopied()   { r.copied.Inc() }
func (r *PrometheusRecorder) FileSkipped()  { r.skipped.Inc() }
func (r *PrometheusRecorder) FileFailed()   { r.failed.Inc() }

func (r *PrometheusRecorder) BuildCompleted(duration time.Duration, failed bool) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	r.builds.WithLabelValues(outcome).Inc()
	r.duration.Observe(duration.Seconds())
}

// Exporter serves the registry over HTTP so a scraper can observe the
// build counters while the process runs.
type Exporter struct {
	srv *http.Server
	ln  net.Listener
}

// NewExporter prepares a /metrics endpoint on addr for the given
// gatherer.
func NewExporter(addr string, gatherer prometheus.Gatherer) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Exporter{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background until
// Shutdown.
func (e *Exporter) Start() error {
	ln, err := net.Listen("tcp", e.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind metrics listener on %s: %w", e.srv.Addr, err)
	}
	e.ln = ln
	go func() {
		if err := e.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics listener failed", "error", err)
		}
	}()
	return nil
}

// Addr reports the bound address, which differs from the configured
// one when the port was 0.
func (e *Exporter) Addr() string {
	if e.ln == nil {
		return e.srv.Addr
	}
	return e.ln.Addr().String()
}

// Shutdown drains the listener.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.srv.Shutdown(ctx)
}

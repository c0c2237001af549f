// Package events publishes build lifecycle events to NATS so external
// consumers can track deployments and failures.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/uwe-app/app-sub001/internal/config"
	"github.com/uwe-app/app-sub001/internal/retry"
)

// BuildEvent describes one build pass.
type BuildEvent struct {
	BuildID   string    `json:"build_id"`
	Host      string    `json:"host,omitempty"`
	Locale    string    `json:"locale,omitempty"`
	Phase     string    `json:"phase"`
	Files     int       `json:"files,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	Error     string    `json:"error,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits build lifecycle events.
type Publisher interface {
	Publish(event BuildEvent) error
	Close()
}

// Noop discards all events. Used when no event sink is configured.
type Noop struct{}

func (Noop) Publish(BuildEvent) error { return nil }
func (Noop) Close()                   {}

// NATSPublisher publishes events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials the configured NATS server, retrying transient dial
// failures with backoff.
func Connect(ctx context.Context, cfg *config.EventsConfig) (*NATSPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("events config is required")
	}

	var conn *nats.Conn
	err := retry.Do(ctx, retry.DefaultPolicy(), func() error {
		var dialErr error
		conn, dialErr = nats.Connect(cfg.URL)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	slog.Info("NATS event publisher connected", "url", cfg.URL, "subject", cfg.Subject)
	return &NATSPublisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish marshals and sends one event.
func (p *NATSPublisher) Publish(event BuildEvent) error {
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published build event",
		"build_id", event.BuildID,
		"phase", event.Phase,
		"failed", event.Failed)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Flush()
		p.conn.Close()
	}
}

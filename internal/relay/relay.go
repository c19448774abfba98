// Package relay republishes groundwater threshold alerts to a message bus.
// It polls the alerts endpoint on a fixed interval, stamps each alert as a
// domain.AlertEvent, drops events it has already published, and hands the
// rest to a Publisher.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/groundwater-client/internal/cache"
	"github.com/couchcryptid/groundwater-client/internal/domain"
	"github.com/couchcryptid/groundwater-client/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// AlertSource lists active alerts, optionally filtered by severity.
type AlertSource interface {
	Alerts(ctx context.Context, severity string) ([]domain.Alert, error)
}

// Publisher writes alert events downstream.
type Publisher interface {
	PublishAlerts(ctx context.Context, events []domain.AlertEvent) error
}

// StateLister lists the states the API monitors.
type StateLister interface {
	States(ctx context.Context) ([]string, error)
}

// Config controls polling.
type Config struct {
	Interval  time.Duration
	Severity  string   // empty relays every severity
	States    []string // empty relays every state; matched case-insensitively
	DedupSize int      // how many published IDs are remembered
}

// Option customises a Relay.
type Option func(*Relay)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(r *Relay) { r.clock = c }
}

// WithStateLister checks Config.States against the monitored states on every
// poll. Configured states the API does not know are logged and ignored.
func WithStateLister(l StateLister) Option {
	return func(r *Relay) { r.states = l }
}

// Relay orchestrates the poll-transform-publish loop.
type Relay struct {
	source    AlertSource
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	states    StateLister
	cfg       Config
	seen      *cache.LRU[string, struct{}]
	ready     atomic.Bool
}

// New creates a Relay.
func New(src AlertSource, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, cfg Config, opts ...Option) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	r := &Relay{
		source:    src,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		cfg:       cfg,
		seen:      cache.NewLRU[string, struct{}](cfg.DedupSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckReadiness returns nil once a poll has completed successfully.
func (r *Relay) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("relay has not completed a poll yet")
	}
	return nil
}

// Run polls immediately and then on every tick until ctx is cancelled. Each
// poll cycle gets its own invocation id for log correlation. A failed poll is retried after an exponential backoff instead of waiting for
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("relay started", "interval", r.cfg.Interval, "severity", r.cfg.Severity, "states", r.cfg.States, "dedup_size", r.cfg.DedupSize)
	r.metrics.RelayRunning.Set(1)
	defer r.metrics.RelayRunning.Set(0)

	ticker := r.clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	backoff := initialBackoff
	for {
		if err := r.Poll(observability.ContextWithInvocationID(ctx)); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("relay stopping", "reason", ctx.Err())
				return nil
			}
			if !r.sleep(ctx, backoff) {
				r.logger.Info("relay stopping", "reason", ctx.Err())
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		select {
		case <-ctx.Done():
			r.logger.Info("relay stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// Poll runs one fetch-transform-publish cycle. Events are remembered as seen
// only after the publisher accepts them, so a failed publish is retried.
func (r *Relay) Poll(ctx context.Context) error {
	start := r.clock.Now()
	logger := observability.WithInvocationID(ctx, r.logger)

	alerts, err := r.source.Alerts(ctx, r.cfg.Severity)
	if err != nil {
		r.metrics.PollErrors.WithLabelValues("fetch").Inc()
		if ctx.Err() == nil {
			logger.Error("fetch alerts failed", "error", err)
		}
		return err
	}
	r.metrics.AlertsFetched.Add(float64(len(alerts)))
	alerts = r.filterStates(ctx, logger, alerts)

	events := r.unseen(alerts)
	if len(events) > 0 {
		if err := r.publisher.PublishAlerts(ctx, events); err != nil {
			r.metrics.PollErrors.WithLabelValues("publish").Inc()
			if ctx.Err() == nil {
				logger.Error("publish alerts failed", "error", err, "batch_size", len(events))
			}
			return err
		}
		for _, evt := range events {
			r.seen.Put(evt.ID, struct{}{})
		}
		r.metrics.AlertsPublished.Add(float64(len(events)))
		logger.Info("alerts published", "count", len(events))
	}

	r.metrics.PollDuration.Observe(r.clock.Since(start).Seconds())
	r.ready.Store(true)
	return nil
}

func (r *Relay) filterStates(ctx context.Context, logger *slog.Logger, alerts []domain.Alert) []domain.Alert {
	if len(r.cfg.States) == 0 {
		return alerts
	}
	wanted := r.wantedStates(ctx, logger)
	kept := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if _, ok := wanted[strings.ToLower(a.State)]; ok {
			kept = append(kept, a)
		}
	}
	if dropped := len(alerts) - len(kept); dropped > 0 {
		logger.Debug("alerts outside configured states skipped", "count", dropped)
	}
	return kept
}

// wantedStates returns the lower-cased configured states, minus any the
// monitored state list does not contain. If the list cannot be fetched the
// configured names are used as given.
func (r *Relay) wantedStates(ctx context.Context, logger *slog.Logger) map[string]struct{} {
	wanted := make(map[string]struct{}, len(r.cfg.States))
	for _, s := range r.cfg.States {
		wanted[strings.ToLower(s)] = struct{}{}
	}
	if r.states == nil {
		return wanted
	}

	known, err := r.states.States(ctx)
	if err != nil {
		logger.Warn("monitored states unavailable, filtering by configured names", "error", err)
		return wanted
	}
	monitored := make(map[string]struct{}, len(known))
	for _, s := range known {
		monitored[strings.ToLower(s)] = struct{}{}
	}
	for s := range wanted {
		if _, ok := monitored[s]; !ok {
			logger.Warn("configured alert state is not monitored", "state", s)
			delete(wanted, s)
		}
	}
	return wanted
}

func (r *Relay) unseen(alerts []domain.Alert) []domain.AlertEvent {
	events := make([]domain.AlertEvent, 0, len(alerts))
	batch := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		evt := domain.NewAlertEvent(a)
		_, dup := batch[evt.ID]
		if dup || r.seen.Contains(evt.ID) {
			r.metrics.AlertsDeduplicated.Inc()
			continue
		}
		batch[evt.ID] = struct{}{}
		events = append(events, evt)
	}
	return events
}

func (r *Relay) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-r.clock.After(d):
		return true
	}
}

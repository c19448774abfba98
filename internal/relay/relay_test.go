package relay_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-client/internal/domain"
	"github.com/couchcryptid/groundwater-client/internal/groundwater"
	"github.com/couchcryptid/groundwater-client/internal/observability"
	"github.com/couchcryptid/groundwater-client/internal/relay"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	mu       sync.Mutex
	alerts   []domain.Alert
	failures int // number of leading calls that fail
	calls    int
	severity string
	ids      []string
}

func (m *mockSource) Alerts(ctx context.Context, severity string) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.ids = append(m.ids, observability.InvocationID(ctx))
	m.severity = severity
	if m.calls <= m.failures {
		return nil, errors.New("upstream unavailable")
	}
	return append([]domain.Alert(nil), m.alerts...), nil
}

func (m *mockSource) setAlerts(alerts ...domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = alerts
}

func (m *mockSource) invocationIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...)
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockPublisher struct {
	mu        sync.Mutex
	published [][]domain.AlertEvent
	err       error
}

func (m *mockPublisher) PublishAlerts(_ context.Context, events []domain.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, events)
	return nil
}

func (m *mockPublisher) batches() [][]domain.AlertEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]domain.AlertEvent(nil), m.published...)
}

// countingTaxonomy serves a fixed state list and counts upstream calls.
type countingTaxonomy struct {
	mu     sync.Mutex
	states []string
	err    error
	calls  int
}

func (c *countingTaxonomy) States(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.states, nil
}

func (c *countingTaxonomy) Districts(context.Context, string) ([]string, error) { return nil, nil }
func (c *countingTaxonomy) PolicyStates(context.Context) ([]string, error)      { return nil, nil }
func (c *countingTaxonomy) OptimizerStates(context.Context) ([]string, error)   { return nil, nil }

func (c *countingTaxonomy) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func alert(state, severity string) domain.Alert {
	return domain.Alert{State: state, Severity: severity, Message: state + " below threshold", ThresholdExceeded: true}
}

// --- tests ---

func TestPoll_PublishesAndDeduplicates(t *testing.T) {
	src := &mockSource{alerts: []domain.Alert{alert("Punjab", "critical"), alert("Haryana", "high")}}
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	r := relay.New(src, pub, discardLogger(), metrics, relay.Config{Interval: time.Minute, Severity: "high", DedupSize: 10})
	ctx := context.Background()

	require.Error(t, r.CheckReadiness(ctx))

	require.NoError(t, r.Poll(ctx))
	require.NoError(t, r.CheckReadiness(ctx))
	assert.Equal(t, "high", src.severity)

	src.setAlerts(alert("Punjab", "critical"), alert("Haryana", "high"), alert("Gujarat", "medium"))
	require.NoError(t, r.Poll(ctx))

	batches := pub.batches()
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	require.Len(t, batches[1], 1)
	assert.Equal(t, "Gujarat", batches[1][0].State)

	assert.InDelta(t, 5, testutil.ToFloat64(metrics.AlertsFetched), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.AlertsPublished), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.AlertsDeduplicated), 0)
}

func TestPoll_DuplicateWithinBatch(t *testing.T) {
	src := &mockSource{alerts: []domain.Alert{alert("Punjab", "critical"), alert("Punjab", "critical")}}
	pub := &mockPublisher{}
	r := relay.New(src, pub, discardLogger(), observability.NewMetricsForTesting(), relay.Config{DedupSize: 10})

	require.NoError(t, r.Poll(context.Background()))
	require.Len(t, pub.batches(), 1)
	assert.Len(t, pub.batches()[0], 1)
}

func TestPoll_NothingNewSkipsPublish(t *testing.T) {
	src := &mockSource{}
	pub := &mockPublisher{}
	r := relay.New(src, pub, discardLogger(), observability.NewMetricsForTesting(), relay.Config{DedupSize: 10})

	require.NoError(t, r.Poll(context.Background()))
	assert.Empty(t, pub.batches())
	require.NoError(t, r.CheckReadiness(context.Background()), "an empty successful poll still counts")
}

func TestPoll_PublishFailureIsRetried(t *testing.T) {
	src := &mockSource{alerts: []domain.Alert{alert("Punjab", "critical")}}
	pub := &mockPublisher{err: errors.New("broker down")}
	metrics := observability.NewMetricsForTesting()
	r := relay.New(src, pub, discardLogger(), metrics, relay.Config{DedupSize: 10})
	ctx := context.Background()

	require.Error(t, r.Poll(ctx))
	require.Error(t, r.CheckReadiness(ctx))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PollErrors.WithLabelValues("publish")), 0)

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	require.NoError(t, r.Poll(ctx))
	require.Len(t, pub.batches(), 1, "unpublished alerts are not marked as seen")
}

func TestPoll_DedupWindowIsBounded(t *testing.T) {
	src := &mockSource{}
	pub := &mockPublisher{}
	r := relay.New(src, pub, discardLogger(), observability.NewMetricsForTesting(), relay.Config{DedupSize: 1})
	ctx := context.Background()

	src.setAlerts(alert("Punjab", "critical"))
	require.NoError(t, r.Poll(ctx))
	src.setAlerts(alert("Haryana", "critical"))
	require.NoError(t, r.Poll(ctx))
	src.setAlerts(alert("Punjab", "critical"))
	require.NoError(t, r.Poll(ctx))

	assert.Len(t, pub.batches(), 3, "evicted IDs are published again")
}

func TestRun_PollsOnEveryTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &mockSource{alerts: []domain.Alert{alert("Punjab", "critical")}}
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	r := relay.New(src, pub, discardLogger(), metrics, relay.Config{Interval: time.Minute, DedupSize: 10}, relay.WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return src.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return r.CheckReadiness(ctx) == nil }, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RelayRunning), 0)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return src.callCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.RelayRunning), 0)
	assert.Len(t, pub.batches(), 1)
}

func TestRun_BacksOffAfterFetchFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &mockSource{failures: 2, alerts: []domain.Alert{alert("Punjab", "critical")}}
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	r := relay.New(src, pub, discardLogger(), metrics, relay.Config{Interval: time.Hour, DedupSize: 10}, relay.WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// ticker + first backoff timer
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	assert.Equal(t, 1, src.callCount())
	clock.Advance(200 * time.Millisecond)

	// second backoff doubles to 400ms
	require.Eventually(t, func() bool { return src.callCount() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(399 * time.Millisecond)
	assert.Equal(t, 2, src.callCount())
	clock.Advance(time.Millisecond)

	require.Eventually(t, func() bool { return r.CheckReadiness(ctx) == nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, src.callCount())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.PollErrors.WithLabelValues("fetch")), 0)

	cancel()
	require.NoError(t, <-done)
}

func TestRun_CancelDuringBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &mockSource{failures: 100}
	r := relay.New(src, &mockPublisher{}, discardLogger(), observability.NewMetricsForTesting(), relay.Config{Interval: time.Minute}, relay.WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	cancel()
	require.NoError(t, <-done)
}

func TestRun_EachCycleHasItsOwnInvocationID(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &mockSource{}
	r := relay.New(src, &mockPublisher{}, discardLogger(), observability.NewMetricsForTesting(), relay.Config{Interval: time.Minute, DedupSize: 10}, relay.WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return r.CheckReadiness(ctx) == nil }, time.Second, 5*time.Millisecond)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return src.callCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	ids := src.invocationIDs()
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEmpty(t, ids[1])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestPoll_StateFilterUsesCachedStateList(t *testing.T) {
	upstream := &countingTaxonomy{states: []string{"Punjab", "Haryana", "Gujarat"}}
	metrics := observability.NewMetricsForTesting()
	states := groundwater.NewCachedTaxonomy(upstream, 8, metrics)

	src := &mockSource{alerts: []domain.Alert{alert("Punjab", "critical"), alert("Gujarat", "high")}}
	pub := &mockPublisher{}
	cfg := relay.Config{States: []string{"punjab", "Atlantis"}, DedupSize: 10}
	r := relay.New(src, pub, discardLogger(), metrics, cfg, relay.WithStateLister(states))
	ctx := context.Background()

	require.NoError(t, r.Poll(ctx))
	src.setAlerts(alert("Punjab", "medium"), alert("Gujarat", "medium"))
	require.NoError(t, r.Poll(ctx))
	require.NoError(t, r.Poll(ctx))

	batches := pub.batches()
	require.Len(t, batches, 2)
	for _, batch := range batches {
		require.Len(t, batch, 1)
		assert.Equal(t, "Punjab", batch[0].State)
	}

	assert.Equal(t, 1, upstream.callCount(), "later polls are served from the cache")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TaxonomyCache.WithLabelValues("states", "miss")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.TaxonomyCache.WithLabelValues("states", "hit")), 0)
}

func TestPoll_StateFilterWithoutStateList(t *testing.T) {
	lister := &countingTaxonomy{err: errors.New("states endpoint down")}
	src := &mockSource{alerts: []domain.Alert{alert("Punjab", "critical"), alert("Gujarat", "high")}}
	pub := &mockPublisher{}
	cfg := relay.Config{States: []string{"GUJARAT"}, DedupSize: 10}
	r := relay.New(src, pub, discardLogger(), observability.NewMetricsForTesting(), cfg, relay.WithStateLister(lister))

	require.NoError(t, r.Poll(context.Background()))
	require.Len(t, pub.batches(), 1)
	require.Len(t, pub.batches()[0], 1)
	assert.Equal(t, "Gujarat", pub.batches()[0][0].State)
}

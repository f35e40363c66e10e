// Package refresh keeps the snapshot slot current: a timer poll against the
// upstream feed plus a manual trigger wired to the dashboard's update
// button. One upstream attempt per tick or trigger; failed attempts keep the
// previous snapshot in place.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/blumetech/alertablu-dash/internal/models"
	"github.com/blumetech/alertablu-dash/internal/observability"
	"github.com/blumetech/alertablu-dash/internal/store"
	"github.com/blumetech/alertablu-dash/internal/upstream"
)

// Fetcher is the upstream client seam, narrowed for tests.
type Fetcher interface {
	Fetch(ctx context.Context) (*models.FeedSnapshot, error)
}

// Status describes the outcome of the most recent refresh attempts.
type Status struct {
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	HasSnapshot bool      `json:"has_snapshot"`
}

type Manager struct {
	fetcher  Fetcher
	store    *store.Store
	metrics  *observability.Metrics
	interval time.Duration
	clock    clockwork.Clock

	mu     sync.Mutex
	status Status
	wg     sync.WaitGroup
}

// NewManager builds a refresh manager. Pass clockwork.NewRealClock() in
// production; tests inject a fake clock to drive ticks deterministically.
func NewManager(fetcher Fetcher, st *store.Store, metrics *observability.Metrics, interval time.Duration, clock clockwork.Clock) *Manager {
	return &Manager{
		fetcher:  fetcher,
		store:    st,
		metrics:  metrics,
		interval: interval,
		clock:    clock,
	}
}

// Start launches the polling loop: one immediate refresh, then one per
// interval until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		slog.Info("starting feed poller", "interval", m.interval)

		ticker := m.clock.NewTicker(m.interval)
		defer ticker.Stop()

		m.Refresh(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("feed poller shutting down")
				return
			case <-ticker.Chan():
				m.Refresh(ctx)
			}
		}
	}()
}

// Stop blocks until the polling goroutine has exited. Cancel the Start
// context first.
func (m *Manager) Stop() {
	m.wg.Wait()
}

// Refresh performs a single fetch attempt and reports the resulting status.
// Safe for concurrent use; the slot is replaced atomically on success.
func (m *Manager) Refresh(ctx context.Context) Status {
	now := m.clock.Now()

	start := m.clock.Now()
	snapshot, err := m.fetcher.Fetch(ctx)
	m.metrics.FetchDuration.Observe(m.clock.Since(start).Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.LastAttempt = now
	if err != nil {
		m.metrics.FetchesTotal.WithLabelValues(outcomeLabel(err)).Inc()
		m.status.LastError = err.Error()
		slog.Error("feed refresh failed", "error", err)
		return m.statusLocked()
	}

	m.metrics.FetchesTotal.WithLabelValues("success").Inc()
	m.metrics.SnapshotAge.Set(m.clock.Since(snapshot.UpdatedAt).Seconds())

	if err := m.store.SetLatest(ctx, snapshot); err != nil {
		// The in-memory slot is already fresh; only durability suffered.
		slog.Warn("snapshot persisted with error", "error", err)
	}

	m.status.LastSuccess = now
	m.status.LastError = ""
	slog.Info("feed refreshed", "records", len(snapshot.Records), "updated_at", snapshot.UpdatedAt)
	return m.statusLocked()
}

// Status returns the current refresh state for display.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	s := m.status
	if snapshot := m.store.Latest(); snapshot != nil {
		s.HasSnapshot = true
		s.UpdatedAt = snapshot.UpdatedAt
	}
	return s
}

func outcomeLabel(err error) string {
	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		return strings.ToLower(string(upErr.Kind))
	}
	return "internal"
}

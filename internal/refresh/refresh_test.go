package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blumetech/alertablu-dash/internal/models"
	"github.com/blumetech/alertablu-dash/internal/observability"
	"github.com/blumetech/alertablu-dash/internal/store"
	"github.com/blumetech/alertablu-dash/internal/upstream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeFetcher struct {
	mu      sync.Mutex
	err     error
	calls   int
	fetched chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{fetched: make(chan struct{}, 16)}
}

func (f *fakeFetcher) Fetch(ctx context.Context) (*models.FeedSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.fetched <- struct{}{}
	if f.err != nil {
		return nil, f.err
	}
	return &models.FeedSnapshot{
		Records:   []models.AlertRecord{{ID: f.calls, Type: "cch"}},
		UpdatedAt: time.Date(2025, 3, 14, 21, 0, 0, 0, time.UTC),
		Raw:       []byte(`{"dados":[],"datahoraAtualizacao":"2025-03-14T21:00:00Z"}`),
	}, nil
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setupManager(t *testing.T, fetcher *fakeFetcher, interval time.Duration, clock clockwork.Clock) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewManager(fetcher, st, observability.NewMetricsForTesting(), interval, clock), st
}

func TestRefresh_SuccessUpdatesStoreAndStatus(t *testing.T) {
	fetcher := newFakeFetcher()
	mgr, st := setupManager(t, fetcher, 5*time.Minute, clockwork.NewFakeClock())

	status := mgr.Refresh(context.Background())

	assert.True(t, status.HasSnapshot)
	assert.Empty(t, status.LastError)
	assert.False(t, status.LastSuccess.IsZero())
	assert.Equal(t, status.LastAttempt, status.LastSuccess)

	require.NotNil(t, st.Latest())
	assert.Len(t, st.Latest().Records, 1)
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	fetcher := newFakeFetcher()
	mgr, st := setupManager(t, fetcher, 5*time.Minute, clockwork.NewFakeClock())

	mgr.Refresh(context.Background())
	before := st.Latest()
	require.NotNil(t, before)

	fetcher.setErr(&upstream.Error{Kind: upstream.KindTimeout})
	status := mgr.Refresh(context.Background())

	assert.NotEmpty(t, status.LastError)
	assert.True(t, status.HasSnapshot, "stale snapshot should still be reported")
	assert.Same(t, before, st.Latest(), "a failed refresh must not touch the slot")
}

func TestRefresh_ErrorClearedAfterRecovery(t *testing.T) {
	fetcher := newFakeFetcher()
	mgr, _ := setupManager(t, fetcher, 5*time.Minute, clockwork.NewFakeClock())

	fetcher.setErr(&upstream.Error{Kind: upstream.KindConnectionFailed})
	status := mgr.Refresh(context.Background())
	require.NotEmpty(t, status.LastError)

	fetcher.setErr(nil)
	status = mgr.Refresh(context.Background())
	assert.Empty(t, status.LastError)
	assert.True(t, status.HasSnapshot)
}

func TestManager_PollsOnInterval(t *testing.T) {
	fetcher := newFakeFetcher()
	clock := clockwork.NewFakeClock()
	interval := 5 * time.Minute
	mgr, _ := setupManager(t, fetcher, interval, clock)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	// Initial refresh fires immediately.
	<-fetcher.fetched

	// Next refresh only after the interval elapses.
	clock.BlockUntil(1)
	clock.Advance(interval)
	<-fetcher.fetched

	clock.BlockUntil(1)
	clock.Advance(interval)
	<-fetcher.fetched

	cancel()
	mgr.Stop()

	assert.Equal(t, 3, fetcher.callCount())
}

func TestManager_StopsOnCancel(t *testing.T) {
	fetcher := newFakeFetcher()
	clock := clockwork.NewFakeClock()
	mgr, _ := setupManager(t, fetcher, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	<-fetcher.fetched

	cancel()
	mgr.Stop()

	assert.Equal(t, 1, fetcher.callCount())
}

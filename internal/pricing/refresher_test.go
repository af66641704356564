package pricing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/namaz/internal/metrics"
)

type countingSource struct {
	calls int32
	snap  Snapshot
}

func (s *countingSource) FetchSnapshot(ctx context.Context) Snapshot {
	atomic.AddInt32(&s.calls, 1)
	return s.snap
}

// blockingSource returns only once release is closed.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) FetchSnapshot(ctx context.Context) Snapshot {
	close(s.started)
	<-s.release
	return Snapshot{GoldPerOunce: 1}
}

func TestRefresher_LoadsImmediatelyAndOnTick(t *testing.T) {
	src := &countingSource{snap: Snapshot{GoldPerOunce: 2000, SilverPerOunce: 25}}
	r := NewRefresher(src, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&src.calls) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	snap, ok := r.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, 2000.0, snap.GoldPerOunce)
}

func TestRefresher_NoSnapshotBeforeLoad(t *testing.T) {
	r := NewRefresher(&countingSource{})
	_, ok := r.Snapshot()
	assert.False(t, ok)
}

func TestRefresher_DiscardsLoadAfterStop(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	r := NewRefresher(src, WithMetrics(m))

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	<-src.started
	r.Stop()
	close(src.release)
	require.NoError(t, <-done)

	_, ok := r.Snapshot()
	assert.False(t, ok, "a load finishing after Stop must not be committed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceRefreshes.WithLabelValues("discarded")))
}

func TestRefresher_RefreshRecordsFallback(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	r := NewRefresher(&countingSource{snap: Snapshot{Err: "gold-api down"}}, WithMetrics(m))

	snap := r.Refresh(context.Background())
	assert.Equal(t, "gold-api down", snap.Err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceRefreshes.WithLabelValues("fallback")))
}

func TestRefresher_RefreshWithCancelledContext(t *testing.T) {
	r := NewRefresher(&countingSource{snap: Snapshot{GoldPerOunce: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Refresh(ctx)
	_, ok := r.Snapshot()
	assert.False(t, ok)
}

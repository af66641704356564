package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/namaz/internal/metrics"
)

// DefaultInterval is how often the Refresher reloads prices.
const DefaultInterval = 5 * time.Minute

// Source produces snapshots. *Fetcher is the production implementation.
type Source interface {
	FetchSnapshot(ctx context.Context) Snapshot
}

// Refresher loads prices on start and then every Interval. Loads that finish
// after Stop or after their context ends are discarded.
type Refresher struct {
	source   Source
	interval time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	snap   Snapshot
	loaded bool
	gen    uint64
	cancel context.CancelFunc
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithInterval overrides DefaultInterval. Non-positive values are ignored.
func WithInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the logger used for load outcomes.
func WithLogger(log zerolog.Logger) RefresherOption {
	return func(r *Refresher) { r.log = log }
}

// WithMetrics records each load outcome.
func WithMetrics(m *metrics.Metrics) RefresherOption {
	return func(r *Refresher) { r.metrics = m }
}

// NewRefresher returns a Refresher reading from source.
func NewRefresher(source Source, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		source:   source,
		interval: DefaultInterval,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads immediately, then on every tick, until ctx is done or Stop is
// called. It always returns nil on a clean shutdown.
func (r *Refresher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	gen := r.gen
	r.mu.Unlock()
	defer cancel()

	r.load(ctx, gen)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.load(ctx, gen)
		}
	}
}

// Refresh performs one load now and returns the committed snapshot.
func (r *Refresher) Refresh(ctx context.Context) Snapshot {
	r.mu.RLock()
	gen := r.gen
	r.mu.RUnlock()
	r.load(ctx, gen)
	snap, _ := r.Snapshot()
	return snap
}

// Stop ends Run and invalidates any load still in flight.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Snapshot returns the last committed snapshot and whether one exists.
func (r *Refresher) Snapshot() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap, r.loaded
}

func (r *Refresher) load(ctx context.Context, gen uint64) {
	snap := r.source.FetchSnapshot(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil || gen != r.gen {
		r.metrics.RecordRefresh("discarded")
		r.log.Debug().Msg("discarding price load that finished after cancellation")
		return
	}
	r.snap = snap
	r.loaded = true

	if snap.Complete() {
		r.metrics.RecordRefresh("live")
		r.log.Debug().
			Float64("gold", snap.GoldPerOunce).
			Float64("silver", snap.SilverPerOunce).
			Msg("prices refreshed")
		return
	}
	r.metrics.RecordRefresh("fallback")
	r.log.Warn().Str("error", snap.Err).Msg(FallbackNotice)
}

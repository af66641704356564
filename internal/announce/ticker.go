// Package announce drives the live countdown: a Ticker re-resolves the
// schedule on every tick and hands each frame to its sinks.
package announce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/smokyabdulrahman/namaz/internal/schedule"
)

const (
	// DefaultInterval is the countdown cadence.
	DefaultInterval = time.Second
	// retryEvery throttles reloading the schedule after a failed or partial load.
	retryEvery = time.Minute
)

// errRetryPending is returned by Frame while a failed load waits for retryEvery.
var errRetryPending = errors.New("schedule reload pending")

// Frame is one countdown update.
type Frame struct {
	At        time.Time `json:"at"`
	Location  string    `json:"location"`
	Current   string    `json:"current,omitempty"`
	Next      string    `json:"next,omitempty"`
	NextTime  string    `json:"next_time,omitempty"`
	Tomorrow  bool      `json:"tomorrow"`
	Remaining string    `json:"remaining"`
	Seconds   int64     `json:"seconds"`
	Text      string    `json:"text"`
}

// Loader produces a resolved schedule. *schedule.Service implements it.
type Loader interface {
	Next(ctx context.Context, loc *location.Location, now time.Time) (*schedule.Upcoming, error)
}

// Ticker keeps the last loaded schedule in memory and resolves it against
// the clock on every tick. It reloads only when the calendar day changes or
// the day is exhausted and tomorrow is not yet known.
type Ticker struct {
	loader     Loader
	loc        *location.Location
	sinks      []Sink
	interval   time.Duration
	format     string
	timeFormat string
	now        func() time.Time
	log        zerolog.Logger

	up *schedule.Upcoming
	// failedAt is when the last load failed or came back without a target.
	failedAt time.Time
	lastErr  error
}

// Option configures a Ticker.
type Option func(*Ticker)

// WithInterval sets the tick cadence. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithFormat sets the text layout (see prayer.Countdown.Render) and the Go
// clock layout for prayer times.
func WithFormat(format, timeFormat string) Option {
	return func(t *Ticker) {
		if format != "" {
			t.format = format
		}
		if timeFormat != "" {
			t.timeFormat = timeFormat
		}
	}
}

// WithLogger sets the logger for load and publish failures.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Ticker) { t.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Ticker) { t.now = now }
}

// NewTicker returns a Ticker for loc publishing to sinks.
func NewTicker(loader Loader, loc *location.Location, sinks []Sink, opts ...Option) *Ticker {
	t := &Ticker{
		loader:     loader,
		loc:        loc,
		sinks:      sinks,
		interval:   DefaultInterval,
		format:     prayer.LayoutCountdown,
		timeFormat: "15:04",
		now:        time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run emits a frame immediately and then on every tick until ctx is done.
// Load and publish failures are logged; the next tick retries.
func (t *Ticker) Run(ctx context.Context) error {
	t.emit(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.emit(ctx)
		}
	}
}

func (t *Ticker) emit(ctx context.Context) {
	frame, err := t.Frame(ctx, t.now())
	if errors.Is(err, errRetryPending) {
		return
	}
	if err != nil {
		t.log.Warn().Err(err).Msg("countdown update failed")
		return
	}
	for _, s := range t.sinks {
		if err := s.Publish(ctx, frame); err != nil {
			t.log.Warn().Err(err).Str("sink", s.Name()).Msg("failed to publish countdown")
		}
	}
}

// Frame advances the countdown to now and renders it.
func (t *Ticker) Frame(ctx context.Context, now time.Time) (Frame, error) {
	if err := t.advance(ctx, now); err != nil {
		return Frame{}, err
	}
	return t.render(), nil
}

func (t *Ticker) advance(ctx context.Context, now time.Time) error {
	var today *prayer.Resolution
	if t.up != nil {
		local := now.In(t.up.Day.Zone)
		if sameDay(local, t.up.Day.Date) {
			res, err := prayer.Resolve(t.up.Day.Schedule, local)
			if err != nil {
				return err
			}
			switch {
			case !res.NeedsNextDay:
				t.up.Resolution, t.up.Now = res, local
				t.up.Next, t.up.Tomorrow = res.Next, false
				return nil
			case t.up.Tomorrow:
				t.up.Resolution, t.up.Now = res, local
				return nil
			}
			today = &res
		}
	}

	if !t.failedAt.IsZero() && now.Sub(t.failedAt) < retryEvery {
		if today == nil {
			return fmt.Errorf("%w: %w", errRetryPending, t.lastErr)
		}
		// keep counting on today's schedule until the retry is due
		t.up.Resolution, t.up.Now = *today, now.In(t.up.Day.Zone)
		return nil
	}

	up, err := t.loader.Next(ctx, t.loc, now)
	if err != nil {
		t.failedAt, t.lastErr = now, err
		return err
	}
	t.up = up
	if up.Next == nil {
		t.failedAt, t.lastErr = now, errors.New("next prayer unavailable")
	} else {
		t.failedAt, t.lastErr = time.Time{}, nil
	}
	return nil
}

func (t *Ticker) render() Frame {
	up := t.up
	c := prayer.Countdown{
		Now:      up.Now,
		Current:  up.Resolution.Current,
		Next:     up.Next,
		Tomorrow: up.Tomorrow,
	}
	d := c.Data(t.timeFormat)

	f := Frame{
		At:        up.Now,
		Location:  up.Day.Location.Label(),
		Current:   d.Current,
		Tomorrow:  up.Tomorrow,
		Remaining: d.Countdown,
		Text:      c.Render(t.format, t.timeFormat),
	}
	if up.Next != nil {
		f.Next = up.Next.Name
		f.NextTime = up.Next.Time.Format(time.RFC3339)
		f.Seconds = int64(c.Left() / time.Second)
	}
	return f
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Package schedule ties the Al Adhan client, the file cache and the
// resolver together: it answers "what are today's times", "what is next"
// and "what does Ramzan look like" for a selected location.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/smokyabdulrahman/namaz/internal/api"
	"github.com/smokyabdulrahman/namaz/internal/cache"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
)

// ErrNoHijriDate is returned when the API answers without a usable Hijri
// date, so the upcoming Ramzan cannot be located.
var ErrNoHijriDate = errors.New("hijri date unavailable")

// Provider is the part of the Al Adhan client the service needs.
type Provider interface {
	FetchDay(ctx context.Context, date time.Time, q api.Query) (*api.Response, error)
	FetchHijriCalendar(ctx context.Context, hijriYear, hijriMonth int, q api.Query) (*api.CalendarResponse, error)
}

// Service fetches and resolves prayer schedules.
type Service struct {
	provider Provider
	cache    *cache.Cache
	log      zerolog.Logger
	method   int
	school   int
	prayers  []string
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the on-disk cache. A nil cache disables caching.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the logger used for non-fatal problems.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithCalculation sets the calculation method and juristic school.
// -1 leaves the choice to the API.
func WithCalculation(method, school int) Option {
	return func(s *Service) {
		s.method = method
		s.school = school
	}
}

// WithPrayers selects the entries shown on the daily schedule.
func WithPrayers(names []string) Option {
	return func(s *Service) {
		if len(names) > 0 {
			s.prayers = names
		}
	}
}

// New returns a Service backed by provider.
func New(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		log:      zerolog.Nop(),
		method:   -1,
		school:   -1,
		prayers:  prayer.DefaultPrayerNames,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query converts a location into an API query. Coordinates take precedence
// over city and country.
func (s *Service) Query(loc *location.Location) (api.Query, error) {
	if loc == nil {
		return api.Query{}, location.ErrNoLocation
	}
	if err := loc.Validate(); err != nil {
		return api.Query{}, err
	}
	q := api.Query{Method: s.method, School: s.school}
	if loc.HasCoordinates() {
		q.Latitude, q.Longitude = *loc.Lat, *loc.Lon
	} else {
		q.City, q.Country = loc.City, loc.Country
	}
	return q, nil
}

// Day is one day's schedule at one location.
type Day struct {
	Location location.Location
	Date     time.Time
	Zone     *time.Location
	Info     api.DateInfo
	Meta     api.Meta
	// Schedule holds every entry the resolver needs.
	Schedule []prayer.Prayer
	// Display holds the configured selection, in configured order.
	Display []prayer.Prayer
}

// Day returns the schedule for the calendar day of date, from the cache when
// possible.
func (s *Service) Day(ctx context.Context, loc *location.Location, date time.Time) (*Day, error) {
	q, err := s.Query(loc)
	if err != nil {
		return nil, err
	}

	data, err := s.fetchDay(ctx, date, q)
	if err != nil {
		return nil, err
	}

	zone, err := loadZone(data.Meta.Timezone, date.Location())
	if err != nil {
		return nil, err
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, zone)

	sched, err := prayer.ParseTimings(data.Timings, day, zone, prayer.DefaultPrayerNames)
	if err != nil {
		return nil, err
	}
	display, err := prayer.ParseTimings(data.Timings, day, zone, s.prayers)
	if err != nil {
		return nil, err
	}

	return &Day{
		Location: *loc,
		Date:     day,
		Zone:     zone,
		Info:     data.Date,
		Meta:     data.Meta,
		Schedule: sched,
		Display:  display,
	}, nil
}

// Today returns the schedule for the day now falls on at the location. When
// the location's zone is on a different calendar day than now's zone, the
// schedule for the location's day is fetched instead.
func (s *Service) Today(ctx context.Context, loc *location.Location, now time.Time) (*Day, error) {
	day, err := s.Day(ctx, loc, now)
	if err != nil {
		return nil, err
	}
	local := now.In(day.Zone)
	if sameDay(local, day.Date) {
		return day, nil
	}
	return s.Day(ctx, loc, local)
}

func (s *Service) fetchDay(ctx context.Context, date time.Time, q api.Query) (*api.Data, error) {
	if s.cache != nil {
		if entry := s.cache.LoadDay(date, q); entry != nil {
			return &entry.Data, nil
		}
	}

	resp, err := s.provider.FetchDay(ctx, date, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prayer times for %s: %w", date.Format("2006-01-02"), err)
	}

	if s.cache != nil {
		if err := s.cache.SaveDay(date, q, resp.Data); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache prayer times")
		}
	}
	return &resp.Data, nil
}

// Upcoming is the resolver's answer plus the countdown target, which may lie
// in tomorrow's schedule.
type Upcoming struct {
	Day        *Day
	Now        time.Time
	Resolution prayer.Resolution
	// Next is the countdown target. Nil only when today is exhausted and
	// tomorrow's schedule could not be fetched.
	Next     *prayer.Prayer
	Tomorrow bool
}

// Next resolves the current and next prayer at now. When nothing remains
// today the following day is fetched and its first prayer becomes the target.
// A failure to fetch tomorrow is logged, not returned.
func (s *Service) Next(ctx context.Context, loc *location.Location, now time.Time) (*Upcoming, error) {
	day, err := s.Today(ctx, loc, now)
	if err != nil {
		return nil, err
	}
	now = now.In(day.Zone)

	res, err := prayer.Resolve(day.Schedule, now)
	if err != nil {
		return nil, err
	}

	up := &Upcoming{Day: day, Now: now, Resolution: res, Next: res.Next}
	if !res.NeedsNextDay {
		return up, nil
	}

	tomorrow, err := s.Day(ctx, loc, day.Date.AddDate(0, 0, 1))
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to fetch tomorrow's prayer times")
		return up, nil
	}
	if first := firstPrayer(tomorrow.Schedule); first != nil {
		up.Next = first
		up.Tomorrow = true
	}
	return up, nil
}

// firstPrayer returns the earliest mandatory prayer in sched.
func firstPrayer(sched []prayer.Prayer) *prayer.Prayer {
	var first *prayer.Prayer
	for i := range sched {
		p := sched[i]
		if !prayer.IsMandatory(p.Name) {
			continue
		}
		if first == nil || p.Time.Before(first.Time) {
			first = &p
		}
	}
	return first
}

// Ramzan is the Sehri/Iftar calendar for one Hijri year.
type Ramzan struct {
	Location  location.Location
	HijriYear int
	Zone      *time.Location
	Days      []prayer.RamzanDay
}

// Ramzan builds the calendar for Hijri month 9 of hijriYear. A zero year
// selects the current or upcoming Ramzan, using today's Hijri date at now.
func (s *Service) Ramzan(ctx context.Context, loc *location.Location, now time.Time, hijriYear int) (*Ramzan, error) {
	q, err := s.Query(loc)
	if err != nil {
		return nil, err
	}

	if hijriYear == 0 {
		today, err := s.Today(ctx, loc, now)
		if err != nil {
			return nil, err
		}
		hijriYear = prayer.RamzanYear(today.Info.Hijri)
		if hijriYear == 0 {
			return nil, ErrNoHijriDate
		}
	}

	days, err := s.fetchRamzan(ctx, hijriYear, q)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no Ramzan days returned for %d AH: %w", hijriYear, api.ErrMalformedResponse)
	}

	zone, err := loadZone(days[0].Meta.Timezone, now.Location())
	if err != nil {
		return nil, err
	}
	rows, err := prayer.BuildRamzan(days, zone)
	if err != nil {
		return nil, err
	}

	return &Ramzan{Location: *loc, HijriYear: hijriYear, Zone: zone, Days: rows}, nil
}

func (s *Service) fetchRamzan(ctx context.Context, hijriYear int, q api.Query) ([]api.Data, error) {
	if s.cache != nil {
		if entry := s.cache.LoadHijriMonth(hijriYear, prayer.RamadanMonth, q); entry != nil {
			return entry.Days, nil
		}
	}

	resp, err := s.provider.FetchHijriCalendar(ctx, hijriYear, prayer.RamadanMonth, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Ramzan calendar for %d AH: %w", hijriYear, err)
	}

	if s.cache != nil && len(resp.Data) > 0 {
		if err := s.cache.SaveHijriMonth(hijriYear, prayer.RamadanMonth, q, resp.Data); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache Ramzan calendar")
		}
	}
	return resp.Data, nil
}

// loadZone resolves an IANA zone name, falling back when the API sent none.
func loadZone(name string, fallback *time.Location) (*time.Location, error) {
	if name == "" {
		return fallback, nil
	}
	zone, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return zone, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

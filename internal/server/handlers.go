package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/geo"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/smokyabdulrahman/namaz/internal/pricing"
	"github.com/smokyabdulrahman/namaz/internal/zakaat"
)

const (
	maxBodyBytes       = 1 << 16
	defaultSearchLimit = 5
	maxSearchLimit     = 10
)

type locationView struct {
	location.Location
	Label      string `json:"label"`
	Coords     string `json:"coords,omitempty"`
	MosquesURL string `json:"mosques_url,omitempty"`
}

func viewLocation(l location.Location) locationView {
	v := locationView{Location: l, Label: l.Label(), Coords: l.Coords()}
	if l.HasCoordinates() {
		v.MosquesURL = geo.NearbyMosquesURL(*l.Lat, *l.Lon)
	}
	return v
}

type timingView struct {
	Name    string `json:"name"`
	Time    string `json:"time"`
	Current bool   `json:"current,omitempty"`
	Next    bool   `json:"next,omitempty"`
}

type nextView struct {
	Prayer    string    `json:"prayer"`
	Time      string    `json:"time"`
	At        time.Time `json:"at"`
	Remaining string    `json:"remaining"`
	Countdown string    `json:"countdown"`
	Tomorrow  bool      `json:"tomorrow"`
}

type todayResponse struct {
	Location locationView `json:"location"`
	Date     dateView     `json:"date"`
	Timezone string       `json:"timezone"`
	Timings  []timingView `json:"timings"`
	Current  string       `json:"current,omitempty"`
	Next     *nextView    `json:"next"`
}

type dateView struct {
	Gregorian string `json:"gregorian"`
	Weekday   string `json:"weekday"`
	Hijri     string `json:"hijri,omitempty"`
}

func (s *Server) requireLocation() (*location.Location, error) {
	if s.Store == nil {
		return nil, location.ErrNoLocation
	}
	return s.Store.Require()
}

func (s *Server) nextView(p *prayer.Prayer, now time.Time, tomorrow bool) *nextView {
	if p == nil {
		return nil
	}
	d := prayer.TimeRemaining(*p, now)
	return &nextView{
		Prayer:    p.Name,
		Time:      p.Time.Format(s.TimeFormat),
		At:        p.Time,
		Remaining: prayer.FormatRemaining(d),
		Countdown: prayer.FormatCountdown(d),
		Tomorrow:  tomorrow,
	}
}

func (s *Server) today(w http.ResponseWriter, r *http.Request) {
	loc, err := s.requireLocation()
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	up, err := s.Schedules.Next(r.Context(), loc, s.Now())
	if err != nil {
		writeError(w, s.Log, err)
		return
	}
	day := up.Day

	resp := todayResponse{
		Location: viewLocation(day.Location),
		Date: dateView{
			Gregorian: day.Date.Format("02 Jan 2006"),
			Weekday:   day.Date.Weekday().String(),
			Hijri:     day.Info.Hijri.Format(),
		},
		Timezone: day.Zone.String(),
		Next:     s.nextView(up.Next, up.Now, up.Tomorrow),
	}
	if c := up.Resolution.Current; c != nil {
		resp.Current = c.Name
	}
	for _, p := range day.Display {
		resp.Timings = append(resp.Timings, timingView{
			Name:    p.Name,
			Time:    p.Time.Format(s.TimeFormat),
			Current: p.Name == resp.Current,
			Next:    up.Next != nil && !up.Tomorrow && p.Name == up.Next.Name,
		})
	}

	writeJSON(w, s.Log, http.StatusOK, resp)
}

type nextResponse struct {
	Location     string    `json:"location"`
	Current      string    `json:"current,omitempty"`
	Next         *nextView `json:"next"`
	NeedsNextDay bool      `json:"needs_next_day"`
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	loc, err := s.requireLocation()
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	up, err := s.Schedules.Next(r.Context(), loc, s.Now())
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	resp := nextResponse{
		Location:     up.Day.Location.Label(),
		Next:         s.nextView(up.Next, up.Now, up.Tomorrow),
		NeedsNextDay: up.Resolution.NeedsNextDay,
	}
	if c := up.Resolution.Current; c != nil {
		resp.Current = c.Name
	}
	writeJSON(w, s.Log, http.StatusOK, resp)
}

type ramzanDayView struct {
	Date         string `json:"date"`
	Weekday      string `json:"weekday"`
	Hijri        string `json:"hijri"`
	HijriDay     int    `json:"hijri_day"`
	Sehri        string `json:"sehri"`
	Iftar        string `json:"iftar"`
	FastDuration string `json:"fast_duration"`
	Today        bool   `json:"today,omitempty"`
}

type ramzanResponse struct {
	Location  locationView    `json:"location"`
	HijriYear int             `json:"hijri_year"`
	Timezone  string          `json:"timezone"`
	Days      []ramzanDayView `json:"days"`
}

func (s *Server) ramzan(w http.ResponseWriter, r *http.Request) {
	loc, err := s.requireLocation()
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	year := 0
	if v := r.URL.Query().Get("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil || year < 1 {
			writeError(w, s.Log, fmt.Errorf("%w: year must be a positive Hijri year", errBadRequest))
			return
		}
	}

	now := s.Now()
	cal, err := s.Schedules.Ramzan(r.Context(), loc, now, year)
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	today := now.In(cal.Zone).Format("2006-01-02")
	resp := ramzanResponse{
		Location:  viewLocation(cal.Location),
		HijriYear: cal.HijriYear,
		Timezone:  cal.Zone.String(),
	}
	for _, d := range cal.Days {
		date := d.Date.Format("2006-01-02")
		resp.Days = append(resp.Days, ramzanDayView{
			Date:         date,
			Weekday:      d.Weekday,
			Hijri:        d.Hijri,
			HijriDay:     d.HijriDay,
			Sehri:        d.Sehri.Format(s.TimeFormat),
			Iftar:        d.Iftar.Format(s.TimeFormat),
			FastDuration: prayer.FormatRemaining(d.FastDuration()),
			Today:        date == today,
		})
	}
	writeJSON(w, s.Log, http.StatusOK, resp)
}

// currentPrices returns the committed snapshot, loading one if the
// refresher has not finished its first load yet.
func (s *Server) currentPrices(r *http.Request) pricing.Snapshot {
	if snap, ok := s.Prices.Snapshot(); ok {
		return snap
	}
	return s.Prices.Refresh(r.Context())
}

func (s *Server) currency(raw string) (zakaat.Currency, error) {
	if raw == "" {
		return s.Currency, nil
	}
	return zakaat.ParseCurrency(raw)
}

type pricesResponse struct {
	Snapshot pricing.Snapshot `json:"snapshot"`
	Pricing  zakaat.Pricing   `json:"pricing"`
	Fallback bool             `json:"fallback"`
	Notice   string           `json:"notice,omitempty"`
}

func (s *Server) prices(w http.ResponseWriter, r *http.Request) {
	cur, err := s.currency(r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	snap := s.currentPrices(r)
	resolved := snap.Resolve(s.Calculator.Profile)
	p, err := zakaat.DerivePricing(resolved, cur)
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	resp := pricesResponse{Snapshot: snap, Pricing: p, Fallback: resolved.Fallback}
	if resolved.Fallback {
		resp.Notice = pricing.FallbackNotice
	}
	writeJSON(w, s.Log, http.StatusOK, resp)
}

type zakaatRequest struct {
	Currency string `json:"currency"`
	zakaat.WealthDeclaration
}

type zakaatResponse struct {
	*zakaat.Result
	UpdatedAt string `json:"updated_at,omitempty"`
	Notice    string `json:"notice,omitempty"`
}

func (s *Server) zakaat(w http.ResponseWriter, r *http.Request) {
	var req zakaatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, s.Log, err)
		return
	}
	cur, err := s.currency(req.Currency)
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	snap := s.currentPrices(r)
	res, err := s.Calculator.Calculate(req.WealthDeclaration, snap.Resolve(s.Calculator.Profile), cur)
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	resp := zakaatResponse{Result: res, UpdatedAt: snap.UpdatedAt}
	if res.Fallback {
		resp.Notice = pricing.FallbackNotice
	}
	writeJSON(w, s.Log, http.StatusOK, resp)
}

type locationResponse struct {
	Location *locationView `json:"location"`
}

func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	var resp locationResponse
	if s.Store != nil {
		if loc := s.Store.Get(); loc != nil {
			v := viewLocation(*loc)
			resp.Location = &v
		}
	}
	writeJSON(w, s.Log, http.StatusOK, resp)
}

func (s *Server) putLocation(w http.ResponseWriter, r *http.Request) {
	var loc location.Location
	if err := decodeBody(w, r, &loc); err != nil {
		writeError(w, s.Log, err)
		return
	}
	if s.Store == nil {
		writeError(w, s.Log, fmt.Errorf("location store not configured"))
		return
	}
	if err := s.Store.Set(r.Context(), loc); err != nil {
		writeError(w, s.Log, err)
		return
	}
	v := viewLocation(loc)
	writeJSON(w, s.Log, http.StatusOK, locationResponse{Location: &v})
}

func (s *Server) deleteLocation(w http.ResponseWriter, r *http.Request) {
	if s.Store != nil {
		if err := s.Store.Clear(r.Context()); err != nil {
			writeError(w, s.Log, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) geocodeSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) > 200 {
		writeError(w, s.Log, fmt.Errorf("%w: query too long (max 200 characters)", errBadRequest))
		return
	}

	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxSearchLimit {
			limit = n
		}
	}

	places, err := s.Geocoder.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	results := make([]locationView, 0, len(places))
	for _, p := range places {
		results = append(results, viewLocation(location.FromPlace(p)))
	}
	writeJSON(w, s.Log, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) geocodeReverse(w http.ResponseWriter, r *http.Request) {
	lat, err := floatParam(r, "lat")
	if err != nil {
		writeError(w, s.Log, err)
		return
	}
	lon, err := floatParam(r, "lon")
	if err != nil {
		writeError(w, s.Log, err)
		return
	}

	p, err := s.Geocoder.Reverse(r.Context(), lat, lon)
	if err != nil {
		writeError(w, s.Log, err)
		return
	}
	v := viewLocation(location.FromPlace(*p))
	writeJSON(w, s.Log, http.StatusOK, locationResponse{Location: &v})
}

func (s *Server) mosques(w http.ResponseWriter, r *http.Request) {
	loc, err := s.requireLocation()
	if err != nil {
		writeError(w, s.Log, err)
		return
	}
	if !loc.HasCoordinates() {
		writeError(w, s.Log, errNoCoordinates)
		return
	}
	writeJSON(w, s.Log, http.StatusOK, map[string]string{
		"location": loc.Label(),
		"url":      geo.NearbyMosquesURL(*loc.Lat, *loc.Lon),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return v, nil
}

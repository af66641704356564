package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/namaz/internal/api"
	"github.com/smokyabdulrahman/namaz/internal/geo"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/metrics"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/smokyabdulrahman/namaz/internal/pricing"
	"github.com/smokyabdulrahman/namaz/internal/schedule"
	"github.com/smokyabdulrahman/namaz/internal/zakaat"
)

var clock = time.Date(2026, 3, 5, 13, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 5, h, m, 0, 0, time.UTC)
}

type fakeSchedules struct {
	err       error
	ramzanErr error
	gotYear   int
}

func (f *fakeSchedules) day(loc *location.Location) *schedule.Day {
	sched := []prayer.Prayer{
		{Name: "Fajr", Time: at(5, 0)},
		{Name: "Sunrise", Time: at(6, 30)},
		{Name: "Dhuhr", Time: at(12, 30)},
		{Name: "Asr", Time: at(16, 0)},
		{Name: "Maghrib", Time: at(18, 40)},
		{Name: "Isha", Time: at(20, 0)},
	}
	return &schedule.Day{
		Location: *loc,
		Date:     at(0, 0),
		Zone:     time.UTC,
		Info: api.DateInfo{Hijri: api.HijriDate{
			Day: "16", Month: api.HijriMonth{Number: 9, En: "Ramaḍān"}, Year: "1447",
		}},
		Schedule: sched,
		Display:  sched,
	}
}

func (f *fakeSchedules) Next(_ context.Context, loc *location.Location, now time.Time) (*schedule.Upcoming, error) {
	if f.err != nil {
		return nil, f.err
	}
	day := f.day(loc)
	res, err := prayer.Resolve(day.Schedule, now)
	if err != nil {
		return nil, err
	}
	return &schedule.Upcoming{Day: day, Now: now, Resolution: res, Next: res.Next}, nil
}

func (f *fakeSchedules) Ramzan(_ context.Context, loc *location.Location, _ time.Time, year int) (*schedule.Ramzan, error) {
	f.gotYear = year
	if f.ramzanErr != nil {
		return nil, f.ramzanErr
	}
	if year == 0 {
		year = 1447
	}
	var days []prayer.RamzanDay
	for i := 0; i < 3; i++ {
		d := time.Date(2026, 3, 4+i, 0, 0, 0, 0, time.UTC)
		days = append(days, prayer.RamzanDay{
			Date:     d,
			HijriDay: 15 + i,
			Weekday:  d.Weekday().String(),
			Sehri:    d.Add(4*time.Hour + 50*time.Minute),
			Iftar:    d.Add(18*time.Hour + 40*time.Minute),
		})
	}
	return &schedule.Ramzan{Location: *loc, HijriYear: year, Zone: time.UTC, Days: days}, nil
}

type fakePrices struct {
	snap      pricing.Snapshot
	loaded    bool
	refreshes int
}

func (f *fakePrices) Snapshot() (pricing.Snapshot, bool) { return f.snap, f.loaded }

func (f *fakePrices) Refresh(context.Context) pricing.Snapshot {
	f.refreshes++
	f.loaded = true
	return f.snap
}

type fakeGeocoder struct {
	places []geo.Place
	err    error
}

func (f *fakeGeocoder) Search(_ context.Context, q string, _ int) ([]geo.Place, error) {
	if strings.TrimSpace(q) == "" {
		return nil, geo.ErrEmptyQuery
	}
	return f.places, f.err
}

func (f *fakeGeocoder) Reverse(_ context.Context, lat, lon float64) (*geo.Place, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &geo.Place{Latitude: lat, Longitude: lon, City: "Hyderabad", Country: "India"}, nil
}

type testEnv struct {
	srv       *Server
	handler   http.Handler
	store     *location.Store
	schedules *fakeSchedules
	prices    *fakePrices
	geocoder  *fakeGeocoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := location.NewStore(location.NewMemoryBackend(), zerolog.Nop())
	env := &testEnv{
		store:     store,
		schedules: &fakeSchedules{},
		prices: &fakePrices{loaded: true, snap: pricing.Snapshot{
			GoldPerOunce:   2000,
			SilverPerOunce: 25,
			Rates:          map[zakaat.Currency]float64{zakaat.INR: 83.5, zakaat.EUR: 0.92},
			UpdatedAt:      "Mar 5, 2026 12:59 PM",
		}},
		geocoder: &fakeGeocoder{},
	}
	env.srv = New(Deps{
		Schedules: env.schedules,
		Store:     store,
		Prices:    env.prices,
		Geocoder:  env.geocoder,
		Metrics:   metrics.NewMetrics(prometheus.NewRegistry()),
		Log:       zerolog.Nop(),
		Now:       func() time.Time { return clock },
	})
	env.handler = env.srv.Routes()
	return env
}

func (e *testEnv) selectLocation(t *testing.T) {
	t.Helper()
	lat, lon := 17.385, 78.4867
	require.NoError(t, e.store.Set(context.Background(), location.Location{City: "Hyderabad", Country: "India", Lat: &lat, Lon: &lon}))
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "namaz_http_requests_total")
}

func TestToday_NoLocation(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/today", "/api/next", "/api/ramzan", "/api/mosques"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, path)
		assert.Equal(t, SelectLocationMessage, decode[errorResponse](t, rec).Error, path)
	}
}

func TestToday(t *testing.T) {
	env := newTestEnv(t)
	env.selectLocation(t)

	rec := env.do(t, http.MethodGet, "/api/today", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[todayResponse](t, rec)
	assert.Equal(t, "Hyderabad", resp.Location.Label)
	assert.Equal(t, "17.385, 78.487", resp.Location.Coords)
	assert.Equal(t, "https://www.google.com/maps/search/mosques/@17.385000,78.486700,15z", resp.Location.MosquesURL)
	assert.Equal(t, "16 Ramaḍān 1447 AH", resp.Date.Hijri)
	assert.Equal(t, "Thursday", resp.Date.Weekday)
	assert.Equal(t, "UTC", resp.Timezone)
	assert.Equal(t, "Dhuhr", resp.Current)
	require.NotNil(t, resp.Next)
	assert.Equal(t, "Asr", resp.Next.Prayer)
	assert.Equal(t, "16:00", resp.Next.Time)
	assert.Equal(t, "3h 0m", resp.Next.Remaining)
	assert.Equal(t, "03:00:00", resp.Next.Countdown)
	require.Len(t, resp.Timings, 6)
	assert.True(t, resp.Timings[2].Current)
	assert.True(t, resp.Timings[3].Next)
}

func TestNext(t *testing.T) {
	env := newTestEnv(t)
	env.selectLocation(t)

	rec := env.do(t, http.MethodGet, "/api/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[nextResponse](t, rec)
	assert.Equal(t, "Dhuhr", resp.Current)
	assert.Equal(t, "Asr", resp.Next.Prayer)
	assert.False(t, resp.NeedsNextDay)
}

func TestToday_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"api status", &api.Error{StatusCode: 500, Status: "500 Internal Server Error"}, http.StatusBadGateway},
		{"malformed", api.ErrMalformedResponse, http.StatusBadGateway},
		{"missing data", &prayer.MissingDataError{Missing: []string{"Isha"}}, http.StatusBadGateway},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.selectLocation(t)
			env.schedules.err = tt.err

			rec := env.do(t, http.MethodGet, "/api/today", nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRamzan(t *testing.T) {
	env := newTestEnv(t)
	env.selectLocation(t)

	rec := env.do(t, http.MethodGet, "/api/ramzan?year=1448", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1448, env.schedules.gotYear)

	resp := decode[ramzanResponse](t, rec)
	assert.Equal(t, 1448, resp.HijriYear)
	require.Len(t, resp.Days, 3)
	assert.Equal(t, "04:50", resp.Days[0].Sehri)
	assert.Equal(t, "18:40", resp.Days[0].Iftar)
	assert.Equal(t, "13h 50m", resp.Days[0].FastDuration)
	assert.False(t, resp.Days[0].Today)
	assert.True(t, resp.Days[1].Today)
}

func TestRamzan_BadYear(t *testing.T) {
	env := newTestEnv(t)
	env.selectLocation(t)

	rec := env.do(t, http.MethodGet, "/api/ramzan?year=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrices(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/prices?currency=usd", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[pricesResponse](t, rec)
	assert.False(t, resp.Fallback)
	assert.Empty(t, resp.Notice)
	assert.Equal(t, zakaat.USD, resp.Pricing.Currency)
	assert.Equal(t, "1312.5", resp.Pricing.NisabThreshold.StringFixed(1))

	rec = env.do(t, http.MethodGet, "/api/prices?currency=GBP", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrices_LoadsWhenEmptyAndFlagsFallback(t *testing.T) {
	env := newTestEnv(t)
	env.prices.loaded = false
	env.prices.snap = pricing.Snapshot{Err: "gold: timeout"}

	rec := env.do(t, http.MethodGet, "/api/prices", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, env.prices.refreshes)

	resp := decode[pricesResponse](t, rec)
	assert.True(t, resp.Fallback)
	assert.Equal(t, pricing.FallbackNotice, resp.Notice)
	assert.Equal(t, zakaat.INR, resp.Pricing.Currency)
	assert.Equal(t, "109593.75", resp.Pricing.NisabThreshold.StringFixed(2))
}

func TestZakaat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/zakaat", map[string]any{"currency": "INR", "cash": 5000000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		IsEligible   bool   `json:"is_eligible"`
		ZakaatAmount string `json:"zakaat_amount"`
		TotalWealth  string `json:"total_wealth"`
		UpdatedAt    string `json:"updated_at"`
		Fallback     bool   `json:"fallback"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsEligible)
	assert.Equal(t, "125000.00", resp.ZakaatAmount)
	assert.Equal(t, "5000000.00", resp.TotalWealth)
	assert.Equal(t, "Mar 5, 2026 12:59 PM", resp.UpdatedAt)
	assert.False(t, resp.Fallback)
}

func TestZakaat_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/zakaat", `{"cash": "lots"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/zakaat", `{"cash": 1, "bonds": 2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/zakaat", `{"currency": "JPY", "cash": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLocationLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/location", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"location":null}`, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/location", `{"city":"Cairo","country":"Egypt"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Cairo", env.store.Get().City)

	rec = env.do(t, http.MethodGet, "/api/location", nil)
	resp := decode[locationResponse](t, rec)
	require.NotNil(t, resp.Location)
	assert.Equal(t, "Cairo", resp.Location.Label)
	assert.Empty(t, resp.Location.Coords)

	rec = env.do(t, http.MethodGet, "/api/mosques", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/location", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, env.store.Get())
}

func TestPutLocation_Invalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/location", `{"lat": 95, "lon": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, env.store.Get())
}

func TestMosques(t *testing.T) {
	env := newTestEnv(t)
	env.selectLocation(t)

	rec := env.do(t, http.MethodGet, "/api/mosques", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"location":"Hyderabad","url":"https://www.google.com/maps/search/mosques/@17.385000,78.486700,15z"}`, rec.Body.String())
}

func TestGeocode(t *testing.T) {
	env := newTestEnv(t)
	env.geocoder.places = []geo.Place{{Latitude: 30.04, Longitude: 31.24, City: "Cairo", Country: "Egypt"}}

	rec := env.do(t, http.MethodGet, "/api/geocode/search?q=cairo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"Cairo"`)

	rec = env.do(t, http.MethodGet, "/api/geocode/search?q=", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/geocode/reverse?lat=17.4&lon=78.5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"city":"Hyderabad"`)

	rec = env.do(t, http.MethodGet, "/api/geocode/reverse?lat=north", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeocode_UpstreamErrors(t *testing.T) {
	env := newTestEnv(t)

	env.geocoder.err = geo.ErrNotFound
	rec := env.do(t, http.MethodGet, "/api/geocode/reverse?lat=0&lon=-160", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.geocoder.err = geo.ErrUpstream
	rec = env.do(t, http.MethodGet, "/api/geocode/reverse?lat=1&lon=1", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/today", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowList(t *testing.T) {
	h := CORS([]string{"https://namaz.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://namaz.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://namaz.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

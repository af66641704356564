// Package server exposes namaz over HTTP as a JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/namaz/internal/geo"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/metrics"
	"github.com/smokyabdulrahman/namaz/internal/pricing"
	"github.com/smokyabdulrahman/namaz/internal/schedule"
	"github.com/smokyabdulrahman/namaz/internal/zakaat"
)

const (
	defaultRequestTimeout = 30 * time.Second
	shutdownTimeout       = 30 * time.Second
)

// Schedules answers prayer-time questions. *schedule.Service implements it.
type Schedules interface {
	Next(ctx context.Context, loc *location.Location, now time.Time) (*schedule.Upcoming, error)
	Ramzan(ctx context.Context, loc *location.Location, now time.Time, hijriYear int) (*schedule.Ramzan, error)
}

// Prices provides the latest price snapshot. *pricing.Refresher implements it.
type Prices interface {
	Snapshot() (pricing.Snapshot, bool)
	Refresh(ctx context.Context) pricing.Snapshot
}

// Geocoder resolves place names and coordinates. *geo.Geocoder implements it.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]geo.Place, error)
	Reverse(ctx context.Context, lat, lon float64) (*geo.Place, error)
}

// Deps are the components the server is built from. Metrics may be nil.
type Deps struct {
	Schedules  Schedules
	Store      *location.Store
	Prices     Prices
	Geocoder   Geocoder
	Calculator *zakaat.Calculator
	Metrics    *metrics.Metrics
	Log        zerolog.Logger

	// Currency is used when a request names none.
	Currency zakaat.Currency
	// TimeFormat is the Go layout for prayer times in responses.
	TimeFormat string
	// AllowedOrigins for CORS; empty allows any.
	AllowedOrigins []string
	// RequestTimeout bounds API handlers.
	RequestTimeout time.Duration
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Server is the HTTP front end.
type Server struct {
	Deps
}

// New fills defaults into deps and returns a Server.
func New(deps Deps) *Server {
	if deps.Calculator == nil {
		deps.Calculator = zakaat.NewCalculator()
	}
	if deps.Currency == "" {
		deps.Currency = zakaat.DefaultCurrency
	}
	if deps.TimeFormat == "" {
		deps.TimeFormat = "15:04"
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = defaultRequestTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{Deps: deps}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.Log))
	r.Use(middleware.Recoverer)
	r.Use(s.Metrics.Middleware)

	r.Get("/healthz", s.health)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(CORS(s.AllowedOrigins))
		r.Use(Timeout(s.RequestTimeout))

		r.Get("/today", s.today)
		r.Get("/next", s.next)
		r.Get("/ramzan", s.ramzan)
		r.Get("/prices", s.prices)
		r.Post("/zakaat", s.zakaat)

		r.Get("/location", s.getLocation)
		r.Put("/location", s.putLocation)
		r.Delete("/location", s.deleteLocation)

		r.Get("/geocode/search", s.geocodeSearch)
		r.Get("/geocode/reverse", s.geocodeReverse)
		r.Get("/mosques", s.mosques)
	})

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info().Str("address", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.Log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.Log.Info().Msg("server stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Log, http.StatusOK, map[string]string{"status": "ok"})
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/smokyabdulrahman/namaz/internal/api"
	"github.com/smokyabdulrahman/namaz/internal/cache"
	"github.com/smokyabdulrahman/namaz/internal/config"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/logging"
	"github.com/smokyabdulrahman/namaz/internal/metrics"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/smokyabdulrahman/namaz/internal/schedule"
	"github.com/smokyabdulrahman/namaz/internal/zakaat"
	"github.com/spf13/cobra"
)

const upstreamTimeout = 10 * time.Second

// apiBaseURL overrides the Al Adhan base URL. Tests point it at httptest.
var apiBaseURL string

// noLocationHint is shown when a command needs a location and none is saved.
const noLocationHint = "Select a location to view today's namaz timings.\n" +
	"Run 'namaz location detect', 'namaz location search <place>' or 'namaz location set'."

// app bundles what a single command invocation needs.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	out     io.Writer
	cache   *cache.Cache
	metrics *metrics.Metrics

	store *location.Store
	close func()
}

// newApp builds the per-invocation wiring from flags and config.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg := effectiveConfig(cmd)

	log, err := logging.New(logging.Options{Level: FlagLogLevel, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, out: cmd.OutOrStdout(), close: func() {}}

	c, err := cache.New(cfg.CacheDir)
	if err != nil {
		log.Warn().Err(err).Msg("cache disabled")
	} else {
		a.cache = c
	}
	return a, nil
}

// httpClient returns a client for upstream, counted when metrics are enabled.
func (a *app) httpClient(upstream string) *http.Client {
	return a.metrics.HTTPClient(upstream, upstreamTimeout)
}

func (a *app) prayerNames() []string {
	return a.cfg.PrayerNames(prayer.DefaultPrayerNames)
}

func (a *app) currency() (zakaat.Currency, error) {
	return zakaat.ParseCurrency(a.cfg.Currency)
}

func (a *app) timeFormat() string {
	return goTimeFormat(a.cfg)
}

// schedules builds the prayer time service.
func (a *app) schedules(prayers []string) *schedule.Service {
	client := api.NewClient(api.WithHTTPClient(a.httpClient("aladhan")))
	if apiBaseURL != "" {
		client.BaseURL = apiBaseURL
	}
	return schedule.New(
		client,
		schedule.WithCache(a.cache),
		schedule.WithLogger(a.log),
		schedule.WithCalculation(a.cfg.MethodOrDefault(-1), a.cfg.SchoolOrDefault(-1)),
		schedule.WithPrayers(prayers),
	)
}

// openStore opens the location store on the configured backend and loads the
// saved selection.
func (a *app) openStore(ctx context.Context) (*location.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	var backend location.Backend
	switch a.cfg.StateBackend {
	case config.BackendRedis:
		env, err := config.EnvFromOS()
		if err != nil {
			return nil, err
		}
		if env.RedisURL == "" {
			return nil, errors.New("state_backend is redis but NAMAZ_REDIS_URL is not set")
		}
		client, err := location.DialRedis(ctx, env.RedisURL)
		if err != nil {
			return nil, err
		}
		a.close = func() { client.Close() }
		backend = location.NewRedisBackend(client)
	default:
		path, err := config.StatePath()
		if err != nil {
			return nil, err
		}
		backend = location.NewFileBackend(path)
	}

	a.store = location.NewStore(backend, a.log)
	a.store.Load(ctx)
	return a.store, nil
}

// location returns the location for this invocation: the --city/--country or
// --latitude/--longitude flags when given, otherwise the saved selection.
func (a *app) location(ctx context.Context, cmd *cobra.Command) (*location.Location, error) {
	if loc, ok, err := flagLocation(cmd); ok || err != nil {
		return loc, err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := store.Require()
	if err != nil {
		return nil, fmt.Errorf("%w\n%s", err, noLocationHint)
	}
	return loc, nil
}

// flagLocation builds a location from the global override flags.
func flagLocation(cmd *cobra.Command) (*location.Location, bool, error) {
	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	var loc location.Location
	switch {
	case flagWasSet(flags, root, "latitude") || flagWasSet(flags, root, "longitude"):
		if !flagWasSet(flags, root, "latitude") || !flagWasSet(flags, root, "longitude") {
			return nil, true, fmt.Errorf("%w: --latitude and --longitude must be used together", location.ErrInvalidLocation)
		}
		lat, lon := FlagLatitude, FlagLongitude
		loc = location.Location{City: FlagCity, Country: FlagCountry, Lat: &lat, Lon: &lon}
	case FlagCity != "":
		if FlagCountry == "" {
			return nil, true, fmt.Errorf("--country is required when using --city")
		}
		loc = location.Location{City: FlagCity, Country: FlagCountry}
	default:
		return nil, false, nil
	}

	if err := loc.Validate(); err != nil {
		return nil, true, err
	}
	return &loc, true, nil
}

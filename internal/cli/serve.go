package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/smokyabdulrahman/namaz/internal/announce"
	"github.com/smokyabdulrahman/namaz/internal/config"
	"github.com/smokyabdulrahman/namaz/internal/geo"
	"github.com/smokyabdulrahman/namaz/internal/logging"
	"github.com/smokyabdulrahman/namaz/internal/metrics"
	"github.com/smokyabdulrahman/namaz/internal/pricing"
	"github.com/smokyabdulrahman/namaz/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagEnvFile  string
	flagListen   string
	flagOrigins  []string
	flagBroker   string
	flagTopic    string
	flagClientID string
	flagQuiet    bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP JSON API",
		Long: "Serve prayer times, the Ramzan calendar, prices and Zakaat over HTTP.\n\n" +
			"Settings are read from the environment (optionally a .env file):\n" +
			"  NAMAZ_LISTEN_ADDR, NAMAZ_LOG_LEVEL, NAMAZ_LOG_FORMAT, NAMAZ_REDIS_URL,\n" +
			"  NAMAZ_PRICE_INTERVAL",
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&flagEnvFile, "env-file", ".env", "Optional file of environment settings")
	cmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (overrides NAMAZ_LISTEN_ADDR)")
	cmd.Flags().StringSliceVar(&flagOrigins, "allowed-origins", nil, "CORS origins allowed to call /api (default any)")
	return cmd
}

func newAnnounceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Publish the prayer countdown to MQTT",
		Long: "Publish the countdown to the next prayer as JSON to namaz/<topic>/next on every tick.\n\n" +
			"Settings are read from the environment (optionally a .env file):\n" +
			"  NAMAZ_MQTT_BROKER, NAMAZ_MQTT_TOPIC, NAMAZ_LOG_LEVEL, NAMAZ_LOG_FORMAT",
		Args: cobra.NoArgs,
		RunE: runAnnounce,
	}
	f := cmd.Flags()
	f.StringVar(&flagEnvFile, "env-file", ".env", "Optional file of environment settings")
	f.StringVar(&flagBroker, "broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (overrides NAMAZ_MQTT_BROKER)")
	f.StringVar(&flagTopic, "topic", "", "Topic name; frames go to namaz/<topic>/next (overrides NAMAZ_MQTT_TOPIC)")
	f.StringVar(&flagClientID, "client-id", "", "MQTT client ID (default namaz-<hostname>)")
	f.DurationVar(&flagInterval, "interval", announce.DefaultInterval, "Publish interval")
	f.StringVar(&flagFormat, "format", "", "Text format for each frame (see 'namaz next --help')")
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "Do not echo the countdown to the terminal")
	return cmd
}

// newServiceApp builds the app for long-running commands: environment
// settings are loaded and logging follows NAMAZ_LOG_LEVEL/NAMAZ_LOG_FORMAT
// unless --log-level was given.
func newServiceApp(cmd *cobra.Command) (*app, *config.Env, error) {
	env, err := config.LoadEnv(flagEnvFile)
	if err != nil {
		return nil, nil, err
	}

	a, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}

	level := env.LogLevel
	if cmd.Root().PersistentFlags().Changed("log-level") {
		level = FlagLogLevel
	}
	log, err := logging.New(logging.Options{Level: level, Format: env.LogFormat, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, err
	}
	a.log = log
	return a, env, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, env, err := newServiceApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	cur, err := a.currency()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewMetrics(reg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	refresher := pricing.NewRefresher(
		pricing.NewFetcher(a.httpClient("prices")),
		pricing.WithInterval(env.PriceInterval),
		pricing.WithLogger(a.log),
		pricing.WithMetrics(a.metrics),
	)

	srv := server.New(server.Deps{
		Schedules:      a.schedules(a.prayerNames()),
		Store:          store,
		Prices:         refresher,
		Geocoder:       geo.NewGeocoder(a.httpClient("nominatim")),
		Metrics:        a.metrics,
		Log:            a.log,
		Currency:       cur,
		TimeFormat:     a.timeFormat(),
		AllowedOrigins: flagOrigins,
	})

	addr := env.ListenAddr
	if flagListen != "" {
		addr = flagListen
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return refresher.Run(gctx)
	})
	g.Go(func() error {
		defer refresher.Stop()
		return srv.ListenAndServe(gctx, addr)
	})
	return g.Wait()
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	a, env, err := newServiceApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	broker := firstSet(flagBroker, env.MQTTBroker)
	if broker == "" {
		return errors.New("no MQTT broker: use --broker or set NAMAZ_MQTT_BROKER")
	}
	topic := firstSet(flagTopic, env.MQTTTopic)
	if strings.ContainsAny(topic, "/+#") {
		return fmt.Errorf("invalid topic %q: must not contain '/', '+' or '#'", topic)
	}
	clientID := flagClientID
	if clientID == "" {
		host, _ := os.Hostname()
		clientID = "namaz-" + firstSet(host, "announce")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := a.location(ctx, cmd)
	if err != nil {
		return err
	}

	client, err := announce.DialMQTT(broker, clientID, a.log)
	if err != nil {
		return err
	}
	sinks := []announce.Sink{announce.NewMQTTSink(client, topic)}
	if !flagQuiet {
		sinks = append(sinks, announce.NewTerminalSink(a.out, true))
	}
	defer closeSinks(a, sinks)

	a.log.Info().Str("topic", announce.Topic(topic)).Str("location", loc.Label()).Msg("announcing countdown")

	ticker := announce.NewTicker(a.schedules(a.prayerNames()), loc, sinks,
		announce.WithInterval(flagInterval),
		announce.WithFormat(flagFormat, a.timeFormat()),
		announce.WithLogger(a.log),
	)
	return runTicker(ctx, ticker)
}

func closeSinks(a *app, sinks []announce.Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			a.log.Warn().Err(err).Str("sink", s.Name()).Msg("failed to close sink")
		}
	}
}

func firstSet(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

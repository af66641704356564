package cli

import (
	"fmt"

	"github.com/smokyabdulrahman/namaz/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Global flags shared across all subcommands.
var (
	FlagCity       string
	FlagCountry    string
	FlagLatitude   float64
	FlagLongitude  float64
	FlagMethod     int
	FlagSchool     int
	FlagJSON       bool
	FlagCacheDir   string
	FlagTimeFormat string
	FlagCurrency   string
	FlagLogLevel   string
)

// loadedConfig holds the config loaded during PersistentPreRunE.
var loadedConfig *config.Config

// NewRootCmd creates the root command for the namaz CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "namaz",
		Short: "Prayer times, Ramzan calendar and Zakaat calculator",
		Long: "namaz shows today's prayer times with a live countdown, the Ramzan Sehri/Iftar\n" +
			"calendar and a Zakaat calculator using live gold, silver and currency prices.\n\n" +
			"Prayer times come from the Al Adhan API. Select a location first with\n" +
			"'namaz location set', 'namaz location search' or 'namaz location detect'.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			loadedConfig = cfg
			return nil
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&FlagCity, "city", "", "Use this city instead of the saved location")
	pf.StringVar(&FlagCountry, "country", "", "Country for --city")
	pf.Float64Var(&FlagLatitude, "latitude", 0, "Use these coordinates instead of the saved location")
	pf.Float64Var(&FlagLongitude, "longitude", 0, "Longitude for --latitude")
	pf.IntVar(&FlagMethod, "method", -1, "Override calculation method (0-23)")
	pf.IntVar(&FlagSchool, "school", -1, "Override school (0=Shafi, 1=Hanafi)")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagCacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/namaz/)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.StringVar(&FlagCurrency, "currency", "", "Currency for Zakaat and prices: INR, USD or EUR (overrides config)")
	pf.StringVar(&FlagLogLevel, "log-level", "warn", "Log level for diagnostics on stderr")

	rootCmd.AddCommand(newTodayCmd())
	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newRamzanCmd())
	rootCmd.AddCommand(newZakaatCmd())
	rootCmd.AddCommand(newPricesCmd())
	rootCmd.AddCommand(newLocationCmd())
	rootCmd.AddCommand(newMosquesCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMethodsCmd())
	rootCmd.AddCommand(newAboutCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAnnounceCmd())

	return rootCmd
}

// effectiveConfig returns the merged configuration values,
// applying the priority: CLI flags > config file > defaults.
func effectiveConfig(cmd *cobra.Command) *config.Config {
	var cfg config.Config
	if loadedConfig != nil {
		cfg = *loadedConfig
	}
	defaults := config.Defaults()

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	if flagWasSet(flags, root, "method") {
		m := FlagMethod
		cfg.Method = &m
	} else if cfg.Method == nil {
		cfg.Method = defaults.Method
	}
	if flagWasSet(flags, root, "school") {
		s := FlagSchool
		cfg.School = &s
	} else if cfg.School == nil {
		cfg.School = defaults.School
	}
	if flagWasSet(flags, root, "cache-dir") {
		cfg.CacheDir = FlagCacheDir
	}
	if flagWasSet(flags, root, "time-format") {
		cfg.TimeFormat = FlagTimeFormat
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = defaults.TimeFormat
	}
	if flagWasSet(flags, root, "currency") {
		cfg.Currency = FlagCurrency
	}
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.StateBackend == "" {
		cfg.StateBackend = defaults.StateBackend
	}

	return &cfg
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

// goTimeFormat maps the configured time_format onto a Go layout.
func goTimeFormat(cfg *config.Config) string {
	if cfg.TimeFormat == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/announce"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/spf13/cobra"
)

var (
	flagFormat   string
	flagPrayers  string
	flagWatch    bool
	flagInterval time.Duration
)

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long: "Display the next upcoming prayer time with a countdown, suitable for status bars.\n" +
			"With --watch the countdown updates in place every second until interrupted.\n\n" +
			"Templates see .Name, .ShortName, .Time, .Remaining, .Hours, .Minutes, .Countdown,\n" +
			".Current, .Tomorrow and .Pending (set while tomorrow's times are unavailable).",
		Args: cobra.NoArgs,
		RunE: runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", "", "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, countdown, or a custom Go template (default full, countdown with --watch)")
	cmd.Flags().StringVar(&flagPrayers, "prayers", "", "Comma-separated list of prayers to track (overrides config)")
	cmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Keep running and update the countdown in place")
	cmd.Flags().DurationVar(&flagInterval, "interval", announce.DefaultInterval, "Update interval for --watch")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	// Priority: --prayers flag > config > defaults.
	if cmd.Flags().Changed("prayers") && flagPrayers != "" {
		if err := a.cfg.Set("prayers", flagPrayers); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	loc, err := a.location(ctx, cmd)
	if err != nil {
		return err
	}

	format := flagFormat
	if format == "" {
		format = prayer.LayoutFull
		if flagWatch {
			format = prayer.LayoutCountdown
		}
	}

	svc := a.schedules(a.prayerNames())
	opts := []announce.Option{
		announce.WithFormat(format, a.timeFormat()),
		announce.WithInterval(flagInterval),
		announce.WithLogger(a.log),
	}

	if !flagWatch {
		ticker := announce.NewTicker(svc, loc, nil, opts...)
		frame, err := ticker.Frame(ctx, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprint(a.out, frame.Text)
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := announce.NewTerminalSink(a.out, true)
	defer sink.Close()
	return runTicker(ctx, announce.NewTicker(svc, loc, []announce.Sink{sink}, opts...))
}

// runTicker runs t until ctx is cancelled.
func runTicker(ctx context.Context, t *announce.Ticker) error {
	if err := t.Run(ctx); err != nil {
		return fmt.Errorf("countdown stopped: %w", err)
	}
	return nil
}

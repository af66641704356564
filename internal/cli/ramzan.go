package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/display"
	"github.com/smokyabdulrahman/namaz/internal/schedule"
	"github.com/spf13/cobra"
)

var flagHijriYear int

func newRamzanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ramzan",
		Aliases: []string{"ramadan"},
		Short:   "Show the Ramzan Sehri and Iftar calendar",
		Long: "Display Sehri (end of eating, at Imsak) and Iftar (Maghrib) for every day of\n" +
			"Ramzan at the selected location. Without --year the current or upcoming\nRamzan is shown.",
		Args: cobra.NoArgs,
		RunE: runRamzan,
	}
	cmd.Flags().IntVar(&flagHijriYear, "year", 0, "Hijri year, e.g. 1447 (default: current or upcoming)")
	return cmd
}

func runRamzan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if flagHijriYear < 0 {
		return fmt.Errorf("invalid --year %d", flagHijriYear)
	}

	ctx := cmd.Context()
	loc, err := a.location(ctx, cmd)
	if err != nil {
		return err
	}

	now := time.Now()
	cal, err := a.schedules(nil).Ramzan(ctx, loc, now, flagHijriYear)
	if err != nil {
		return err
	}

	if FlagJSON {
		return writeJSON(a.out, buildRamzanJSON(cal, a.timeFormat()))
	}
	printRamzan(a.out, cal, now, a.timeFormat())
	return nil
}

// ramzanTable lays the calendar out as a table, highlighting the row for the
// day now falls on.
func ramzanTable(cal *schedule.Ramzan, now time.Time, goTimeFmt string) *display.Table {
	t := display.NewTable([]string{"Day", "Date", "Weekday", "Sehri", "Iftar", "Fast"})
	t.SetAlign(0, display.AlignRight)

	today := now.In(cal.Zone).Format("2006-01-02")
	for i, d := range cal.Days {
		t.AddRow([]string{
			strconv.Itoa(d.HijriDay),
			d.Date.Format("02 Jan"),
			d.Weekday[:3],
			d.Sehri.Format(goTimeFmt),
			d.Iftar.Format(goTimeFmt),
			formatFast(d.FastDuration()),
		})
		if d.Date.Format("2006-01-02") == today {
			t.SetHighlightRow(i)
		}
	}
	return t
}

func printRamzan(w io.Writer, cal *schedule.Ramzan, now time.Time, goTimeFmt string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Boldf("Ramzan %d AH", cal.HijriYear))
	fmt.Fprintf(w, "  %s\n", cal.Location.Label())
	fmt.Fprintf(w, "  %s\n", cal.Zone.String())
	fmt.Fprintln(w)
	fmt.Fprint(w, ramzanTable(cal, now, goTimeFmt).Render())
	fmt.Fprintln(w)
}

// formatFast renders a fast's length as "13h 42m".
func formatFast(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}

type ramzanJSON struct {
	Location  string          `json:"location"`
	HijriYear int             `json:"hijri_year"`
	Timezone  string          `json:"timezone"`
	Days      []ramzanJSONDay `json:"days"`
}

type ramzanJSONDay struct {
	Day     int    `json:"day"`
	Date    string `json:"date"`
	Hijri   string `json:"hijri"`
	Weekday string `json:"weekday"`
	Sehri   string `json:"sehri"`
	Iftar   string `json:"iftar"`
	Fast    string `json:"fast"`
}

func buildRamzanJSON(cal *schedule.Ramzan, goTimeFmt string) ramzanJSON {
	out := ramzanJSON{
		Location:  cal.Location.Label(),
		HijriYear: cal.HijriYear,
		Timezone:  cal.Zone.String(),
		Days:      make([]ramzanJSONDay, 0, len(cal.Days)),
	}
	for _, d := range cal.Days {
		out.Days = append(out.Days, ramzanJSONDay{
			Day:     d.HijriDay,
			Date:    d.Date.Format("2006-01-02"),
			Hijri:   d.Hijri,
			Weekday: d.Weekday,
			Sehri:   d.Sehri.Format(goTimeFmt),
			Iftar:   d.Iftar.Format(goTimeFmt),
			Fast:    formatFast(d.FastDuration()),
		})
	}
	return out
}

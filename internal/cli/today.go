package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/api"
	"github.com/smokyabdulrahman/namaz/internal/display"
	"github.com/smokyabdulrahman/namaz/internal/geo"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/smokyabdulrahman/namaz/internal/schedule"
	"github.com/spf13/cobra"
)

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's prayer times (default)",
		Long:  "Display today's schedule for the selected location, marking the current prayer\nand counting down to the next one.",
		Args:  cobra.NoArgs,
		RunE:  runToday,
	}
}

func runToday(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	loc, err := a.location(ctx, cmd)
	if err != nil {
		return err
	}

	up, err := a.schedules(a.prayerNames()).Next(ctx, loc, time.Now())
	if err != nil {
		return err
	}

	if FlagJSON {
		return printTodayJSON(a.out, up, a.timeFormat())
	}
	printTodayRich(a.out, up, a.timeFormat())
	return nil
}

// buildLocationStr builds a "City, Country" string, falling back to the
// coordinates the API answered for.
func buildLocationStr(loc location.Location, meta api.Meta) string {
	if loc.City != "" && loc.Country != "" {
		return loc.City + ", " + loc.Country
	}
	if loc.City != "" || loc.Region != "" || loc.Country != "" {
		return loc.Label()
	}
	return fmt.Sprintf("%.3f, %.3f", meta.Latitude, meta.Longitude)
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(w io.Writer, up *schedule.Upcoming, goTimeFmt string) {
	day := up.Day
	now := up.Now

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Namaz Timings"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", buildLocationStr(day.Location, day.Meta))
	if coords := day.Location.Coords(); coords != "" {
		fmt.Fprintf(w, "  %s\n", display.Gray(coords))
	}
	fmt.Fprintf(w, "  %s\n", day.Zone.String())
	fmt.Fprintf(w, "  %s\n", formatGregorianDate(now, day))
	if hijri := day.Info.Hijri.Format(); hijri != "" {
		fmt.Fprintf(w, "  %s\n", hijri)
	}
	fmt.Fprintln(w)

	maxNameLen := 0
	for _, p := range day.Display {
		if len(p.Name) > maxNameLen {
			maxNameLen = len(p.Name)
		}
	}

	current := up.Resolution.Current
	for _, p := range day.Display {
		line := fmt.Sprintf("  %s  %s", padRight(p.Name, maxNameLen), p.Time.Format(goTimeFmt))

		switch {
		case current != nil && p.Name == current.Name:
			fmt.Fprintln(w, display.Dim(line)+display.Dim("  (now)"))
		case up.Next != nil && !up.Tomorrow && p.Name == up.Next.Name:
			remaining := prayer.FormatRemaining(prayer.TimeRemaining(*up.Next, now))
			fmt.Fprintln(w, display.Accent(line)+display.Accent("  <- next in "+remaining))
		default:
			fmt.Fprintln(w, line)
		}
	}

	if up.Tomorrow && up.Next != nil {
		remaining := prayer.FormatRemaining(prayer.TimeRemaining(*up.Next, now))
		fmt.Fprintf(w, "\n  %s\n", display.Accent(fmt.Sprintf("Next: %s tomorrow at %s (in %s)",
			up.Next.Name, up.Next.Time.Format(goTimeFmt), remaining)))
	} else if up.Next == nil {
		fmt.Fprintf(w, "\n  %s\n", display.Notice("Tomorrow's timings are unavailable."))
	}

	if day.Location.HasCoordinates() {
		fmt.Fprintf(w, "\n  %s %s\n", display.Gray("Find Mosques Nearby:"),
			geo.NearbyMosquesURL(*day.Location.Lat, *day.Location.Lon))
	}
	fmt.Fprintln(w)
}

// formatGregorianDate returns a formatted Gregorian date string.
// Prefers API data; falls back to formatting now.
func formatGregorianDate(now time.Time, day *schedule.Day) string {
	g := day.Info.Gregorian
	if g.Day != "" && g.Month.En != "" && g.Year != "" {
		return g.Day + " " + g.Month.En + " " + g.Year
	}
	return now.Format("02 Jan 2006")
}

// padRight pads a string to the given width with spaces.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// todayJSON is the JSON output structure for the today command.
type todayJSON struct {
	Location todayJSONLocation `json:"location"`
	Date     todayJSONDate     `json:"date"`
	Timings  map[string]string `json:"timings"`
	Current  string            `json:"current"`
	Next     *todayJSONNext    `json:"next"`
}

type todayJSONLocation struct {
	Label      string  `json:"label"`
	City       string  `json:"city,omitempty"`
	Country    string  `json:"country,omitempty"`
	Timezone   string  `json:"timezone"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	MosquesURL string  `json:"mosques_url,omitempty"`
}

type todayJSONDate struct {
	Gregorian string `json:"gregorian"`
	Hijri     string `json:"hijri"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
	Tomorrow  bool   `json:"tomorrow"`
}

func buildTodayJSON(up *schedule.Upcoming, goTimeFmt string) todayJSON {
	day := up.Day
	timings := make(map[string]string, len(day.Display))
	for _, p := range day.Display {
		timings[strings.ToLower(p.Name)] = p.Time.Format(goTimeFmt)
	}

	out := todayJSON{
		Location: todayJSONLocation{
			Label:     day.Location.Label(),
			City:      day.Location.City,
			Country:   day.Location.Country,
			Timezone:  day.Zone.String(),
			Latitude:  day.Meta.Latitude,
			Longitude: day.Meta.Longitude,
		},
		Date: todayJSONDate{
			Gregorian: formatGregorianDate(up.Now, day),
			Hijri:     day.Info.Hijri.Format(),
		},
		Timings: timings,
	}
	if day.Location.HasCoordinates() {
		out.Location.MosquesURL = geo.NearbyMosquesURL(*day.Location.Lat, *day.Location.Lon)
	}

	if c := up.Resolution.Current; c != nil {
		out.Current = strings.ToLower(c.Name)
	}
	if n := up.Next; n != nil {
		out.Next = &todayJSONNext{
			Prayer:    strings.ToLower(n.Name),
			Time:      n.Time.Format(goTimeFmt),
			Remaining: prayer.FormatRemaining(prayer.TimeRemaining(*n, up.Now)),
			Tomorrow:  up.Tomorrow,
		}
	}
	return out
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(w io.Writer, up *schedule.Upcoming, goTimeFmt string) error {
	return writeJSON(w, buildTodayJSON(up, goTimeFmt))
}

// writeJSON prints v indented.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

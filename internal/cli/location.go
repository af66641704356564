package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smokyabdulrahman/namaz/internal/display"
	"github.com/smokyabdulrahman/namaz/internal/geo"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/spf13/cobra"
)

var (
	flagRegion  string
	flagLimit   int
	flagSelect  int
	flagRefresh bool
)

func newLocationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Show or change the selected location",
		Long:  "Prayer times are shown for the selected location. When run without subcommands,\nshows the current selection.",
		Args:  cobra.NoArgs,
		RunE:  runLocationShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the selected location",
		Args:  cobra.NoArgs,
		RunE:  runLocationShow,
	})

	set := &cobra.Command{
		Use:   "set",
		Short: "Select a location by city or coordinates",
		Long: "Select a location using the global --city/--country or --latitude/--longitude flags.\n\n" +
			"Examples:\n  namaz location set --city Hyderabad --country India\n" +
			"  namaz location set --latitude 51.5074 --longitude -0.1278",
		Args: cobra.NoArgs,
		RunE: runLocationSet,
	}
	set.Flags().StringVar(&flagRegion, "region", "", "Region or state, shown when no city is set")
	cmd.AddCommand(set)

	search := &cobra.Command{
		Use:   "search <place>",
		Short: "Search for a place by name",
		Long:  "Search for a place by name. Use --select N to select the Nth result.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLocationSearch,
	}
	search.Flags().IntVar(&flagLimit, "limit", 5, "Maximum number of results")
	search.Flags().IntVar(&flagSelect, "select", 0, "Select the Nth result (1-based)")
	cmd.AddCommand(search)

	cmd.AddCommand(&cobra.Command{
		Use:   "reverse",
		Short: "Select the place at the given coordinates",
		Long:  "Look up the place at --latitude/--longitude and select it.",
		Args:  cobra.NoArgs,
		RunE:  runLocationReverse,
	})

	detect := &cobra.Command{
		Use:   "detect",
		Short: "Detect your location from your IP address",
		Args:  cobra.NoArgs,
		RunE:  runLocationDetect,
	}
	detect.Flags().BoolVar(&flagRefresh, "refresh", false, "Ignore the cached detection result")
	cmd.AddCommand(detect)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the selected location",
		Args:  cobra.NoArgs,
		RunE:  runLocationClear,
	})

	return cmd
}

func newMosquesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mosques",
		Short: "Print a map link to mosques near the selected location",
		Args:  cobra.NoArgs,
		RunE:  runMosques,
	}
}

func runLocationShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	loc := store.Get()

	if FlagJSON {
		return writeJSON(a.out, struct {
			Location *location.Location `json:"location"`
		}{loc})
	}
	if loc == nil {
		fmt.Fprintln(a.out, noLocationHint)
		return nil
	}
	printLocation(a.out, *loc)
	return nil
}

func runLocationSet(cmd *cobra.Command, args []string) error {
	loc, ok, err := flagLocation(cmd)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("nothing to set: use --city and --country, or --latitude and --longitude")
	}
	loc.Region = flagRegion

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return selectLocation(cmd.Context(), a, *loc)
}

func runLocationSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	limit := min(max(flagLimit, 1), 10)
	places, err := geo.NewGeocoder(a.httpClient("nominatim")).Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	if flagSelect != 0 {
		if flagSelect < 1 || flagSelect > len(places) {
			return fmt.Errorf("--select %d out of range: %d result(s)", flagSelect, len(places))
		}
		return selectLocation(cmd.Context(), a, location.FromPlace(places[flagSelect-1]))
	}

	if FlagJSON {
		return writeJSON(a.out, places)
	}
	printPlaces(a.out, places)
	fmt.Fprintf(a.out, "\n  %s\n\n", display.Gray("Run again with --select N to select a result."))
	return nil
}

func runLocationReverse(cmd *cobra.Command, args []string) error {
	root := cmd.Root().PersistentFlags()
	if !root.Changed("latitude") || !root.Changed("longitude") {
		return errors.New("--latitude and --longitude are required")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	place, err := geo.NewGeocoder(a.httpClient("nominatim")).Reverse(cmd.Context(), FlagLatitude, FlagLongitude)
	if err != nil {
		return err
	}
	return selectLocation(cmd.Context(), a, location.FromPlace(*place))
}

func runLocationDetect(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	var place *geo.Place
	if a.cache != nil && !flagRefresh {
		place = a.cache.LoadGeo()
	}
	if place == nil {
		place, err = geo.NewDetector(a.httpClient("ip-api")).Detect(cmd.Context())
		if err != nil {
			return fmt.Errorf("location detection failed: %w", err)
		}
		if a.cache != nil {
			if err := a.cache.SaveGeo(place); err != nil {
				a.log.Warn().Err(err).Msg("failed to cache detected location")
			}
		}
	}
	return selectLocation(cmd.Context(), a, location.FromPlace(*place))
}

func runLocationClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	if err := store.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Location cleared.")
	return nil
}

func runMosques(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	loc, err := a.location(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	if !loc.HasCoordinates() {
		return fmt.Errorf("%s has no coordinates; select it with 'namaz location search' or 'namaz location detect'", loc.Label())
	}

	url := geo.NearbyMosquesURL(*loc.Lat, *loc.Lon)
	if FlagJSON {
		return writeJSON(a.out, struct {
			URL string `json:"url"`
		}{url})
	}
	fmt.Fprintln(a.out, url)
	return nil
}

// selectLocation saves loc and reports the new selection.
func selectLocation(ctx context.Context, a *app, loc location.Location) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, loc); err != nil {
		return err
	}

	if FlagJSON {
		return writeJSON(a.out, loc)
	}
	fmt.Fprintf(a.out, "Location set to %s\n", describeLocation(loc))
	return nil
}

// describeLocation is the label followed by the coordinates when known.
func describeLocation(loc location.Location) string {
	s := loc.Label()
	if loc.City != "" && loc.Country != "" {
		s = loc.City + ", " + loc.Country
	}
	if coords := loc.Coords(); coords != "" {
		s += " (" + coords + ")"
	}
	return s
}

func printLocation(w io.Writer, loc location.Location) {
	pairs := []display.Pair{{Label: "Location", Value: loc.Label(), Emphasis: true}}
	if loc.City != "" {
		pairs = append(pairs, display.Pair{Label: "City", Value: loc.City})
	}
	if loc.Region != "" {
		pairs = append(pairs, display.Pair{Label: "Region", Value: loc.Region})
	}
	if loc.Country != "" {
		pairs = append(pairs, display.Pair{Label: "Country", Value: loc.Country})
	}
	if coords := loc.Coords(); coords != "" {
		pairs = append(pairs, display.Pair{Label: "Coordinates", Value: coords})
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, display.RenderPairs(pairs))
	if loc.HasCoordinates() {
		fmt.Fprintf(w, "\n  %s %s\n", display.Gray("Find Mosques Nearby:"), geo.NearbyMosquesURL(*loc.Lat, *loc.Lon))
	}
	fmt.Fprintln(w)
}

func printPlaces(w io.Writer, places []geo.Place) {
	t := display.NewTable([]string{"#", "Place", "Coordinates"})
	t.SetAlign(0, display.AlignRight)
	for i, p := range places {
		name := p.DisplayName
		if name == "" {
			name = location.FromPlace(p).Label()
		}
		t.AddRow([]string{fmt.Sprint(i + 1), name, location.FromPlace(p).Coords()})
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, t.Render())
}

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/display"
	"github.com/smokyabdulrahman/namaz/internal/location"
	"github.com/smokyabdulrahman/namaz/internal/prayer"
	"github.com/smokyabdulrahman/namaz/internal/schedule"
	"github.com/smokyabdulrahman/namaz/internal/zakaat"
)

func TestLocation_SetShowClear(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "location", "set", "--city", "Hyderabad", "--country", "India", "--latitude", "17.385", "--longitude", "78.4867")
	if err != nil {
		t.Fatalf("location set failed: %v", err)
	}
	if want := "Location set to Hyderabad, India (17.385, 78.487)"; !strings.Contains(out, want) {
		t.Errorf("set output = %q, want %q", out, want)
	}

	statePath := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "namaz", "state.json")
	data, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	if !strings.Contains(string(data), location.Key) {
		t.Errorf("state file missing %s key: %s", location.Key, data)
	}

	out, err = runCLI(t, "location", "show", "--json")
	if err != nil {
		t.Fatalf("location show failed: %v", err)
	}
	var shown struct {
		Location *location.Location `json:"location"`
	}
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if shown.Location == nil || shown.Location.City != "Hyderabad" || *shown.Location.Lat != 17.385 {
		t.Errorf("shown location = %+v", shown.Location)
	}

	out, err = runCLI(t, "mosques")
	if err != nil {
		t.Fatalf("mosques failed: %v", err)
	}
	if !strings.Contains(out, "@17.385000,78.486700") {
		t.Errorf("mosques url = %q", out)
	}

	if _, err := runCLI(t, "location", "clear"); err != nil {
		t.Fatalf("location clear failed: %v", err)
	}
	out, err = runCLI(t, "location")
	if err != nil {
		t.Fatalf("location show failed: %v", err)
	}
	if !strings.Contains(out, "Select a location") {
		t.Errorf("expected prompt after clear, got %q", out)
	}
}

func TestLocation_SetNeedsInput(t *testing.T) {
	isolate(t)
	if _, err := runCLI(t, "location", "set"); err == nil {
		t.Error("expected error with no location flags")
	}
}

func TestLocation_SetRejectsOutOfRange(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "location", "set", "--latitude", "95", "--longitude", "10")
	if err == nil || !strings.Contains(err.Error(), "latitude") {
		t.Errorf("err = %v, want latitude range error", err)
	}
}

func TestMosques_NeedsCoordinates(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "mosques", "--city", "Leeds", "--country", "UK")
	if err == nil || !strings.Contains(err.Error(), "no coordinates") {
		t.Errorf("err = %v, want no coordinates", err)
	}
}

func TestConfig_SetAndShow(t *testing.T) {
	isolate(t)

	if _, err := runCLI(t, "config", "set", "method", "1"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if _, err := runCLI(t, "config", "set", "currency", "usd"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	out, err := runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "1 (University of Islamic Sciences, Karachi)") {
		t.Errorf("method not described:\n%s", out)
	}
	if !strings.Contains(out, "USD") {
		t.Errorf("currency missing:\n%s", out)
	}

	if _, err := runCLI(t, "config", "set", "city", "Riyadh"); err == nil {
		t.Error("expected error for retired key city")
	}
}

func TestMethodsAndAbout(t *testing.T) {
	isolate(t)

	out, err := runCLI(t, "methods")
	if err != nil {
		t.Fatalf("methods failed: %v", err)
	}
	for _, m := range []string{"ISNA", "Muslim World League", "Umm Al-Qura", "Jafari", "Ministry of Awqaf, Jordan"} {
		if !strings.Contains(out, m) {
			t.Errorf("methods output missing %q", m)
		}
	}

	out, err = runCLI(t, "about")
	if err != nil {
		t.Fatalf("about failed: %v", err)
	}
	if !strings.Contains(out, "About Namaz Timings") {
		t.Errorf("about output = %q", out)
	}
}

func TestAnnounce_NeedsBroker(t *testing.T) {
	isolate(t)
	t.Setenv("NAMAZ_MQTT_BROKER", "")
	_, err := runCLI(t, "announce", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	if err == nil || !strings.Contains(err.Error(), "broker") {
		t.Errorf("err = %v, want missing broker", err)
	}
}

func TestAnnounce_RejectsWildcardTopic(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "announce", "--broker", "tcp://127.0.0.1:1", "--topic", "home/#",
		"--env-file", filepath.Join(t.TempDir(), "missing.env"))
	if err == nil || !strings.Contains(err.Error(), "invalid topic") {
		t.Errorf("err = %v, want invalid topic", err)
	}
}

func fallbackResult(t *testing.T, decl zakaat.WealthDeclaration) *zakaat.Result {
	t.Helper()
	prices := zakaat.Prices{Fallback: true}.WithFallback(zakaat.FallbackProfile)
	res, err := zakaat.NewCalculator().Calculate(decl, prices, zakaat.INR)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestPrintZakaat_Eligible(t *testing.T) {
	display.SetEnabled(false)
	defer display.SetEnabled(true)

	decl := zakaat.WealthDeclaration{Cash: 5000000}
	var buf bytes.Buffer
	printZakaat(&buf, decl, fallbackResult(t, decl), "a few seconds ago")
	out := buf.String()

	for _, want := range []string{"₹5000000.00", "₹109593.75", "Zakaat due (2.5%): ₹125000.00", pricingNotice(), "Rates updated a few seconds ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintZakaat_BelowNisab(t *testing.T) {
	display.SetEnabled(false)
	defer display.SetEnabled(true)

	decl := zakaat.WealthDeclaration{Cash: 100000}
	var buf bytes.Buffer
	printZakaat(&buf, decl, fallbackResult(t, decl), "")
	if !strings.Contains(buf.String(), "Below Nisab") {
		t.Errorf("expected below-Nisab message:\n%s", buf.String())
	}
}

func TestPrintPrices(t *testing.T) {
	display.SetEnabled(false)
	defer display.SetEnabled(true)

	p, err := zakaat.DerivePricing(zakaat.Prices{}.WithFallback(zakaat.FallbackProfile), zakaat.INR)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	printPrices(&buf, p, true, "")
	out := buf.String()
	for _, want := range []string{"Metal Prices (INR)", "Gold Nisab (77.76g)", "Silver Nisab (1632.93g)", "₹417500.00", "Nisab threshold"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func pricingNotice() string {
	return "Live prices unavailable, using fallback values."
}

func testRamzan(t *testing.T) *schedule.Ramzan {
	t.Helper()
	day := func(d, hijriDay int) prayer.RamzanDay {
		date := time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC)
		return prayer.RamzanDay{
			Date:     date,
			HijriDay: hijriDay,
			Hijri:    "",
			Weekday:  date.Weekday().String(),
			Sehri:    time.Date(2026, 2, d, 5, 7, 0, 0, time.UTC),
			Iftar:    time.Date(2026, 2, d, 17, 39, 0, 0, time.UTC),
		}
	}
	return &schedule.Ramzan{
		Location:  location.Location{City: "London"},
		HijriYear: 1447,
		Zone:      time.UTC,
		Days:      []prayer.RamzanDay{day(18, 1), day(19, 2)},
	}
}

func TestRamzanTable(t *testing.T) {
	display.SetEnabled(false)
	defer display.SetEnabled(true)

	cal := testRamzan(t)
	tbl := ramzanTable(cal, time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC), "15:04")
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}
	out := tbl.Render()
	for _, want := range []string{"Sehri", "Iftar", "05:07", "17:39", "12h 32m", "Wed", "Thu"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestBuildRamzanJSON(t *testing.T) {
	got := buildRamzanJSON(testRamzan(t), "3:04 PM")
	if got.HijriYear != 1447 || got.Location != "London" || len(got.Days) != 2 {
		t.Fatalf("got %+v", got)
	}
	d := got.Days[1]
	if d.Day != 2 || d.Date != "2026-02-19" || d.Sehri != "5:07 AM" || d.Iftar != "5:39 PM" {
		t.Errorf("day = %+v", d)
	}
}

func TestFormatFast(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{13*time.Hour + 42*time.Minute, "13h 42m"},
		{5 * time.Minute, "0h 05m"},
		{-time.Minute, "0h 00m"},
	}
	for _, tt := range tests {
		if got := formatFast(tt.d); got != tt.want {
			t.Errorf("formatFast(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

package prayer

import (
	"fmt"
	"strings"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/api"
)

// Prayer represents a single prayer (or marker event) with its start time.
type Prayer struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

// AllPrayerNames lists every prayer/event the API can return, in chronological order.
var AllPrayerNames = []string{
	"Fajr", "Sunrise", "Dhuhr", "Asr", "Sunset", "Maghrib", "Isha",
	"Imsak", "Midnight", "Firstthird", "Lastthird",
}

// DefaultPrayerNames are the entries shown on the daily schedule.
var DefaultPrayerNames = []string{
	"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha",
}

// MandatoryPrayers are the five daily prayers. A schedule without all of
// them cannot be resolved.
var MandatoryPrayers = []string{
	"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha",
}

// ShortNames maps full prayer names to single-character abbreviations.
var ShortNames = map[string]string{
	"Fajr":       "F",
	"Sunrise":    "S",
	"Dhuhr":      "D",
	"Asr":        "A",
	"Sunset":     "St",
	"Maghrib":    "M",
	"Isha":       "I",
	"Imsak":      "Im",
	"Midnight":   "Mi",
	"Firstthird": "F3",
	"Lastthird":  "L3",
}

// IsMandatory reports whether name is one of the five daily prayers.
func IsMandatory(name string) bool {
	for _, n := range MandatoryPrayers {
		if n == name {
			return true
		}
	}
	return false
}

// NormalizeName matches name case-insensitively against AllPrayerNames.
func NormalizeName(name string) (string, bool) {
	for _, n := range AllPrayerNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return n, true
		}
	}
	return "", false
}

// ParseTimings converts API timings into a slice of Prayer structs for the given date.
// It filters to only include the specified prayer names. Empty timings are
// skipped rather than rejected; Resolve decides whether what remains is enough.
func ParseTimings(timings api.Timings, date time.Time, loc *time.Location, selected []string) ([]Prayer, error) {
	timingMap := timingsByName(timings)

	var prayers []Prayer
	for _, name := range selected {
		raw, ok := timingMap[name]
		if !ok {
			return nil, fmt.Errorf("unknown prayer name: %s", name)
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}

		t, err := parseTimeStr(raw, date, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse time for %s (%q): %w", name, raw, err)
		}

		prayers = append(prayers, Prayer{Name: name, Time: t})
	}

	return prayers, nil
}

func timingsByName(timings api.Timings) map[string]string {
	return map[string]string{
		"Fajr":       timings.Fajr,
		"Sunrise":    timings.Sunrise,
		"Dhuhr":      timings.Dhuhr,
		"Asr":        timings.Asr,
		"Sunset":     timings.Sunset,
		"Maghrib":    timings.Maghrib,
		"Isha":       timings.Isha,
		"Imsak":      timings.Imsak,
		"Midnight":   timings.Midnight,
		"Firstthird": timings.Firstthird,
		"Lastthird":  timings.Lastthird,
	}
}

// TimeRemaining returns the duration until the given prayer time.
func TimeRemaining(prayer Prayer, now time.Time) time.Duration {
	return prayer.Time.Sub(now)
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatCountdown formats a duration as HH:MM:SS for a live ticking display.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// parseTimeStr parses a time string like "15:02" or "15:02 (BST)" into a time.Time
// on the given date in the given location.
func parseTimeStr(raw string, date time.Time, loc *time.Location) (time.Time, error) {
	// The API appends a zone label such as " (BST)".
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %q", raw)
	}

	var hour, min int
	if _, err := fmt.Sscanf(parts[0], "%d", &hour); err != nil {
		return time.Time{}, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &min); err != nil {
		return time.Time{}, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return time.Time{}, fmt.Errorf("time out of range: %q", raw)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, loc), nil
}

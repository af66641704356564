package prayer

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MissingDataError reports mandatory prayers absent from a schedule.
type MissingDataError struct {
	Missing []string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("prayer schedule is missing %s", strings.Join(e.Missing, ", "))
}

// Resolution is the answer to "which prayer is it now, and which comes next".
type Resolution struct {
	// Current is the mandatory prayer whose window contains now, if any.
	Current *Prayer `json:"current,omitempty"`
	// Next is the soonest mandatory prayer starting strictly after now.
	// Markers such as Sunrise are never the next prayer.
	Next *Prayer `json:"next,omitempty"`
	// NeedsNextDay is set when every mandatory prayer of the schedule has
	// started; the next target lives in the following day's schedule.
	NeedsNextDay bool `json:"needs_next_day"`
}

// windowClosers are markers that end the preceding prayer's window.
// Sunrise ends Fajr; Dhuhr does not begin until after zenith.
var windowClosers = map[string]bool{
	"Sunrise": true,
}

// Resolve determines the current and next prayer for now.
//
// The schedule is copied and sorted, so callers may pass entries in any order.
// Entries with a zero time are ignored. All five mandatory prayers must be
// present or a *MissingDataError is returned.
func Resolve(schedule []Prayer, now time.Time) (Resolution, error) {
	entries := make([]Prayer, 0, len(schedule))
	present := make(map[string]bool, len(schedule))
	for _, p := range schedule {
		if p.Time.IsZero() {
			continue
		}
		entries = append(entries, p)
		present[p.Name] = true
	}

	var missing []string
	for _, name := range MandatoryPrayers {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Resolution{}, &MissingDataError{Missing: missing}
	}

	// Markers sharing a start time with a prayer (Sunset/Maghrib) sort first
	// so the prayer wins as current.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Time.Equal(entries[j].Time) {
			return !IsMandatory(entries[i].Name) && IsMandatory(entries[j].Name)
		}
		return entries[i].Time.Before(entries[j].Time)
	})

	var res Resolution
	var current *Prayer
	for i := range entries {
		e := entries[i]
		if e.Time.After(now) {
			if IsMandatory(e.Name) {
				res.Next = &e
				break
			}
			continue
		}
		switch {
		case IsMandatory(e.Name):
			current = &e
		case windowClosers[e.Name]:
			current = nil
		}
	}

	if res.Next == nil {
		res.NeedsNextDay = true
	}

	// The last prayer of the day runs until midnight of its own day.
	if current != nil && !now.Before(nextMidnight(current.Time)) {
		current = nil
	}
	res.Current = current

	return res, nil
}

// nextMidnight returns 00:00 of the day after t, in t's location.
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

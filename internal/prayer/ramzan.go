package prayer

import (
	"fmt"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/api"
)

// RamadanMonth is the Hijri month number of Ramzan.
const RamadanMonth = 9

// RamzanDay is one row of the Ramzan calendar.
type RamzanDay struct {
	Date     time.Time `json:"date"`
	HijriDay int       `json:"hijri_day"`
	Hijri    string    `json:"hijri"`
	Weekday  string    `json:"weekday"`
	Sehri    time.Time `json:"sehri"`
	Iftar    time.Time `json:"iftar"`
}

// FastDuration is the time between Sehri ending and Iftar.
func (d RamzanDay) FastDuration() time.Duration {
	return d.Iftar.Sub(d.Sehri)
}

// RamzanYear picks the Hijri year whose Ramzan is current or upcoming,
// given today's Hijri date.
func RamzanYear(today api.HijriDate) int {
	year := today.YearNumber()
	if year == 0 {
		return 0
	}
	if today.Month.Number > RamadanMonth {
		return year + 1
	}
	return year
}

// BuildRamzan turns a Hijri month calendar into Sehri/Iftar rows.
// Sehri ends at Imsak when the API reports it, otherwise at Fajr.
func BuildRamzan(days []api.Data, loc *time.Location) ([]RamzanDay, error) {
	out := make([]RamzanDay, 0, len(days))
	for i, d := range days {
		date, err := d.Date.Gregorian.In(loc)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", i+1, err)
		}

		sehriRaw := d.Timings.Imsak
		if sehriRaw == "" {
			sehriRaw = d.Timings.Fajr
		}
		sehri, err := parseTimeStr(sehriRaw, date, loc)
		if err != nil {
			return nil, fmt.Errorf("day %d sehri: %w", i+1, err)
		}
		iftar, err := parseTimeStr(d.Timings.Maghrib, date, loc)
		if err != nil {
			return nil, fmt.Errorf("day %d iftar: %w", i+1, err)
		}

		hijriDay := d.Date.Hijri.DayNumber()
		if hijriDay == 0 {
			hijriDay = i + 1
		}

		out = append(out, RamzanDay{
			Date:     date,
			HijriDay: hijriDay,
			Hijri:    d.Date.Hijri.Format(),
			Weekday:  date.Weekday().String(),
			Sehri:    sehri,
			Iftar:    iftar,
		})
	}
	return out, nil
}

package prayer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Pending stands in for a time that is not known yet.
const Pending = "--:--"

// Status line layouts accepted by Countdown.Render.
const (
	LayoutRemaining      = "time-remaining"
	LayoutTime           = "next-prayer-time"
	LayoutNameTime       = "name-and-time"
	LayoutNameRemaining  = "name-and-remaining"
	LayoutShortTime      = "short-name-and-time"
	LayoutShortRemaining = "short-name-and-remaining"
	LayoutFull           = "full"
	LayoutCountdown      = "countdown"
)

// Countdown is what a status line shows at one instant: the prayer in
// progress and the countdown target, which may come from tomorrow's schedule.
// A nil Next means today is over and tomorrow is not known yet.
type Countdown struct {
	Now      time.Time
	Current  *Prayer
	Next     *Prayer
	Tomorrow bool
}

// Left is the time until Next, or zero when Next is unknown.
func (c Countdown) Left() time.Duration {
	if c.Next == nil {
		return 0
	}
	return TimeRemaining(*c.Next, c.Now)
}

// StatusData is the value custom templates are executed against.
type StatusData struct {
	Name      string // target prayer, e.g. "Asr"; the last prayer while Pending
	ShortName string // e.g. "A"
	Time      string // e.g. "15:02" or "3:02 PM"
	Remaining string // e.g. "2h 15m"
	Hours     int
	Minutes   int
	Countdown string // e.g. "02:15:09"
	Current   string // prayer in progress, empty between windows
	Tomorrow  bool   // target is in tomorrow's schedule
	Pending   bool   // target unknown; times read "--:--"
}

// Data renders c's values with clock as the Go time layout.
func (c Countdown) Data(clock string) StatusData {
	d := StatusData{Tomorrow: c.Tomorrow}
	if c.Current != nil {
		d.Current = c.Current.Name
	}

	if c.Next == nil {
		d.Name = d.Current
		if d.Name == "" {
			d.Name = "Isha"
		}
		d.ShortName = ShortNames[d.Name]
		d.Time, d.Remaining, d.Countdown = Pending, Pending, Pending
		d.Pending = true
		return d
	}

	left := c.Left()
	d.Name = c.Next.Name
	d.ShortName = ShortNames[c.Next.Name]
	d.Time = c.Next.Time.Format(clock)
	d.Remaining = FormatRemaining(left)
	d.Hours = int(left.Hours())
	d.Minutes = int(left.Minutes()) % 60
	d.Countdown = FormatCountdown(left)
	return d
}

var layouts = map[string]func(StatusData) string{
	LayoutRemaining:      func(d StatusData) string { return d.Remaining },
	LayoutTime:           func(d StatusData) string { return d.Time },
	LayoutNameTime:       func(d StatusData) string { return d.Name + " " + d.Time },
	LayoutNameRemaining:  func(d StatusData) string { return d.Name + " " + d.Remaining },
	LayoutShortTime:      func(d StatusData) string { return d.ShortName + " " + d.Time },
	LayoutShortRemaining: func(d StatusData) string { return d.ShortName + " " + d.Remaining },
	LayoutFull: func(d StatusData) string {
		if d.Pending {
			return d.Name + " " + Pending
		}
		s := d.Name + " " + d.Time
		if d.Tomorrow {
			s += " tomorrow"
		}
		return fmt.Sprintf("%s (%s)", s, d.Remaining)
	},
	LayoutCountdown: func(d StatusData) string {
		if d.Pending {
			return d.Name + " " + Pending
		}
		return d.Name + " in " + d.Countdown
	},
}

// Render formats c for a status line. A layout containing "{{" is executed
// as a text/template over StatusData; unknown layouts fall back to
// name-and-time. Template errors are rendered inline as "template-err: ...".
func (c Countdown) Render(layout, clock string) string {
	d := c.Data(clock)
	if strings.Contains(layout, "{{") {
		return execTemplate(layout, d)
	}
	render, ok := layouts[layout]
	if !ok {
		render = layouts[LayoutNameTime]
	}
	return render(d)
}

func execTemplate(text string, d StatusData) string {
	tmpl, err := template.New("status").Parse(text)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}
	return buf.String()
}

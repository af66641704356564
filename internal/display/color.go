// Package display renders namaz output for the terminal: ANSI styling,
// aligned tables and label/value blocks.
//
// Styling honours NO_COLOR (https://no-color.org/) and is switched off when
// stdout is not a terminal, so piped output stays plain.
package display

import (
	"fmt"
	"os"
)

// Style is an ANSI SGR sequence.
type Style string

// Styles used across the CLI.
const (
	StyleBold   Style = "\033[1m"
	StyleDim    Style = "\033[2m"
	StyleRed    Style = "\033[31m"
	StyleGreen  Style = "\033[32m"
	StyleYellow Style = "\033[33m"
	StyleCyan   Style = "\033[36m"
	StyleGray   Style = "\033[90m"
	// StyleAccent marks the next prayer and today's calendar row.
	StyleAccent Style = StyleBold + StyleCyan

	reset = "\033[0m"
)

var enabled = shouldEnable()

func shouldEnable() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	return isTerminal(os.Stdout)
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// SetEnabled overrides detection, e.g. when --json forces plain output.
func SetEnabled(b bool) {
	enabled = b
}

// Enabled reports whether styling is active.
func Enabled() bool {
	return enabled
}

// Apply wraps text in s when styling is active.
func (s Style) Apply(text string) string {
	if !enabled || text == "" {
		return text
	}
	return string(s) + text + reset
}

func Bold(text string) string   { return StyleBold.Apply(text) }
func Dim(text string) string    { return StyleDim.Apply(text) }
func Red(text string) string    { return StyleRed.Apply(text) }
func Green(text string) string  { return StyleGreen.Apply(text) }
func Yellow(text string) string { return StyleYellow.Apply(text) }
func Cyan(text string) string   { return StyleCyan.Apply(text) }
func Gray(text string) string   { return StyleGray.Apply(text) }
func Accent(text string) string { return StyleAccent.Apply(text) }

// Boldf formats and bolds a string.
func Boldf(format string, a ...any) string {
	return Bold(fmt.Sprintf(format, a...))
}

// Notice renders a warning line such as the fallback-prices notice.
func Notice(text string) string {
	return Yellow("! " + text)
}

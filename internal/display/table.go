package display

import (
	"strings"
	"unicode/utf8"
)

// Align is a column alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Table renders an aligned text table. Widths are measured in runes so
// Hijri month names and currency symbols line up.
type Table struct {
	headers []string
	aligns  []Align
	rows    [][]string
	// highlightRow is the 0-based row to highlight (typically "today"). -1 = none.
	highlightRow int
}

// NewTable creates a table with the given column headers, all left aligned.
func NewTable(headers []string) *Table {
	return &Table{
		headers:      headers,
		aligns:       make([]Align, len(headers)),
		highlightRow: -1,
	}
}

// SetAlign sets the alignment of column col. Out-of-range columns are ignored.
func (t *Table) SetAlign(col int, a Align) {
	if col >= 0 && col < len(t.aligns) {
		t.aligns[col] = a
	}
}

// AddRow appends a row of values.
func (t *Table) AddRow(values []string) {
	t.rows = append(t.rows, values)
}

// SetHighlightRow sets which row index (0-based) should be highlighted.
func (t *Table) SetHighlightRow(idx int) {
	t.highlightRow = idx
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render produces the formatted table with a two-space indent.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("  " + Bold(formatRow(t.headers, widths, t.aligns)) + "\n")

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sep, "  ")) + "\n")

	for i, row := range t.rows {
		line := formatRow(row, widths, t.aligns)
		if i == t.highlightRow {
			line = Accent(line)
		}
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

// formatRow pads each cell to its column width. Missing cells render blank.
func formatRow(cells []string, widths []int, aligns []Align) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		a := AlignLeft
		if i < len(aligns) {
			a = aligns[i]
		}
		parts[i] = pad(cell, w, a)
	}
	return strings.Join(parts, "  ")
}

func pad(s string, width int, a Align) string {
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	if a == AlignRight {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

// Pair is one line of a label/value block.
type Pair struct {
	Label string
	Value string
	// Emphasis bolds the line, e.g. for totals.
	Emphasis bool
}

// RenderPairs renders labels left aligned and values right aligned, each
// line indented by two spaces.
func RenderPairs(pairs []Pair) string {
	lw, vw := 0, 0
	for _, p := range pairs {
		lw = max(lw, utf8.RuneCountInString(p.Label))
		vw = max(vw, utf8.RuneCountInString(p.Value))
	}

	var sb strings.Builder
	for _, p := range pairs {
		line := pad(p.Label, lw, AlignLeft) + "  " + pad(p.Value, vw, AlignRight)
		if p.Emphasis {
			line = Bold(line)
		}
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

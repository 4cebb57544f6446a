package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"quotewatch/internal/quote"
)

var headers = []string{"Code", "Name", "Last", "Change", "Change%", "High", "Low", "Ext", "Income%", "Income", "Time"}

const colGap = 2

// Table renders snapshots as aligned text. Colors follow the writer's
// terminal capabilities.
type Table struct {
	header lipgloss.Style
	up     lipgloss.Style
	down   lipgloss.Style
	stripe lipgloss.Style
	plain  lipgloss.Style
}

// NewTable builds a renderer for w. Rising prices are red and falling
// prices green, as on mainland and Hong Kong boards.
func NewTable(w io.Writer) *Table {
	r := lipgloss.NewRenderer(w)
	return &Table{
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		up:     r.NewStyle().Foreground(lipgloss.Color("196")),
		down:   r.NewStyle().Foreground(lipgloss.Color("82")),
		stripe: r.NewStyle().Background(lipgloss.Color("236")),
		plain:  r.NewStyle(),
	}
}

// Cells formats one row as display text.
func Cells(r Row) []string {
	q := r.Quote
	if q == nil {
		return []string{r.Identifier, "", "", "", "", "", "", "", "", "", ""}
	}
	ext := q.Extended.Price
	if q.Extended.Session != quote.SessionNone {
		ext = fmt.Sprintf("%s (%s)", ext, q.Extended.Session)
	}
	pct := q.ChangePercent
	if pct != "" {
		pct += "%"
	}
	inc := q.IncomePercent
	if inc != "" {
		inc += "%"
	}
	return []string{q.Identifier, q.Name, q.Last, q.Change, pct, q.High, q.Low, ext, inc, q.IncomeAmount, q.Clock()}
}

func (t *Table) Render(w io.Writer, s Snapshot) error {
	grid := make([][]string, 0, len(s.Rows)+1)
	grid = append(grid, headers)
	for _, r := range s.Rows {
		grid = append(grid, Cells(r))
	}

	widths := make([]int, len(headers))
	for _, row := range grid {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var sb strings.Builder
	for i, row := range grid {
		var line strings.Builder
		for j, c := range row {
			cell := c + strings.Repeat(" ", widths[j]-lipgloss.Width(c))
			if j < len(row)-1 {
				cell += strings.Repeat(" ", colGap)
			}
			line.WriteString(t.cellStyle(i, j, s, row).Render(cell))
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (t *Table) cellStyle(i, j int, s Snapshot, row []string) lipgloss.Style {
	if i == 0 {
		return t.header
	}
	st := t.plain
	if s.Striped && i%2 == 0 {
		st = t.stripe
	}
	// Change, Change% columns follow the sign of the change.
	if s.Colorful && (j == 3 || j == 4) {
		switch sign(row[3]) {
		case 1:
			st = st.Inherit(t.up)
		case -1:
			st = st.Inherit(t.down)
		}
	}
	return st
}

func sign(s string) int {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || strings.Trim(s, "0.-+") == "":
		return 0
	case strings.HasPrefix(s, "-"):
		return -1
	default:
		return 1
	}
}

package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// column describes one column of a text report. Numeric columns are right
// aligned.
type column struct {
	title string
	right bool
}

var sessionColumns = []column{
	{title: "ID", right: true},
	{title: "Participant"},
	{title: "Ended"},
	{title: "Trials", right: true},
	{title: "Accuracy", right: true},
	{title: "Mean RT (ms)", right: true},
	{title: "Timeouts", right: true},
	{title: "Scores"},
}

var phaseColumns = []column{
	{title: "Phase"},
	{title: "Trials", right: true},
	{title: "Accuracy", right: true},
	{title: "Mean RT (ms)", right: true},
	{title: "Timeouts", right: true},
	{title: "Skipped", right: true},
}

// curveColumns has no header line: metric, sparkline, latest value.
var curveColumns = []column{{}, {}, {right: true}}

// formatTable lays rows out under cols, padding each cell to the widest
// value of its column in terminal cells. The header is omitted when no
// column has a title.
func formatTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	header := make([]string, len(cols))
	titled := false
	for i, c := range cols {
		header[i] = c.title
		widths[i] = displayWidth(c.title)
		titled = titled || c.title != ""
	}
	for _, row := range rows {
		for i := range cols {
			widths[i] = max(widths[i], displayWidth(cell(row, i)))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if titled {
		lines = append(lines, formatRow(cols, widths, header))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(cols, widths, row))
	}
	return lines
}

func formatRow(cols []column, widths []int, row []string) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = padCell(cell(row, i), widths[i], c.right)
	}
	return strings.Join(cells, " ")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func padCell(value string, width int, right bool) string {
	padding := width - displayWidth(value)
	if padding <= 0 {
		return value
	}
	if right {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

// displayWidth counts terminal cells, so wide participant IDs stay aligned.
func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}

// writeTable prints the table followed by a blank line.
func writeTable(w io.Writer, cols []column, rows [][]string) error {
	for _, line := range formatTable(cols, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

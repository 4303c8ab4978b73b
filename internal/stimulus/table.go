// Package stimulus holds stimulus tables and the column operations the
// sequencer relies on.
package stimulus

import (
	"fmt"

	"github.com/verte-zerg/stroopread/internal/model"
)

// Column names understood by the experiment.
const (
	ColWord           = "Word"
	ColFontColourCode = "FontColourCode"
	ColButton         = "Button"
	ColTrialType      = "TrialType"
	ColSentence       = "Sentence"
	ColQuestion       = "Question"
	ColAnswer         = "Answer"
	ColBlock          = "Block"
	ColGroup          = "Group"
	ColCondition      = "Condition"
	ColItem           = "Item"
)

// DataError reports a malformed or missing table row or column.
type DataError struct {
	Table  string
	Line   int
	Column string
	Reason string
}

func (e *DataError) Error() string {
	msg := "stimulus table"
	if e.Table != "" {
		msg += " " + e.Table
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	return msg + ": " + e.Reason
}

// Table is an ordered, immutable sequence of rows.
type Table struct {
	Name    string
	Header  []string
	rows    []model.Row
	columns map[string]struct{}
}

// NewTable builds a table from already parsed rows.
func NewTable(name string, header []string, rows []model.Row) *Table {
	cols := make(map[string]struct{}, len(header))
	for _, h := range header {
		cols[h] = struct{}{}
	}
	out := make([]model.Row, len(rows))
	copy(out, rows)
	return &Table{Name: name, Header: append([]string(nil), header...), rows: out, columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns a copy of the rows in table order.
func (t *Table) Rows() []model.Row {
	out := make([]model.Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Row returns the row with the given source index.
func (t *Table) Row(index int) (model.Row, bool) {
	for _, r := range t.rows {
		if r.Index == index {
			return r, true
		}
	}
	return model.Row{}, false
}

// HasColumn reports whether the header declares column.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// Require returns a DataError naming the first missing column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return &DataError{Table: t.Name, Column: c, Reason: "missing column"}
		}
	}
	return nil
}

// Filter returns the rows whose column equals value, keeping table order
// and source indices.
func (t *Table) Filter(column, value string) *Table {
	var rows []model.Row
	for _, r := range t.rows {
		if r.Value(column) == value {
			rows = append(rows, r)
		}
	}
	return &Table{Name: t.Name, Header: t.Header, rows: rows, columns: t.columns}
}

// PartitionValues lists the distinct values of column in first-appearance order.
func (t *Table) PartitionValues(column string) []string {
	seen := map[string]struct{}{}
	var values []string
	for _, r := range t.rows {
		v := r.Value(column)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

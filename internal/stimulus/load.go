package stimulus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/stroopread/internal/model"
)

// Load reads a stimulus table from a CSV file with a header row.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only table.
			_ = cerr
		}
	}()
	return Read(filepath.Base(path), file)
}

// Read parses CSV data. Every data row must have as many fields as the header.
func Read(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &DataError{Table: name, Reason: "table is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if header[i] == "" {
			return nil, &DataError{Table: name, Line: 1, Reason: fmt.Sprintf("empty column name at position %d", i+1)}
		}
	}

	var rows []model.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &DataError{Table: name, Line: parseErr.Line, Reason: parseErr.Err.Error()}
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != len(header) {
			return nil, &DataError{
				Table:  name,
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(record)),
			}
		}
		rows = append(rows, newRow(len(rows), line, header, record))
	}
	if len(rows) == 0 {
		return nil, &DataError{Table: name, Reason: "table has no rows"}
	}
	return NewTable(name, header, rows), nil
}

func newRow(index, line int, header, record []string) model.Row {
	cols := make(map[string]string, len(header))
	for i, h := range header {
		cols[h] = strings.TrimSpace(record[i])
	}
	return model.Row{
		Index:          index,
		Line:           line,
		Word:           cols[ColWord],
		FontColourCode: cols[ColFontColourCode],
		Button:         cols[ColButton],
		TrialType:      cols[ColTrialType],
		Sentence:       cols[ColSentence],
		Question:       cols[ColQuestion],
		Answer:         cols[ColAnswer],
		Block:          cols[ColBlock],
		Group:          cols[ColGroup],
		Condition:      cols[ColCondition],
		Item:           cols[ColItem],
		Columns:        cols,
	}
}

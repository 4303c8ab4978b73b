package stats

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/verte-zerg/stroopread/internal/model"
)

func TestWriteCSV(t *testing.T) {
	records := []model.TrialRecord{
		{
			SessionID:     3,
			ParticipantID: "P1",
			Seed:          9,
			TrialResult: model.TrialResult{
				Position:    2,
				Phase:       "experiment",
				Item:        "4",
				Branch:      "sentence_first",
				Key:         "W",
				Expected:    "W",
				Correct:     true,
				RTMs:        512,
				Answer:      "no",
				SentenceRTs: []int64{300, 410},
				Columns:     map[string]string{"Group": "A"},
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records, []string{"Condition", "Group"}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d", len(rows))
	}
	header, row := rows[0], rows[1]
	if len(header) != len(exportHeader)+2 || header[len(header)-1] != "Group" {
		t.Fatalf("unexpected header %v", header)
	}
	get := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %s", name)
		return ""
	}
	if get("participant") != "P1" || get("correct") != "1" || get("timed_out") != "0" {
		t.Fatalf("unexpected row %v", row)
	}
	if get("sentence_rts") != "300 410" || get("Group") != "A" || get("Condition") != "" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestExportFromStore(t *testing.T) {
	st := openStore(t)
	seedSessions(t, st, 2)

	var buf bytes.Buffer
	n, err := Export(context.Background(), st, model.StatsConfig{Last: 1}, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 exported trials, got %d", n)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 || rows[0][len(rows[0])-1] != "ID" {
		t.Fatalf("unexpected export %v", rows)
	}
}

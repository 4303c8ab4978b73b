package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	cols := []column{{title: "Phase"}, {title: "Accuracy", right: true}, {title: "Trials", right: true}}
	rows := [][]string{
		{"stroop", "97.50%", "12"},
		{"color_matching", "8.00%", "3"},
	}

	lines := formatTable(cols, rows)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Phase          Accuracy Trials" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "stroop           97.50%     12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "color_matching    8.00%      3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]column{{title: "ID"}, {title: "N"}}, [][]string{{"参加者", "1"}, {"P1", "2"}})
	if lines[1] != "参加者 1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "P1     2" {
		t.Fatalf("unexpected padded row: %q", lines[2])
	}
}

func TestFormatTableUntitledColumnsSkipHeader(t *testing.T) {
	lines := formatTable(curveColumns, [][]string{{"Accuracy", "+=*", "90.00%"}, {"Mean RT", "*=+", "512.3 ms"}})
	if len(lines) != 2 {
		t.Fatalf("expected rows only, got %q", lines)
	}
	if lines[0] != "Accuracy +=*   90.00%" {
		t.Fatalf("unexpected curve row: %q", lines[0])
	}
}

func TestFormatTableShortRows(t *testing.T) {
	lines := formatTable(phaseColumns, [][]string{{"stroop", "3"}})
	if len(lines) != 2 {
		t.Fatalf("expected header and row, got %d lines", len(lines))
	}
	if got, want := displayWidth(lines[1]), displayWidth(lines[0]); got != want {
		t.Fatalf("expected short row padded to header width %d, got %d", want, got)
	}
}

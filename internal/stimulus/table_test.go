package stimulus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const blockCSV = `Word,FontColourCode,Button,TrialType,Sentence,Question,Block,Group,Condition,Item
RED,blue,W,Stroop_Sentence,The cat sat.,Did the cat sit?,1,A,incongruent,1
BLUE,blue,W,Sentence_Stroop,The dog ran.,Did the dog run?,2,A,congruent,2
GREEN,red,Q,Stroop_Sentence,It rained.,Did it snow?,1,B,incongruent,3
`

func TestReadParsesNamedColumns(t *testing.T) {
	table, err := Read("stimuli.csv", strings.NewReader(blockCSV))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	rows := table.Rows()
	if rows[0].Word != "RED" || rows[0].FontColourCode != "blue" || rows[0].Button != "W" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[2].Index != 2 || rows[2].Line != 4 {
		t.Fatalf("expected index 2 line 4, got %d %d", rows[2].Index, rows[2].Line)
	}
	if rows[1].Value("Condition") != "congruent" {
		t.Fatalf("expected raw column access, got %q", rows[1].Value("Condition"))
	}
}

func TestReadRejectsShortRow(t *testing.T) {
	data := "Word,Button\nRED,W\nBLUE\n"
	_, err := Read("bad.csv", strings.NewReader(data))
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError, got %v", err)
	}
	if dataErr.Line != 3 {
		t.Fatalf("expected line 3, got %d", dataErr.Line)
	}
}

func TestReadRejectsEmptyTable(t *testing.T) {
	_, err := Read("empty.csv", strings.NewReader("Word,Button\n"))
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected DataError, got %v", err)
	}
}

func TestFilterKeepsOrderAndIndices(t *testing.T) {
	table, err := Read("stimuli.csv", strings.NewReader(blockCSV))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	block1 := table.Filter(ColBlock, "1")
	if block1.Len() != 2 {
		t.Fatalf("expected 2 rows in block 1, got %d", block1.Len())
	}
	rows := block1.Rows()
	if rows[0].Index != 0 || rows[1].Index != 2 {
		t.Fatalf("unexpected indices: %d %d", rows[0].Index, rows[1].Index)
	}
	if got := table.Filter(ColBlock, "9").Len(); got != 0 {
		t.Fatalf("expected no rows for unknown block, got %d", got)
	}
}

func TestPartitionValuesFirstAppearance(t *testing.T) {
	table, err := Read("stimuli.csv", strings.NewReader(blockCSV))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	values := table.PartitionValues(ColBlock)
	if len(values) != 2 || values[0] != "1" || values[1] != "2" {
		t.Fatalf("unexpected partition values: %v", values)
	}
}

func TestRequireReportsMissingColumn(t *testing.T) {
	table, err := Read("stimuli.csv", strings.NewReader("Word,Button\nRED,W\n"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := table.Require(ColWord, ColButton); err != nil {
		t.Fatalf("expected columns to be present: %v", err)
	}
	err = table.Require(ColSentence)
	var dataErr *DataError
	if !errors.As(err, &dataErr) || dataErr.Column != ColSentence {
		t.Fatalf("expected missing Sentence column, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stimuli.csv")
	if err := os.WriteFile(path, []byte(blockCSV), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Name != "stimuli.csv" || table.Len() != 3 {
		t.Fatalf("unexpected table %q with %d rows", table.Name, table.Len())
	}
}

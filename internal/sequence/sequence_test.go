package sequence

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/stimulus"
)

func testTable(t *testing.T, name string, blocks ...string) *stimulus.Table {
	t.Helper()
	var b strings.Builder
	b.WriteString("Word,Button,Block\n")
	for i, block := range blocks {
		fmt.Fprintf(&b, "W%d,Q,%s\n", i, block)
	}
	table, err := stimulus.Read(name, strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	return table
}

func defaultPhases(t *testing.T) Phases {
	return NewPhases(
		[]string{"intro", "practice_color", "exp_instru", "send_results", "bye", "break"},
		Template{Name: "color_matching", Table: testTable(t, "matching.csv", "", "", "")},
		Template{Name: "experiment", Table: testTable(t, "stimuli.csv", "1", "1", "1", "1", "1", "1", "1", "1")},
	)
}

func defaultEntries() []Entry {
	return []Entry{
		Literal("intro"),
		Literal("practice_color"),
		Literal("color_matching"),
		Literal("exp_instru"),
		Randomize("experiment"),
		Literal("send_results"),
		Literal("bye"),
	}
}

func ids(refs []model.TrialRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID()
	}
	return out
}

func TestParseEntry(t *testing.T) {
	cases := []struct {
		in   string
		want Entry
	}{
		{in: "intro", want: Literal("intro")},
		{in: " bye ", want: Literal("bye")},
		{in: "randomize(experiment)", want: Randomize("experiment")},
		{in: "randomize( experiment )", want: Randomize("experiment")},
	}
	for _, tc := range cases {
		got, err := ParseEntry(tc.in)
		if err != nil {
			t.Fatalf("ParseEntry(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseEntry(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "randomize(", "randomize()", "shuffle(x)", "randomize(a(b))"} {
		if _, err := ParseEntry(bad); !errors.Is(err, ErrBadEntry) {
			t.Fatalf("ParseEntry(%q) expected ErrBadEntry, got %v", bad, err)
		}
	}
}

func TestEntryStringRoundTrip(t *testing.T) {
	for _, e := range defaultEntries() {
		parsed, err := ParseEntry(e.String())
		if err != nil || parsed != e {
			t.Fatalf("round trip of %s gave %+v, %v", e, parsed, err)
		}
	}
}

func TestBuildLiteralTemplateKeepsTableOrder(t *testing.T) {
	refs, err := Build(defaultEntries(), defaultPhases(t), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(refs) != 5+3+8 {
		t.Fatalf("unexpected sequence length %d", len(refs))
	}
	for i := 0; i < 3; i++ {
		ref := refs[2+i]
		if ref.Phase != "color_matching" || ref.Index != i || ref.Randomized {
			t.Fatalf("expected color_matching row %d in order, got %+v", i, ref)
		}
	}
}

func TestBuildDeterministicForSeed(t *testing.T) {
	phases := defaultPhases(t)
	a, err := Build(defaultEntries(), phases, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	b, err := Build(defaultEntries(), phases, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Join(ids(a), ",") != strings.Join(ids(b), ",") {
		t.Fatalf("expected identical sequences for same seed")
	}
}

func TestBuildRandomizedSpanIsPermutation(t *testing.T) {
	phases := defaultPhases(t)
	var reference []string
	changed := false
	for seed := int64(1); seed <= 20; seed++ {
		refs, err := Build(defaultEntries(), phases, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		spanIDs := ids(refs[6:14])
		if reference == nil {
			reference = append([]string(nil), spanIDs...)
		} else if strings.Join(spanIDs, ",") != strings.Join(reference, ",") {
			changed = true
		}
		sorted := append([]string(nil), spanIDs...)
		sort.Strings(sorted)
		for i := 0; i < 8; i++ {
			if sorted[i] != fmt.Sprintf("experiment#%d", i) {
				t.Fatalf("seed %d: span is not a permutation: %v", seed, spanIDs)
			}
		}
	}
	if !changed {
		t.Fatalf("expected at least one seed to produce a different order")
	}
}

func TestBuildAnchorsKeepPositions(t *testing.T) {
	phases := defaultPhases(t)
	anchors := map[int]string{0: "intro", 1: "practice_color", 5: "exp_instru", 14: "send_results", 15: "bye"}
	for seed := int64(1); seed <= 10; seed++ {
		refs, err := Build(defaultEntries(), phases, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		for pos, name := range anchors {
			if refs[pos].Phase != name || refs[pos].Templated() {
				t.Fatalf("seed %d: expected %s at %d, got %+v", seed, name, pos, refs[pos])
			}
		}
	}
}

func TestBuildPartitionedBlocks(t *testing.T) {
	table := testTable(t, "stimuli.csv", "1", "2", "1", "2", "1", "2", "2")
	phases := NewPhases(
		[]string{"exp_instru", "break", "bye"},
		Template{Name: "experiment", Table: table, Partition: "Block", Rest: "break"},
	)
	entries := []Entry{Literal("exp_instru"), Randomize("experiment"), Literal("bye")}
	refs, err := Build(entries, phases, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(refs) != 1+3+1+4+1 {
		t.Fatalf("unexpected sequence length %d", len(refs))
	}
	breaks := 0
	for _, r := range refs {
		if r.Phase == "break" {
			breaks++
		}
	}
	if breaks != 1 {
		t.Fatalf("expected one break, got %d", breaks)
	}
	if refs[4].Phase != "break" {
		t.Fatalf("expected break between blocks, got %+v", refs[4])
	}
	for _, r := range refs[1:4] {
		if r.Partition != "1" || r.Phase != "experiment" {
			t.Fatalf("expected block 1 trial, got %+v", r)
		}
	}
	for _, r := range refs[5:9] {
		if r.Partition != "2" || r.Phase != "experiment" {
			t.Fatalf("expected block 2 trial, got %+v", r)
		}
	}
}

func TestBuildPartitionOrderIsRespected(t *testing.T) {
	table := testTable(t, "stimuli.csv", "1", "2", "1")
	phases := NewPhases(
		[]string{"break"},
		Template{Name: "experiment", Table: table, Partition: "Block", PartitionOrder: []string{"2", "1"}, Rest: "break"},
	)
	refs, err := Build([]Entry{Literal("experiment")}, phases, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	got := strings.Join(ids(refs), ",")
	if got != "experiment#1,break,experiment#0,experiment#2" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestBuildRejectsMismatchedPartitionOrder(t *testing.T) {
	cases := []struct {
		name  string
		order []string
	}{
		{name: "omits block", order: []string{"1"}},
		{name: "unknown block", order: []string{"1", "3"}},
		{name: "empty block added", order: []string{"1", "2", "3"}},
		{name: "duplicate block", order: []string{"1", "2", "1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table := testTable(t, "stimuli.csv", "1", "2", "1", "2")
			phases := NewPhases(
				[]string{"break"},
				Template{Name: "experiment", Table: table, Partition: "Block", PartitionOrder: tc.order, Rest: "break"},
			)
			refs, err := Build([]Entry{Randomize("experiment")}, phases, rand.New(rand.NewSource(1)))
			var dataErr *stimulus.DataError
			if !errors.As(err, &dataErr) {
				t.Fatalf("expected DataError, got err=%v refs=%v", err, ids(refs))
			}
			if dataErr.Column != "Block" || dataErr.Table != "stimuli.csv" {
				t.Fatalf("unexpected error details: %+v", dataErr)
			}
		})
	}
}

func TestBlockOrderDefaultsToFirstAppearance(t *testing.T) {
	tmpl := Template{Name: "experiment", Table: testTable(t, "stimuli.csv", "b", "a", "b"), Partition: "Block"}
	got, err := BlockOrder(tmpl)
	if err != nil {
		t.Fatalf("BlockOrder failed: %v", err)
	}
	if strings.Join(got, ",") != "b,a" {
		t.Fatalf("unexpected block order %v", got)
	}
}

func TestBuildErrors(t *testing.T) {
	phases := defaultPhases(t)
	rnd := rand.New(rand.NewSource(1))
	if _, err := Build([]Entry{Literal("missing")}, phases, rnd); !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("expected ErrUnknownPhase, got %v", err)
	}
	if _, err := Build([]Entry{Randomize("intro")}, phases, rnd); !errors.Is(err, ErrBadEntry) {
		t.Fatalf("expected ErrBadEntry, got %v", err)
	}
	if _, err := Build([]Entry{Randomize("experiment")}, phases, nil); err == nil {
		t.Fatalf("expected error without random source")
	}
	bad := NewPhases(nil, Template{Name: "experiment", Table: testTable(t, "s.csv", "1", "2"), Partition: "Block", Rest: "pause"})
	if _, err := Build([]Entry{Literal("experiment")}, bad, rnd); !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("expected ErrUnknownPhase for missing rest phase, got %v", err)
	}
}

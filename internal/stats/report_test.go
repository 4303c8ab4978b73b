package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "stroopread.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func seedSessions(t *testing.T, st *store.Store, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	var ids []int64
	for i := 0; i < n; i++ {
		start := time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Hour)
		rec := model.SessionRecord{
			StartedAt:     start,
			EndedAt:       start.Add(20 * time.Minute),
			ParticipantID: "P1",
			Seed:          int64(i + 1),
			GateMode:      "gated",
			Scores:        map[string]int{"color": 6},
		}
		results := []model.TrialResult{
			{Position: 0, Phase: "color_matching", Item: "1", Key: "Q", Expected: "Q", Correct: true, RTMs: 500},
			{Position: 1, Phase: "experiment", Item: "2", Key: "E", Expected: "W", RTMs: 700,
				Columns: map[string]string{"ID": "P1", "Group": "B"}},
		}
		id, err := st.SaveSession(ctx, rec, results)
		if err != nil {
			t.Fatalf("save session: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestBuildReport(t *testing.T) {
	st := openStore(t)
	ids := seedSessions(t, st, 3)

	cfg := model.StatsConfig{
		Participant: "P1",
		Last:        2,
		CurveWindow: 1,
	}
	report, err := BuildReport(context.Background(), st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.WindowSessionIDs) != 1 || report.WindowSessionIDs[0] != ids[2] {
		t.Fatalf("unexpected window ids %v", report.WindowSessionIDs)
	}
	if len(report.PhasesAll) != 2 || report.PhasesAll[0].Trials != 2 {
		t.Fatalf("unexpected phase aggregates %+v", report.PhasesAll)
	}
	if len(report.PhasesWindow) != 2 || report.PhasesWindow[0].Trials != 1 {
		t.Fatalf("unexpected window aggregates %+v", report.PhasesWindow)
	}
	if report.Scores[ids[2]]["color"] != 6 {
		t.Fatalf("unexpected scores %v", report.Scores)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, cfg.CurveWindow); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Accuracy: 50.00%", "color_matching", "Per-Phase (last 1 sessions)", "Learning Curves", "color=6"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}
}

func TestRenderEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := (Report{}).Render(&buf, 5); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No sessions found." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

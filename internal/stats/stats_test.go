package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/verte-zerg/stroopread/internal/model"
)

func TestAccuracyAndMeanRT(t *testing.T) {
	tests := []struct {
		correct, incorrect int
		want               float64
	}{
		{0, 0, 0},
		{3, 1, 0.75},
		{0, 4, 0},
	}
	for _, tt := range tests {
		if got := Accuracy(tt.correct, tt.incorrect); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("Accuracy(%d, %d) = %v, want %v", tt.correct, tt.incorrect, got, tt.want)
		}
	}
	if got := MeanRT(900, 3); got != 300 {
		t.Fatalf("expected 300, got %v", got)
	}
	if got := MeanRT(900, 0); got != 0 {
		t.Fatalf("expected 0 without samples, got %v", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 1}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{5, 5, 5}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	sessions := []model.SessionAggregate{
		{SessionID: 1, ParticipantID: "P1", Correct: 3, Incorrect: 1, TimedOut: 1, RTSumMs: 1500, RTCount: 3},
		{SessionID: 2, ParticipantID: "P2", Correct: 1, Incorrect: 3, RTSumMs: 500, RTCount: 1},
	}
	if err := RenderSummary(&buf, sessions); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Participants: 2", "Scored trials: 8", "Accuracy: 50.00%", "Mean RT: 500.0 ms", "Timeouts: 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

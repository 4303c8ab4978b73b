// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/stroopread/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Accuracy returns the share of correct answers, or 0 without answers.
func Accuracy(correct, incorrect int) float64 {
	den := float64(correct + incorrect)
	if den <= 0 {
		return 0
	}
	return float64(correct) / den
}

// MeanRT returns the mean response time in milliseconds.
func MeanRT(sumMs, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return float64(sumMs) / float64(count)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints totals across sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	participants := map[string]struct{}{}
	var correct, incorrect, timedOut int
	var rtSum, rtCount int64
	for _, s := range sessions {
		participants[s.ParticipantID] = struct{}{}
		correct += s.Correct
		incorrect += s.Incorrect
		timedOut += s.TimedOut
		rtSum += s.RTSumMs
		rtCount += s.RTCount
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Participants: %d", len(participants)),
		fmt.Sprintf("Scored trials: %d", correct+incorrect),
		fmt.Sprintf("Accuracy: %.2f%%", Accuracy(correct, incorrect)*100),
		fmt.Sprintf("Mean RT: %.1f ms", MeanRT(rtSum, rtCount)),
		fmt.Sprintf("Timeouts: %d", timedOut),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderSessionTable prints one row per session with its final practice
// scores.
func RenderSessionTable(w io.Writer, sessions []model.SessionAggregate, scores map[int64]map[string]int) error {
	if len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Sessions"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		participant := s.ParticipantID
		if participant == "" {
			participant = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.SessionID),
			participant,
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", s.Trials),
			fmt.Sprintf("%.2f%%", Accuracy(s.Correct, s.Incorrect)*100),
			fmt.Sprintf("%.1f", MeanRT(s.RTSumMs, s.RTCount)),
			fmt.Sprintf("%d", s.TimedOut),
			formatScores(scores[s.SessionID]),
		})
	}
	return writeTable(w, sessionColumns, rows)
}

// RenderPhaseTable prints per-phase accuracy and response times.
func RenderPhaseTable(w io.Writer, title string, phases []model.PhaseAggregate) error {
	if len(phases) == 0 {
		_, err := fmt.Fprintln(w, "No trial results found.")
		return err
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	rows := make([][]string, 0, len(phases))
	for _, p := range phases {
		rows = append(rows, []string{
			p.Phase,
			fmt.Sprintf("%d", p.Trials),
			fmt.Sprintf("%.2f%%", Accuracy(p.Correct, p.Incorrect)*100),
			fmt.Sprintf("%.1f", MeanRT(p.RTSumMs, p.RTCount)),
			fmt.Sprintf("%d", p.TimedOut),
			fmt.Sprintf("%d", p.Skipped),
		})
	}
	return writeTable(w, phaseColumns, rows)
}

// RenderCurves prints accuracy and mean RT sparklines across sessions,
// smoothed over window sessions.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	if len(sessions) < 2 {
		return nil
	}
	accs := make([]float64, len(sessions))
	rts := make([]float64, len(sessions))
	for i, s := range sessions {
		accs[i] = Accuracy(s.Correct, s.Incorrect) * 100
		rts[i] = MeanRT(s.RTSumMs, s.RTCount)
	}
	accs = MovingAverage(accs, window)
	rts = MovingAverage(rts, window)
	rows := [][]string{
		{"Accuracy", Sparkline(accs), fmt.Sprintf("%.2f%%", accs[len(accs)-1])},
		{"Mean RT", Sparkline(rts), fmt.Sprintf("%.1f ms", rts[len(rts)-1])},
	}
	if _, err := fmt.Fprintln(w, "Learning Curves"); err != nil {
		return err
	}
	return writeTable(w, curveColumns, rows)
}

func formatScores(scores map[string]int) string {
	if len(scores) == 0 {
		return "-"
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, scores[name])
	}
	return strings.Join(parts, " ")
}

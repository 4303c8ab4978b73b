// Package gate decides when a participant has met a practice criterion.
package gate

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Mode selects between scored and unscored practice.
type Mode string

// Practice modes.
const (
	// Ungated shows every practice row and keeps no score.
	Ungated Mode = "ungated"
	// Gated scores practice and skips the remaining rows once the
	// criterion is met.
	Gated Mode = "gated"
)

// Score counter names used by the default experiment.
const (
	CounterColor  = "color"
	CounterStroop = "stroop"
)

// Default criteria.
const (
	DefaultColorThreshold  = 6
	DefaultStroopThreshold = 10
)

// ParseMode parses a mode name; the empty string means Ungated.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Ungated:
		return Ungated, nil
	case Gated:
		return Gated, nil
	default:
		return "", fmt.Errorf("unknown gate mode %q (expected %q or %q)", s, Gated, Ungated)
	}
}

// ShouldSkip reports whether the criterion is met.
func ShouldSkip(score, threshold int) bool {
	return score >= threshold
}

// Scores holds the session's practice counters. Counters only grow and
// each trial can add at most one point.
type Scores struct {
	mu       sync.Mutex
	counts   map[string]int
	credited map[string]struct{}
}

// NewScores returns zeroed counters.
func NewScores() *Scores {
	return &Scores{counts: map[string]int{}, credited: map[string]struct{}{}}
}

// Get returns the current value of a counter.
func (s *Scores) Get(counter string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[counter]
}

// Credit adds one point to counter for trialID unless that trial was
// already credited. It reports whether the counter changed.
func (s *Scores) Credit(counter, trialID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counter + "\x00" + trialID
	if _, ok := s.credited[key]; ok {
		return false
	}
	s.credited[key] = struct{}{}
	s.counts[counter]++
	return true
}

// Snapshot copies all counters.
func (s *Scores) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// String renders counters as "name=value" pairs in name order.
func (s *Scores) String() string {
	snap := s.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, snap[name]))
	}
	return strings.Join(parts, " ")
}

// Gate applies practice criteria to session scores.
type Gate struct {
	mode       Mode
	thresholds map[string]int
	scores     *Scores

	mu  sync.Mutex
	met map[string]bool
}

// New returns a Gate over scores. Counters without a threshold never skip.
func New(mode Mode, thresholds map[string]int, scores *Scores) *Gate {
	t := make(map[string]int, len(thresholds))
	for k, v := range thresholds {
		t[k] = v
	}
	if scores == nil {
		scores = NewScores()
	}
	return &Gate{mode: mode, thresholds: t, scores: scores, met: map[string]bool{}}
}

// Mode returns the gate mode.
func (g *Gate) Mode() Mode {
	return g.mode
}

// Scores returns the underlying counters.
func (g *Gate) Scores() *Scores {
	return g.scores
}

// Threshold returns the criterion for counter.
func (g *Gate) Threshold(counter string) (int, bool) {
	t, ok := g.thresholds[counter]
	return t, ok
}

// Skip reports whether the next trial scored on counter should be skipped.
// Once it returns true for a counter it keeps returning true.
func (g *Gate) Skip(counter string) bool {
	if g.mode != Gated || counter == "" {
		return false
	}
	threshold, ok := g.thresholds[counter]
	if !ok {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.met[counter] {
		return true
	}
	if ShouldSkip(g.scores.Get(counter), threshold) {
		g.met[counter] = true
		return true
	}
	return false
}

// Record scores one trial response. Only correct responses in gated mode
// change the counter, and only once per trial.
func (g *Gate) Record(counter, trialID string, correct bool) bool {
	if g.mode != Gated || counter == "" || !correct {
		return false
	}
	return g.scores.Credit(counter, trialID)
}

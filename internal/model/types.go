// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Config defines session run settings.
type Config struct {
	StimuliDir     string
	ExperimentPath string
	GateMode       string
	Seed           int64
	LogLevel       string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Participant string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Row is one immutable record of a stimulus table.
type Row struct {
	// Index is the zero-based position of the row in its source table.
	Index int
	// Line is the 1-based line number in the source file (header is line 1).
	Line int

	Word           string
	FontColourCode string
	Button         string
	TrialType      string
	Sentence       string
	Question       string
	Answer         string
	Block          string
	Group          string
	Condition      string
	Item           string

	Columns map[string]string
}

// Value returns the raw value of a named column.
func (r Row) Value(column string) string {
	return r.Columns[column]
}

// TrialRef points at one trial of a materialized session sequence.
type TrialRef struct {
	Phase      string
	Index      int // row index in the bound table, -1 for fixed phases
	Partition  string
	Randomized bool
}

// Templated reports whether the trial was instantiated from a stimulus row.
func (t TrialRef) Templated() bool {
	return t.Index >= 0
}

// ID returns a session-unique trial identifier.
func (t TrialRef) ID() string {
	if !t.Templated() {
		return t.Phase
	}
	return fmt.Sprintf("%s#%d", t.Phase, t.Index)
}

// StepKind identifies a presentation primitive.
type StepKind string

// Presentation step kinds.
const (
	StepText     StepKind = "text"
	StepFixation StepKind = "fixation"
	StepWord     StepKind = "word"
	StepKey      StepKind = "key"
	StepSentence StepKind = "sentence"
	StepQuestion StepKind = "question"
	StepFeedback StepKind = "feedback"
	StepConsent  StepKind = "consent"
	StepInput    StepKind = "input"
)

// Step describes one thing shown to, or collected from, the participant.
type Step struct {
	ID       string
	Kind     StepKind
	Text     string
	Color    string
	Keys     string
	Options  []string
	Reveal   int
	Warn     bool
	Correct  bool
	Duration time.Duration
	Progress Progress
}

// Progress reports where the current trial sits in the counted sequence.
type Progress struct {
	Current int
	Total   int
}

// Response is the terminal outcome of a response-collecting step.
type Response struct {
	Key      string
	Text     string
	TimedOut bool
	RT       time.Duration
}

// TrialResult is one line of the results log.
type TrialResult struct {
	Position       int
	Phase          string
	Item           string
	Branch         string
	Key            string
	Expected       string
	Correct        bool
	TimedOut       bool
	RTMs           int64
	Skipped        bool
	Answer         string
	AnswerExpected string
	AnswerCorrect  bool
	SentenceRTs    []int64
	Columns        map[string]string
}

// SessionRecord captures a completed or aborted session.
type SessionRecord struct {
	StartedAt     time.Time
	EndedAt       time.Time
	ParticipantID string
	Seed          int64
	GateMode      string
	Scores        map[string]int
	Aborted       bool
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	SessionID     int64
	ParticipantID string
	EndedAt       time.Time
	Trials        int
	Correct       int
	Incorrect     int
	TimedOut      int
	RTSumMs       int64
	RTCount       int64
}

// PhaseAggregate aggregates scored trials of one phase across sessions.
type PhaseAggregate struct {
	Phase     string
	Trials    int
	Correct   int
	Incorrect int
	TimedOut  int
	Skipped   int
	RTSumMs   int64
	RTCount   int64
}

// TrialRecord is a stored trial result together with its session.
type TrialRecord struct {
	SessionID     int64
	ParticipantID string
	Seed          int64
	TrialResult
}

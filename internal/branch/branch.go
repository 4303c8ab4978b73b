// Package branch picks the step order of combined Stroop and reading trials.
package branch

import (
	"time"

	"github.com/verte-zerg/stroopread/internal/model"
)

// WordFirstTag is the only trial type that puts the Stroop word first.
const WordFirstTag = "Stroop_Sentence"

// Order is the presentation order of a combined trial.
type Order int

// Presentation orders.
const (
	SentenceFirst Order = iota
	WordFirst
)

func (o Order) String() string {
	if o == WordFirst {
		return "word_first"
	}
	return "sentence_first"
}

// Select maps a trial type tag to an order. Matching is exact and
// case-sensitive; every other tag, including "", reads the sentence first.
func Select(tag string) Order {
	if tag == WordFirstTag {
		return WordFirst
	}
	return SentenceFirst
}

// Timing holds the per-step timing contract of combined trials.
type Timing struct {
	Fixation     time.Duration
	WordDeadline time.Duration // zero waits for the key without a deadline
}

// DefaultTiming returns the timings used when an experiment sets none.
func DefaultTiming() Timing {
	return Timing{Fixation: 500 * time.Millisecond}
}

// Steps returns the ordered step list for a row. Response collection
// follows the word and question steps; the sentence step is expanded into
// one reveal per word by the runner.
func Steps(order Order, row model.Row, keys string, timing Timing) []model.Step {
	fixation := func(id string) model.Step {
		return model.Step{ID: id, Kind: model.StepFixation, Text: "+", Duration: timing.Fixation}
	}
	word := []model.Step{
		{ID: "stroop", Kind: model.StepWord, Text: row.Word, Color: row.FontColourCode, Keys: keys, Duration: timing.WordDeadline},
		{ID: "stroop_key", Kind: model.StepKey, Keys: keys, Duration: timing.WordDeadline},
	}
	reading := []model.Step{
		{ID: "sentence", Kind: model.StepSentence, Text: row.Sentence, Keys: " ", Reveal: -1},
		{ID: "question", Kind: model.StepQuestion, Text: row.Question, Options: []string{"yes", "no"}},
	}

	steps := make([]model.Step, 0, 6)
	if order == WordFirst {
		steps = append(steps, fixation("fixation_1"))
		steps = append(steps, word...)
		steps = append(steps, fixation("fixation_2"))
		steps = append(steps, reading...)
		return steps
	}
	steps = append(steps, fixation("fixation_1"))
	steps = append(steps, reading...)
	steps = append(steps, fixation("fixation_2"))
	steps = append(steps, word...)
	return steps
}

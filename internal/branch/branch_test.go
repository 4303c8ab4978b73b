package branch

import (
	"testing"

	"github.com/verte-zerg/stroopread/internal/model"
)

func TestSelect(t *testing.T) {
	cases := []struct {
		tag  string
		want string
	}{
		{tag: "Stroop_Sentence", want: "word_first"},
		{tag: "Sentence_Stroop", want: "sentence_first"},
		{tag: "", want: "sentence_first"},
		{tag: "stroop_sentence", want: "sentence_first"},
		{tag: "Stroop_Sentence ", want: "sentence_first"},
		{tag: "Stroop", want: "sentence_first"},
	}
	for _, tc := range cases {
		if got := Select(tc.tag).String(); got != tc.want {
			t.Fatalf("Select(%q) = %s, want %s", tc.tag, got, tc.want)
		}
	}
}

func TestStepsOrder(t *testing.T) {
	row := model.Row{Word: "RED", FontColourCode: "blue", Sentence: "The cat sat.", Question: "Did it sit?"}
	kinds := func(steps []model.Step) []model.StepKind {
		out := make([]model.StepKind, len(steps))
		for i, s := range steps {
			out[i] = s.Kind
		}
		return out
	}

	wordFirst := kinds(Steps(WordFirst, row, "QWE", DefaultTiming()))
	wantWord := []model.StepKind{model.StepFixation, model.StepWord, model.StepKey, model.StepFixation, model.StepSentence, model.StepQuestion}
	assertKinds(t, wordFirst, wantWord)

	sentenceFirst := kinds(Steps(SentenceFirst, row, "QWE", DefaultTiming()))
	wantSentence := []model.StepKind{model.StepFixation, model.StepSentence, model.StepQuestion, model.StepFixation, model.StepWord, model.StepKey}
	assertKinds(t, sentenceFirst, wantSentence)
}

func TestStepsCarryRowAndTiming(t *testing.T) {
	row := model.Row{Word: "GREEN", FontColourCode: "red"}
	timing := Timing{Fixation: 300, WordDeadline: 2000}
	steps := Steps(WordFirst, row, "QWE", timing)
	if steps[0].Duration != 300 {
		t.Fatalf("expected fixation duration 300, got %v", steps[0].Duration)
	}
	if steps[1].Text != "GREEN" || steps[1].Color != "red" {
		t.Fatalf("unexpected word step: %+v", steps[1])
	}
	if steps[2].Duration != 2000 || steps[2].Keys != "QWE" {
		t.Fatalf("unexpected key step: %+v", steps[2])
	}
}

func assertKinds(t *testing.T, got, want []model.StepKind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

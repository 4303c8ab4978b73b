package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/stroopread/internal/branch"
	"github.com/verte-zerg/stroopread/internal/experiment"
	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/present"
)

// Feedback texts shown after scored practice responses.
const (
	FeedbackCorrect   = "CORRECT!"
	FeedbackIncorrect = "INCORRECT!"
)

const (
	consentKeys  = "YN"
	questionKeys = "YN"
	revealKeys   = " "
)

func (r *Runner) runFixed(ctx context.Context, phase experiment.Phase) (model.TrialResult, error) {
	switch phase.Kind {
	case experiment.PhaseIntro:
		return r.runIntro(ctx, phase)
	case experiment.PhaseInstructions, experiment.PhaseBreak, experiment.PhaseFarewell:
		step := r.stepFor(model.Step{ID: phase.Name, Kind: model.StepText, Text: phase.Text, Keys: phase.Keys})
		resp, err := r.show(ctx, step, 0)
		if err != nil {
			return model.TrialResult{}, err
		}
		return model.TrialResult{Key: resp.Key, RTMs: resp.RT.Milliseconds()}, nil
	default:
		return model.TrialResult{}, fmt.Errorf("phase %q: unsupported kind %q", phase.Name, phase.Kind)
	}
}

// runIntro shows the welcome text, blocks on the consent and demographic
// confirmations until they are completed, then asks for the participant ID.
func (r *Runner) runIntro(ctx context.Context, phase experiment.Phase) (model.TrialResult, error) {
	if phase.Text != "" {
		step := r.stepFor(model.Step{ID: phase.Name, Kind: model.StepText, Text: phase.Text, Keys: phase.Keys})
		if _, err := r.show(ctx, step, 0); err != nil {
			return model.TrialResult{}, err
		}
	}
	for _, form := range []struct{ id, text string }{
		{id: "consent", text: phase.Consent},
		{id: "demographic", text: phase.Demographic},
	} {
		if form.text == "" {
			continue
		}
		if err := r.confirm(ctx, form.id, form.text); err != nil {
			return model.TrialResult{}, err
		}
	}
	if phase.IDPrompt == "" {
		return model.TrialResult{}, nil
	}
	step := r.stepFor(model.Step{ID: "participant_id", Kind: model.StepInput, Text: phase.IDPrompt})
	for {
		resp, err := r.show(ctx, step, 0)
		if err != nil {
			return model.TrialResult{}, err
		}
		if id := strings.TrimSpace(resp.Text); id != "" {
			r.setParticipant(id)
			return model.TrialResult{RTMs: resp.RT.Milliseconds()}, nil
		}
		step.Warn = true
	}
}

func (r *Runner) confirm(ctx context.Context, id, text string) error {
	step := r.stepFor(model.Step{ID: id, Kind: model.StepConsent, Text: text, Keys: consentKeys})
	for {
		resp, err := r.show(ctx, step, 0)
		if err != nil {
			return err
		}
		if strings.EqualFold(resp.Key, "y") {
			return nil
		}
		step.Warn = true
		r.log.Info("form incomplete", "form", id)
	}
}

func (r *Runner) runTemplated(ctx context.Context, ref model.TrialRef, tmpl experiment.Template, row model.Row) (model.TrialResult, error) {
	switch tmpl.Kind {
	case experiment.TemplateMatching, experiment.TemplateStroop:
		return r.runPractice(ctx, ref, tmpl, row)
	case experiment.TemplateCombined:
		return r.runCombined(ctx, ref, tmpl, row)
	default:
		return model.TrialResult{}, fmt.Errorf("template %q: unsupported kind %q", tmpl.Name, tmpl.Kind)
	}
}

// runPractice shows one coloured word, scores the key against the row's
// Button and optionally shows feedback.
func (r *Runner) runPractice(ctx context.Context, ref model.TrialRef, tmpl experiment.Template, row model.Row) (model.TrialResult, error) {
	deadline := ms(tmpl.DeadlineMs)
	word := r.stepFor(model.Step{ID: "word", Kind: model.StepWord, Text: row.Word, Color: row.FontColourCode, Keys: tmpl.Keys, Duration: deadline})
	if err := r.presenter.Present(ctx, word); err != nil {
		return model.TrialResult{}, err
	}
	key := r.stepFor(model.Step{ID: "word_key", Kind: model.StepKey, Keys: tmpl.Keys, Duration: deadline})
	resp, err := r.presenter.AwaitResponse(ctx, key, deadline)
	if err != nil {
		return model.TrialResult{}, err
	}
	if err := r.presenter.Dismiss(ctx, word.ID); err != nil {
		return model.TrialResult{}, err
	}

	res := keyResult(resp, row)
	r.gate.Record(tmpl.Counter, ref.ID(), res.Correct)

	if tmpl.Feedback {
		if err := r.feedback(ctx, res.Correct, ms(tmpl.FeedbackMs)); err != nil {
			return model.TrialResult{}, err
		}
	}
	return res, nil
}

// runCombined runs the branch picked by the row's trial type.
func (r *Runner) runCombined(ctx context.Context, ref model.TrialRef, tmpl experiment.Template, row model.Row) (model.TrialResult, error) {
	order := branch.Select(row.TrialType)
	timing := branch.Timing{Fixation: ms(tmpl.FixationMs), WordDeadline: ms(tmpl.DeadlineMs)}
	res := model.TrialResult{Item: row.Item, Branch: order.String(), Expected: row.Button}

	for _, step := range branch.Steps(order, row, tmpl.Keys, timing) {
		step = r.stepFor(step)
		switch step.Kind {
		case model.StepFixation:
			if err := r.presenter.Present(ctx, step); err != nil {
				return res, err
			}
			if err := present.Sleep(ctx, step.Duration); err != nil {
				return res, err
			}
			if err := r.presenter.Dismiss(ctx, step.ID); err != nil {
				return res, err
			}
		case model.StepWord:
			if err := r.presenter.Present(ctx, step); err != nil {
				return res, err
			}
		case model.StepKey:
			resp, err := r.presenter.AwaitResponse(ctx, step, step.Duration)
			if err != nil {
				return res, err
			}
			if err := r.presenter.Dismiss(ctx, "stroop"); err != nil {
				return res, err
			}
			kr := keyResult(resp, row)
			res.Key, res.Correct, res.TimedOut, res.RTMs = kr.Key, kr.Correct, kr.TimedOut, kr.RTMs
			r.gate.Record(tmpl.Counter, ref.ID(), res.Correct)
		case model.StepSentence:
			rts, err := r.readSentence(ctx, step)
			if err != nil {
				return res, err
			}
			res.SentenceRTs = rts
		case model.StepQuestion:
			step.Keys = questionKeys
			resp, err := r.show(ctx, step, 0)
			if err != nil {
				return res, err
			}
			res.Answer = answerFor(resp.Key)
			res.AnswerExpected = row.Answer
			res.AnswerCorrect = row.Answer != "" && strings.EqualFold(res.Answer, row.Answer)
		}
	}
	return res, nil
}

// readSentence shows the sentence as dashes and reveals one word per
// space press, returning the reading time of each word.
func (r *Runner) readSentence(ctx context.Context, step model.Step) ([]int64, error) {
	words := strings.Fields(step.Text)
	step.Keys = revealKeys
	step.Reveal = -1
	if err := r.presenter.Present(ctx, step); err != nil {
		return nil, err
	}
	if _, err := r.presenter.AwaitResponse(ctx, step, 0); err != nil {
		return nil, err
	}
	rts := make([]int64, 0, len(words))
	for i := range words {
		step.Reveal = i
		if err := r.presenter.Present(ctx, step); err != nil {
			return nil, err
		}
		resp, err := r.presenter.AwaitResponse(ctx, step, 0)
		if err != nil {
			return nil, err
		}
		rts = append(rts, resp.RT.Milliseconds())
	}
	if err := r.presenter.Dismiss(ctx, step.ID); err != nil {
		return nil, err
	}
	return rts, nil
}

func (r *Runner) feedback(ctx context.Context, correct bool, d time.Duration) error {
	text := FeedbackIncorrect
	if correct {
		text = FeedbackCorrect
	}
	step := r.stepFor(model.Step{ID: "feedback", Kind: model.StepFeedback, Text: text, Correct: correct, Duration: d})
	if err := r.presenter.Present(ctx, step); err != nil {
		return err
	}
	if err := present.Sleep(ctx, d); err != nil {
		return err
	}
	return r.presenter.Dismiss(ctx, step.ID)
}

// show presents a step, waits for its response and dismisses it.
func (r *Runner) show(ctx context.Context, step model.Step, timeout time.Duration) (model.Response, error) {
	if err := r.presenter.Present(ctx, step); err != nil {
		return model.Response{}, err
	}
	resp, err := r.presenter.AwaitResponse(ctx, step, timeout)
	if err != nil {
		return model.Response{}, err
	}
	if err := r.presenter.Dismiss(ctx, step.ID); err != nil {
		return model.Response{}, err
	}
	return resp, nil
}

func (r *Runner) stepFor(step model.Step) model.Step {
	step.Progress = r.progress
	return step
}

// keyResult scores a key response against the row's expected Button. A
// timeout is never correct.
func keyResult(resp model.Response, row model.Row) model.TrialResult {
	res := model.TrialResult{
		Item:     row.Item,
		Key:      resp.Key,
		Expected: row.Button,
		TimedOut: resp.TimedOut,
		RTMs:     resp.RT.Milliseconds(),
	}
	res.Correct = !resp.TimedOut && row.Button != "" && strings.EqualFold(resp.Key, row.Button)
	return res
}

func answerFor(key string) string {
	switch strings.ToUpper(key) {
	case "Y":
		return "yes"
	case "N":
		return "no"
	default:
		return key
	}
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Package session runs an experiment sequence against a presenter.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/stroopread/internal/experiment"
	"github.com/verte-zerg/stroopread/internal/gate"
	"github.com/verte-zerg/stroopread/internal/logging"
	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/present"
	"github.com/verte-zerg/stroopread/internal/sequence"
)

// Sink persists a session and its results log.
type Sink interface {
	SaveSession(ctx context.Context, rec model.SessionRecord, results []model.TrialResult) (int64, error)
}

// Options configures a Runner.
type Options struct {
	// Seed drives trial order; zero picks a clock seed, which is recorded.
	Seed   int64
	Sink   Sink
	Logger *slog.Logger
	Now    func() time.Time
}

// Summary describes a finished or aborted session.
type Summary struct {
	SessionID   int64
	Participant string
	Seed        int64
	Scores      map[string]int
	Results     []model.TrialResult
	Saved       bool
	Aborted     bool
}

// Runner presents one session's trials strictly in sequence.
type Runner struct {
	bound     *experiment.Bound
	presenter present.Presenter
	gate      *gate.Gate
	sink      Sink
	base      *slog.Logger
	log       *slog.Logger
	now       func() time.Time
	seed      int64
	refs      []model.TrialRef

	startedAt   time.Time
	participant string
	results     []model.TrialResult
	saved       bool
	sessionID   int64
	progress    model.Progress
}

// New materializes the sequence and prepares a runner.
func New(bound *experiment.Bound, p present.Presenter, opts Options) (*Runner, error) {
	if bound == nil || p == nil {
		return nil, fmt.Errorf("session needs an experiment and a presenter")
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	refs, err := sequence.Build(bound.Entries, bound.Phases, sequence.NewRand(seed))
	if err != nil {
		return nil, fmt.Errorf("failed to build sequence: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	r := &Runner{
		bound:     bound,
		presenter: p,
		gate:      gate.New(bound.Mode, bound.Def.Gate.Thresholds, gate.NewScores()),
		sink:      opts.Sink,
		base:      logger,
		log:       logger.With(slog.Int64("seed", seed)),
		now:       now,
		seed:      seed,
		refs:      refs,
	}
	r.progress.Total = r.countedTrials()
	return r, nil
}

// Sequence returns the materialized trial order.
func (r *Runner) Sequence() []model.TrialRef {
	return append([]model.TrialRef(nil), r.refs...)
}

// Seed returns the seed the sequence was built with.
func (r *Runner) Seed() int64 {
	return r.seed
}

// Gate returns the session's practice gate.
func (r *Runner) Gate() *gate.Gate {
	return r.gate
}

// Run presents every trial in order. Results are saved at the
// send_results phase, or at the end when the sequence has none. An aborted
// session saves what it collected, marked as aborted.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.startedAt = r.now()
	r.log.Info("session started", "trials", len(r.refs), "gate_mode", string(r.gate.Mode()))

	for i, ref := range r.refs {
		if err := r.step(ctx, i, ref); err != nil {
			aborted := errors.Is(err, present.ErrAborted) || errors.Is(err, context.Canceled)
			r.log.Warn("session stopped", "position", i, "phase", ref.Phase, "error", err.Error())
			if !r.saved {
				if serr := r.save(context.WithoutCancel(ctx), true); serr != nil {
					err = errors.Join(err, serr)
				}
			}
			return r.summary(aborted), err
		}
	}
	if !r.saved {
		if err := r.save(ctx, false); err != nil {
			return r.summary(false), err
		}
	}
	r.log.Info("session finished", "scores", r.gate.Scores().String())
	return r.summary(false), nil
}

func (r *Runner) step(ctx context.Context, position int, ref model.TrialRef) error {
	if !ref.Templated() {
		phase, ok := r.bound.Def.Phase(ref.Phase)
		if !ok {
			return fmt.Errorf("%w: %q", sequence.ErrUnknownPhase, ref.Phase)
		}
		if phase.CountsForProgress() {
			r.progress.Current++
		}
		if phase.Kind == experiment.PhaseSendResults {
			return r.save(ctx, false)
		}
		if err := present.Sleep(ctx, r.delay()); err != nil {
			return err
		}
		res, err := r.runFixed(ctx, phase)
		if err != nil {
			return err
		}
		r.record(position, ref, res)
		return nil
	}

	r.progress.Current++
	tmpl, ok := r.bound.Def.Template(ref.Phase)
	if !ok {
		return fmt.Errorf("%w: %q", sequence.ErrUnknownPhase, ref.Phase)
	}
	table := r.bound.Tables[ref.Phase]
	row, ok := table.Row(ref.Index)
	if !ok {
		return fmt.Errorf("template %q has no row %d", ref.Phase, ref.Index)
	}

	if r.gate.Skip(tmpl.Counter) {
		res := model.TrialResult{Phase: ref.Phase, Item: row.Item, Skipped: true}
		res.Columns = ExtraColumns(r.participant, &row, tmpl.Log)
		r.record(position, ref, res)
		return nil
	}
	if err := present.Sleep(ctx, r.delay()); err != nil {
		return err
	}
	res, err := r.runTemplated(ctx, ref, tmpl, row)
	if err != nil {
		return err
	}
	res.Columns = ExtraColumns(r.participant, &row, tmpl.Log)
	r.record(position, ref, res)
	return nil
}

func (r *Runner) record(position int, ref model.TrialRef, res model.TrialResult) {
	res.Position = position
	res.Phase = ref.Phase
	if res.Columns == nil {
		res.Columns = ExtraColumns(r.participant, nil, nil)
	}
	r.results = append(r.results, res)
	logging.WithPhase(r.log, ref.Phase).Debug("trial finished",
		"position", position,
		"trial", ref.ID(),
		"skipped", res.Skipped,
		"correct", res.Correct,
		"timed_out", res.TimedOut,
		"rt_ms", res.RTMs,
	)
}

func (r *Runner) save(ctx context.Context, aborted bool) error {
	if r.sink == nil {
		r.saved = true
		return nil
	}
	rec := model.SessionRecord{
		StartedAt:     r.startedAt,
		EndedAt:       r.now(),
		ParticipantID: r.participant,
		Seed:          r.seed,
		GateMode:      string(r.gate.Mode()),
		Scores:        r.gate.Scores().Snapshot(),
		Aborted:       aborted,
	}
	results := append([]model.TrialResult(nil), r.results...)
	id, err := r.sink.SaveSession(ctx, rec, results)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	r.sessionID = id
	r.saved = true
	r.log.Info("results saved", "session_id", id, "trials", len(results), "aborted", aborted)
	return nil
}

func (r *Runner) summary(aborted bool) Summary {
	return Summary{
		SessionID:   r.sessionID,
		Participant: r.participant,
		Seed:        r.seed,
		Scores:      r.gate.Scores().Snapshot(),
		Results:     append([]model.TrialResult(nil), r.results...),
		Saved:       r.saved && r.sink != nil,
		Aborted:     aborted,
	}
}

func (r *Runner) setParticipant(id string) {
	r.participant = id
	r.log = logging.WithSession(r.base, r.seed, id)
}

func (r *Runner) delay() time.Duration {
	return time.Duration(r.bound.Def.DelayMs) * time.Millisecond
}

func (r *Runner) countedTrials() int {
	total := 0
	for _, ref := range r.refs {
		if ref.Templated() {
			total++
			continue
		}
		if phase, ok := r.bound.Def.Phase(ref.Phase); ok && phase.CountsForProgress() {
			total++
		}
	}
	return total
}

package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	WindowSessionIDs []int64
	Scores           map[int64]map[string]int
	PhasesAll        []model.PhaseAggregate
	PhasesWindow     []model.PhaseAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	scores, err := st.ListSessionScores(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	phasesAll, err := st.ListPhaseAggregates(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	phasesWindow, err := st.ListPhaseAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		Scores:           scores,
		PhasesAll:        phasesAll,
		PhasesWindow:     phasesWindow,
	}, nil
}

// Render writes the full text report.
func (r Report) Render(w io.Writer, window int) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderSessionTable(w, r.Sessions, r.Scores); err != nil {
		return err
	}
	if err := RenderPhaseTable(w, "Per-Phase", r.PhasesAll); err != nil {
		return err
	}
	if len(r.WindowSessionIDs) < len(r.Sessions) {
		title := fmt.Sprintf("Per-Phase (last %d sessions)", len(r.WindowSessionIDs))
		if err := RenderPhaseTable(w, title, r.PhasesWindow); err != nil {
			return err
		}
	}
	return RenderCurves(w, r.Sessions, window)
}

func sessionIDs(sessions []model.SessionAggregate) []int64 {
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []int64 {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}

package stats

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/store"
)

var exportHeader = []string{
	"session_id", "participant", "seed", "position", "phase", "item", "branch",
	"key", "expected", "correct", "timed_out", "rt_ms", "skipped",
	"answer", "answer_expected", "answer_correct", "sentence_rts",
}

// Export writes the results log of the sessions matching cfg as CSV.
func Export(ctx context.Context, st *store.Store, cfg model.StatsConfig, w io.Writer) (int, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return 0, err
	}
	ids := sessionIDs(sessions)
	records, err := st.ListTrialResults(ctx, ids)
	if err != nil {
		return 0, err
	}
	columns, err := st.ColumnNames(ctx, ids)
	if err != nil {
		return 0, err
	}
	return len(records), WriteCSV(w, records, columns)
}

// WriteCSV writes trial records with one trailing column per extra column
// name. Missing extra values are left empty.
func WriteCSV(w io.Writer, records []model.TrialRecord, columns []string) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), exportHeader...), columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.SessionID, 10),
			rec.ParticipantID,
			strconv.FormatInt(rec.Seed, 10),
			strconv.Itoa(rec.Position),
			rec.Phase,
			rec.Item,
			rec.Branch,
			rec.Key,
			rec.Expected,
			flag(rec.Correct),
			flag(rec.TimedOut),
			strconv.FormatInt(rec.RTMs, 10),
			flag(rec.Skipped),
			rec.Answer,
			rec.AnswerExpected,
			flag(rec.AnswerCorrect),
			formatRTs(rec.SentenceRTs),
		}
		for _, col := range columns {
			row = append(row, rec.Columns[col])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func formatRTs(rts []int64) string {
	parts := make([]string, len(rts))
	for i, rt := range rts {
		parts[i] = strconv.FormatInt(rt, 10)
	}
	return strings.Join(parts, " ")
}

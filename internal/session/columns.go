package session

import "github.com/verte-zerg/stroopread/internal/model"

// ColParticipant is the results column holding the participant ID.
const ColParticipant = "ID"

// ExtraColumns returns the extra results columns logged for a trial: the
// participant ID on every trial plus the requested row columns that the
// row's table declares.
func ExtraColumns(participant string, row *model.Row, columns []string) map[string]string {
	out := map[string]string{ColParticipant: participant}
	if row == nil {
		return out
	}
	for _, col := range columns {
		if v, ok := row.Columns[col]; ok {
			out[col] = v
		}
	}
	return out
}

// Package store handles SQLite persistence of sessions and results logs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/stroopread/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			participant_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			gate_mode TEXT NOT NULL,
			aborted INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_scores (
			session_id INTEGER NOT NULL,
			counter TEXT NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (session_id, counter)
		);`,
		`CREATE TABLE IF NOT EXISTS trial_results (
			session_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			phase TEXT NOT NULL,
			item TEXT NOT NULL,
			branch TEXT NOT NULL,
			key TEXT NOT NULL,
			expected TEXT NOT NULL,
			correct INTEGER NOT NULL,
			timed_out INTEGER NOT NULL,
			rt_ms INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			answer TEXT NOT NULL,
			answer_expected TEXT NOT NULL,
			answer_correct INTEGER NOT NULL,
			sentence_rts TEXT NOT NULL,
			PRIMARY KEY (session_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS trial_columns (
			session_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (session_id, position, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_participant ON sessions(participant_id);`,
		`CREATE INDEX IF NOT EXISTS idx_trial_results_phase ON trial_results(phase);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSession stores a session, its final scores and its results log in
// one transaction.
func (s *Store) SaveSession(ctx context.Context, rec model.SessionRecord, results []model.TrialResult) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, participant_id, seed, gate_mode, aborted)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		rec.ParticipantID,
		rec.Seed,
		rec.GateMode,
		boolInt(rec.Aborted),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for counter, score := range rec.Scores {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO session_scores (session_id, counter, score) VALUES (?, ?, ?)`,
			id, counter, score); err != nil {
			return 0, err
		}
	}

	if len(results) > 0 {
		if err = insertResults(ctx, tx, id, results); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func insertResults(ctx context.Context, tx *sql.Tx, id int64, results []model.TrialResult) error {
	trialStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trial_results (session_id, position, phase, item, branch, key, expected, correct, timed_out, rt_ms, skipped, answer, answer_expected, answer_correct, sentence_rts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := trialStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	colStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trial_columns (session_id, position, name, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := colStmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	for _, r := range results {
		if _, err := trialStmt.ExecContext(ctx, id, r.Position, r.Phase, r.Item, r.Branch, r.Key, r.Expected,
			boolInt(r.Correct), boolInt(r.TimedOut), r.RTMs, boolInt(r.Skipped),
			r.Answer, r.AnswerExpected, boolInt(r.AnswerCorrect), joinRTs(r.SentenceRTs)); err != nil {
			return err
		}
		for name, value := range r.Columns {
			if _, err := colStmt.ExecContext(ctx, id, r.Position, name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// scoredTrial restricts aggregates to answered word trials.
const scoredTrial = `t.expected <> '' AND t.skipped = 0`

// ListSessions returns session aggregates filtered by stats config, oldest
// first. Last keeps only the most recent sessions.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Participant != "" {
		clauses = append(clauses, "s.participant_id = ?")
		args = append(args, cfg.Participant)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "s.ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	limit := ""
	if cfg.Last > 0 {
		limit = "LIMIT ?"
		args = append(args, cfg.Last)
	}
	query := fmt.Sprintf(`SELECT s.id, s.participant_id, s.ended_at,
		COUNT(t.position),
		COALESCE(SUM(t.correct), 0),
		COALESCE(SUM(CASE WHEN t.correct = 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(t.timed_out), 0),
		COALESCE(SUM(CASE WHEN t.timed_out = 0 THEN t.rt_ms ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN t.timed_out = 0 THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN trial_results t ON t.session_id = s.id AND %s
		WHERE %s
		GROUP BY s.id
		ORDER BY s.ended_at DESC, s.id DESC
		%s`, scoredTrial, strings.Join(clauses, " AND "), limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &agg.ParticipantID, &endedAt, &agg.Trials, &agg.Correct,
			&agg.Incorrect, &agg.TimedOut, &agg.RTSumMs, &agg.RTCount); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
	return sessions, nil
}

// ListPhaseAggregates aggregates word trials per phase across sessions, in
// order of first appearance.
func (s *Store) ListPhaseAggregates(ctx context.Context, sessionIDs []int64) ([]model.PhaseAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(sessionIDs)
	query := fmt.Sprintf(`SELECT phase,
		SUM(CASE WHEN skipped = 0 THEN 1 ELSE 0 END),
		SUM(CASE WHEN skipped = 0 THEN correct ELSE 0 END),
		SUM(CASE WHEN skipped = 0 AND correct = 0 THEN 1 ELSE 0 END),
		SUM(timed_out),
		SUM(skipped),
		SUM(CASE WHEN skipped = 0 AND timed_out = 0 THEN rt_ms ELSE 0 END),
		SUM(CASE WHEN skipped = 0 AND timed_out = 0 THEN 1 ELSE 0 END)
		FROM trial_results
		WHERE session_id IN (%s) AND expected <> ''
		GROUP BY phase
		ORDER BY MIN(position), phase`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.PhaseAggregate
	for rows.Next() {
		var agg model.PhaseAggregate
		if err := rows.Scan(&agg.Phase, &agg.Trials, &agg.Correct, &agg.Incorrect, &agg.TimedOut,
			&agg.Skipped, &agg.RTSumMs, &agg.RTCount); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSessionScores returns the final practice scores of each session.
func (s *Store) ListSessionScores(ctx context.Context, sessionIDs []int64) (map[int64]map[string]int, error) {
	result := map[int64]map[string]int{}
	if len(sessionIDs) == 0 {
		return result, nil
	}
	placeholders, args := inClause(sessionIDs)
	query := fmt.Sprintf(`SELECT session_id, counter, score
		FROM session_scores
		WHERE session_id IN (%s)`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var sessionID int64
		var counter string
		var score int
		if err := rows.Scan(&sessionID, &counter, &score); err != nil {
			return nil, err
		}
		if _, ok := result[sessionID]; !ok {
			result[sessionID] = map[string]int{}
		}
		result[sessionID][counter] = score
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListTrialResults returns the full results log of the given sessions,
// ordered by session and position, with extra columns attached.
func (s *Store) ListTrialResults(ctx context.Context, sessionIDs []int64) ([]model.TrialRecord, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(sessionIDs)
	query := fmt.Sprintf(`SELECT t.session_id, s.participant_id, s.seed, t.position, t.phase, t.item, t.branch,
		t.key, t.expected, t.correct, t.timed_out, t.rt_ms, t.skipped, t.answer, t.answer_expected,
		t.answer_correct, t.sentence_rts
		FROM trial_results t
		JOIN sessions s ON s.id = t.session_id
		WHERE t.session_id IN (%s)
		ORDER BY t.session_id, t.position`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.TrialRecord
	for rows.Next() {
		var rec model.TrialRecord
		var correct, timedOut, skipped, answerCorrect int
		var rts string
		if err := rows.Scan(&rec.SessionID, &rec.ParticipantID, &rec.Seed, &rec.Position, &rec.Phase,
			&rec.Item, &rec.Branch, &rec.Key, &rec.Expected, &correct, &timedOut, &rec.RTMs, &skipped,
			&rec.Answer, &rec.AnswerExpected, &answerCorrect, &rts); err != nil {
			return nil, err
		}
		rec.Correct = correct != 0
		rec.TimedOut = timedOut != 0
		rec.Skipped = skipped != 0
		rec.AnswerCorrect = answerCorrect != 0
		parsed, err := splitRTs(rts)
		if err != nil {
			return nil, err
		}
		rec.SentenceRTs = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	columns, err := s.listColumns(ctx, placeholders, args)
	if err != nil {
		return nil, err
	}
	for i := range records {
		key := columnKey{session: records[i].SessionID, position: records[i].Position}
		records[i].Columns = columns[key]
	}
	return records, nil
}

// ColumnNames returns the sorted extra column names logged for sessions.
func (s *Store) ColumnNames(ctx context.Context, sessionIDs []int64) ([]string, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(sessionIDs)
	query := fmt.Sprintf(`SELECT DISTINCT name FROM trial_columns WHERE session_id IN (%s)`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

type columnKey struct {
	session  int64
	position int
}

func (s *Store) listColumns(ctx context.Context, placeholders string, args []any) (map[columnKey]map[string]string, error) {
	query := fmt.Sprintf(`SELECT session_id, position, name, value
		FROM trial_columns
		WHERE session_id IN (%s)`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[columnKey]map[string]string{}
	for rows.Next() {
		var key columnKey
		var name, value string
		if err := rows.Scan(&key.session, &key.position, &name, &value); err != nil {
			return nil, err
		}
		if _, ok := result[key]; !ok {
			result[key] = map[string]string{}
		}
		result[key][name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func inClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func joinRTs(rts []int64) string {
	parts := make([]string, len(rts))
	for i, rt := range rts {
		parts[i] = strconv.FormatInt(rt, 10)
	}
	return strings.Join(parts, ";")
}

func splitRTs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	rts := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sentence reading time %q: %w", p, err)
		}
		rts[i] = v
	}
	return rts, nil
}

package psytest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mind-engage/mindengage-psych/internal/db"
	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver

	// noFactorCol is set once the attempts table turns out to lack the
	// factor_scores_json column.
	noFactorCol atomic.Bool
}

func NewSQLStore(conn *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: conn, driver: driver}
}

func (s *SQLStore) q(query string) string { return db.Rebind(s.driver, query) }

// ---- tests ----

func (s *SQLStore) PutTest(ctx context.Context, d TestDefinition) error {
	qj, err := json.Marshal(d.Questions)
	if err != nil {
		return err
	}
	fj, err := json.Marshal(d.Factors)
	if err != nil {
		return err
	}
	ij := ""
	if d.Interpretation != nil {
		b, err := json.Marshal(d.Interpretation)
		if err != nil {
			return err
		}
		ij = string(b)
	}
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO tests
		(id,title,test_type,passing_score,time_limit_minutes,questions_json,factors_json,interpretation_json,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET title=excluded.title, test_type=excluded.test_type,
		  passing_score=excluded.passing_score, time_limit_minutes=excluded.time_limit_minutes,
		  questions_json=excluded.questions_json, factors_json=excluded.factors_json,
		  interpretation_json=excluded.interpretation_json, updated_at=excluded.updated_at`),
		d.ID, d.Title, d.TestType, d.PassingScore, d.TimeLimitMinutes, string(qj), string(fj), ij, now, now)
	return err
}

func (s *SQLStore) GetTestWithQuestions(ctx context.Context, id string) (TestDefinition, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id,title,test_type,passing_score,time_limit_minutes,
		questions_json,factors_json,interpretation_json,created_at,updated_at FROM tests WHERE id=?`), id)
	var d TestDefinition
	var qj, fj, ij string
	if err := row.Scan(&d.ID, &d.Title, &d.TestType, &d.PassingScore, &d.TimeLimitMinutes,
		&qj, &fj, &ij, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TestDefinition{}, fmt.Errorf("%w: %s", ErrTestNotFound, id)
		}
		return TestDefinition{}, err
	}
	if err := json.Unmarshal([]byte(qj), &d.Questions); err != nil {
		return TestDefinition{}, fmt.Errorf("decode questions of %s: %w", id, err)
	}
	if fj != "" {
		if err := json.Unmarshal([]byte(fj), &d.Factors); err != nil {
			return TestDefinition{}, fmt.Errorf("decode factors of %s: %w", id, err)
		}
	}
	if strings.TrimSpace(ij) != "" {
		var cfg scoring.InterpretationConfig
		if err := json.Unmarshal([]byte(ij), &cfg); err != nil {
			return TestDefinition{}, fmt.Errorf("decode interpretation of %s: %w", id, err)
		}
		d.Interpretation = &cfg
	}
	return d, nil
}

func (s *SQLStore) ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error) {
	query := `SELECT id,title,test_type,questions_json,created_at FROM tests`
	var args []any
	if q := strings.TrimSpace(opts.Q); q != "" {
		query += ` WHERE LOWER(title) LIKE ?`
		args = append(args, "%"+strings.ToLower(q)+"%")
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, clampLimit(opts.Limit), max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TestSummary{}
	for rows.Next() {
		var ts TestSummary
		var qj string
		if err := rows.Scan(&ts.ID, &ts.Title, &ts.TestType, &qj, &ts.CreatedAt); err != nil {
			return nil, err
		}
		var qs []json.RawMessage
		if err := json.Unmarshal([]byte(qj), &qs); err == nil {
			ts.QuestionCount = len(qs)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetTestStats(ctx context.Context, testID string) (TestStats, error) {
	st := TestStats{TestID: testID}
	err := s.db.QueryRowContext(ctx, s.q(`SELECT attempts_count, avg_percentage FROM tests WHERE id=?`), testID).
		Scan(&st.AttemptsCount, &st.AvgPercentage)
	if errors.Is(err, sql.ErrNoRows) {
		return TestStats{}, fmt.Errorf("%w: %s", ErrTestNotFound, testID)
	}
	return st, err
}

// IncrementTestStats folds one percentage into the running average. Both
// right-hand sides read the pre-update row, so concurrent submissions
// never lose an update.
func (s *SQLStore) IncrementTestStats(ctx context.Context, testID string, percentage float64) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE tests SET
		avg_percentage = (avg_percentage * attempts_count + ?) / (attempts_count + 1),
		attempts_count = attempts_count + 1
		WHERE id=?`), percentage, testID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrTestNotFound, testID)
	}
	return nil
}

// ---- attempts ----

func (s *SQLStore) SaveAttempt(ctx context.Context, a Attempt, opts SaveOptions) (string, error) {
	withFactors := !opts.OmitFactorScores
	if withFactors && s.noFactorCol.Load() {
		return "", ErrFactorScoresUnsupported
	}

	ansJSON, err := json.Marshal(nonNilAnswers(a.Answers))
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	interpJSON := ""
	if a.Interpretation != nil {
		b, err := json.Marshal(a.Interpretation)
		if err != nil {
			return "", err
		}
		interpJSON = string(b)
	}
	snapJSON := ""
	if a.Snapshot != nil {
		b, err := json.Marshal(a.Snapshot)
		if err != nil {
			return "", err
		}
		snapJSON = string(b)
	}
	var completed sql.NullInt64
	if a.CompletedAt != nil {
		completed = sql.NullInt64{Int64: a.CompletedAt.UnixMilli(), Valid: true}
	}

	cols := []string{"id", "test_id", "user_id", "session_id", "status", "answers_json", "score",
		"max_possible_score", "percentage", "passed", "interpretation_json", "snapshot_json",
		"started_at", "completed_at", "time_spent_seconds"}
	args := []any{a.ID, a.TestID, a.UserID, a.SessionID, string(a.Status), string(ansJSON), a.Score,
		a.MaxPossibleScore, a.Percentage, boolToInt(a.Passed), interpJSON, snapJSON,
		a.StartedAt.UnixMilli(), completed, a.TimeSpentSeconds}
	if withFactors {
		var fs sql.NullString
		if a.FactorScores != nil {
			b, err := json.Marshal(a.FactorScores)
			if err != nil {
				return "", err
			}
			fs = sql.NullString{String: string(b), Valid: true}
		}
		cols = append(cols, "factor_scores_json")
		args = append(args, fs)
	}

	sets := make([]string, 0, len(cols))
	for _, c := range cols[1:] {
		sets = append(sets, c+"=excluded."+c)
	}
	query := `INSERT INTO attempts (` + strings.Join(cols, ",") + `) VALUES (` +
		strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + `)
		ON CONFLICT (id) DO UPDATE SET ` + strings.Join(sets, ", ") + `
		WHERE attempts.status = 'in_progress'`

	res, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		if withFactors && isColumnMissing(err, "factor_scores_json") {
			s.noFactorCol.Store(true)
			return "", fmt.Errorf("%w: %v", ErrFactorScoresUnsupported, err)
		}
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrAttemptClosed
	}
	return a.ID, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	list, err := s.queryAttempts(ctx, ` WHERE id=?`, []any{id})
	if err != nil {
		return Attempt{}, err
	}
	if len(list) == 0 {
		return Attempt{}, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return list[0], nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	var where []string
	var args []any
	if opts.TestID != "" {
		where = append(where, "test_id=?")
		args = append(args, opts.TestID)
	}
	if opts.UserID != "" {
		where = append(where, "user_id=?")
		args = append(args, opts.UserID)
	}
	if opts.SessionID != "" {
		where = append(where, "session_id=?")
		args = append(args, opts.SessionID)
	}
	if opts.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(opts.Status))
	}
	tail := ""
	if len(where) > 0 {
		tail = " WHERE " + strings.Join(where, " AND ")
	}
	tail += " ORDER BY started_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, clampLimit(opts.Limit), max(opts.Offset, 0))
	return s.queryAttempts(ctx, tail, args)
}

const attemptCols = `id,test_id,user_id,session_id,status,answers_json,score,max_possible_score,
	percentage,passed,interpretation_json,snapshot_json,started_at,completed_at,time_spent_seconds`

func (s *SQLStore) queryAttempts(ctx context.Context, tail string, args []any) ([]Attempt, error) {
	withFactors := !s.noFactorCol.Load()
	cols := attemptCols
	if withFactors {
		cols += `,factor_scores_json`
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+cols+` FROM attempts`+tail), args...)
	if err != nil {
		if withFactors && isColumnMissing(err, "factor_scores_json") {
			s.noFactorCol.Store(true)
			return s.queryAttempts(ctx, tail, args)
		}
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		var (
			a              Attempt
			status, ansJ   string
			interpJ, snapJ string
			passed         int
			started        int64
			completed      sql.NullInt64
			factorJ        sql.NullString
		)
		dest := []any{&a.ID, &a.TestID, &a.UserID, &a.SessionID, &status, &ansJ, &a.Score, &a.MaxPossibleScore,
			&a.Percentage, &passed, &interpJ, &snapJ, &started, &completed, &a.TimeSpentSeconds}
		if withFactors {
			dest = append(dest, &factorJ)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		a.Status = Status(status)
		a.Passed = passed != 0
		a.StartedAt = time.UnixMilli(started).UTC()
		if completed.Valid {
			t := time.UnixMilli(completed.Int64).UTC()
			a.CompletedAt = &t
		}
		if err := json.Unmarshal([]byte(ansJ), &a.Answers); err != nil || a.Answers == nil {
			a.Answers = map[string]any{}
		}
		if factorJ.Valid && factorJ.String != "" {
			if err := json.Unmarshal([]byte(factorJ.String), &a.FactorScores); err != nil {
				return nil, fmt.Errorf("decode factor scores of %s: %w", a.ID, err)
			}
		}
		if interpJ != "" {
			if err := json.Unmarshal([]byte(interpJ), &a.Interpretation); err != nil {
				return nil, fmt.Errorf("decode interpretation of %s: %w", a.ID, err)
			}
		}
		if snapJ != "" {
			var d TestDefinition
			if err := json.Unmarshal([]byte(snapJ), &d); err != nil {
				return nil, fmt.Errorf("decode snapshot of %s: %w", a.ID, err)
			}
			a.Snapshot = &d
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- answer details ----

func (s *SQLStore) SaveAnswerDetails(ctx context.Context, attemptID string, details []AnswerDetail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM attempt_answers WHERE attempt_id=?`), attemptID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO attempt_answers
		(attempt_id,question_id,position,answer_json,earned,max_points,correct,answered,unscoreable,factor_id,adjusted,note)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, d := range details {
		aj, err := json.Marshal(d.Answer)
		if err != nil {
			aj = []byte("null")
		}
		var correct sql.NullInt64
		if d.Correct != nil {
			correct = sql.NullInt64{Int64: int64(boolToInt(*d.Correct)), Valid: true}
		}
		var adjusted sql.NullFloat64
		if d.Adjusted != nil {
			adjusted = sql.NullFloat64{Float64: *d.Adjusted, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, attemptID, d.QuestionID, i, string(aj), d.Earned, d.Max, correct,
			boolToInt(d.Answered), boolToInt(d.Unscoreable), d.FactorID, adjusted, d.Note); err != nil {
			return fmt.Errorf("insert answer %s: %w", d.QuestionID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetAnswerDetails(ctx context.Context, attemptID string) ([]AnswerDetail, error) {
	if _, err := s.GetAttempt(ctx, attemptID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT question_id,answer_json,earned,max_points,correct,answered,
		unscoreable,factor_id,adjusted,note FROM attempt_answers WHERE attempt_id=? ORDER BY position`), attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []AnswerDetail{}
	for rows.Next() {
		var (
			d                     AnswerDetail
			aj                    string
			correct               sql.NullInt64
			answered, unscoreable int
			adjusted              sql.NullFloat64
		)
		if err := rows.Scan(&d.QuestionID, &aj, &d.Earned, &d.Max, &correct, &answered, &unscoreable,
			&d.FactorID, &adjusted, &d.Note); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(aj), &d.Answer)
		if correct.Valid {
			c := correct.Int64 != 0
			d.Correct = &c
		}
		if adjusted.Valid {
			v := adjusted.Float64
			d.Adjusted = &v
		}
		d.Answered = answered != 0
		d.Unscoreable = unscoreable != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilAnswers(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// isColumnMissing recognises the sqlite and postgres errors for an unknown column.
func isColumnMissing(err error, col string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, col) {
		return false
	}
	return strings.Contains(msg, "no column named") || // sqlite insert
		strings.Contains(msg, "no such column") || // sqlite select
		strings.Contains(msg, "does not exist") // postgres
}

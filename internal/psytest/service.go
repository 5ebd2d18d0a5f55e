package psytest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

// Publisher receives completed attempts for downstream consumers such as
// the narrative report generator.
type Publisher interface {
	AttemptCompleted(ctx context.Context, a Attempt) error
}

// Service is the attempt orchestrator. It holds no per-attempt state; every
// call loads the definition it needs and works on its own copy.
type Service struct {
	store  Store
	scorer *scoring.Scorer
	pub    Publisher
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
}

type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption     { return func(s *Service) { s.log = l } }
func WithPublisher(p Publisher) ServiceOption     { return func(s *Service) { s.pub = p } }
func WithScorer(sc *scoring.Scorer) ServiceOption { return func(s *Service) { s.scorer = sc } }
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}
func WithIDGenerator(f func() string) ServiceOption { return func(s *Service) { s.newID = f } }

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		scorer: scoring.NewScorer(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ---- tests ----

// PutTest validates and stores a definition, assigning an id when missing.
func (s *Service) PutTest(ctx context.Context, d TestDefinition) (TestDefinition, error) {
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		d.ID = s.newID()
	}
	if err := ValidateDefinition(d); err != nil {
		return TestDefinition{}, err
	}
	if err := s.store.PutTest(ctx, d); err != nil {
		return TestDefinition{}, fmt.Errorf("put test: %w", err)
	}
	return s.store.GetTestWithQuestions(ctx, d.ID)
}

func (s *Service) GetTest(ctx context.Context, id string) (TestDefinition, error) {
	return s.store.GetTestWithQuestions(ctx, id)
}

func (s *Service) ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error) {
	return s.store.ListTests(ctx, opts)
}

func (s *Service) GetTestStats(ctx context.Context, id string) (TestStats, error) {
	return s.store.GetTestStats(ctx, id)
}

// ---- scoring ----

// Scored is the pure scoring of an answer sheet against a definition.
type Scored struct {
	scoring.Outcome
	Passed         bool
	Interpretation map[string]scoring.Interpretation
}

// Score runs the scoring pipeline without touching storage. The same
// definition and answers always give the same result.
func (s *Service) Score(d TestDefinition, answers map[string]any) Scored {
	out := s.scorer.Evaluate(d.ScoringQuestions(), answers)
	return Scored{
		Outcome:        out,
		Passed:         scoring.Passed(out.Percentage, d.PassingScore),
		Interpretation: scoring.Interpret(out.FactorScores, d.FactorMeta(), d.Interpretation),
	}
}

// ---- attempts ----

// MaxTimeSpentSeconds bounds the reported time on a single attempt (one week).
const MaxTimeSpentSeconds = 7 * 24 * 60 * 60

type SubmitRequest struct {
	TestID           string         `json:"test_id" validate:"required"`
	UserID           string         `json:"user_id,omitempty"`
	SessionID        string         `json:"session_id,omitempty"`
	Answers          map[string]any `json:"answers" validate:"required"`
	TimeSpentSeconds int            `json:"time_spent_seconds,omitempty" validate:"gte=0,lte=604800"`
}

// SubmitAttempt scores a full answer sheet in one call and stores it as a
// completed attempt.
func (s *Service) SubmitAttempt(ctx context.Context, req SubmitRequest) (Attempt, error) {
	req.TestID = strings.TrimSpace(req.TestID)
	if err := ValidateStruct("invalid submission", req); err != nil {
		return Attempt{}, err
	}
	def, err := s.store.GetTestWithQuestions(ctx, req.TestID)
	if err != nil {
		return Attempt{}, err
	}
	now := s.now()
	a := Attempt{
		ID:        s.newID(),
		TestID:    def.ID,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Status:    StatusInProgress,
		Answers:   req.Answers,
		StartedAt: now.Add(-time.Duration(req.TimeSpentSeconds) * time.Second),
	}
	return s.finalize(ctx, def, a, req.TimeSpentSeconds)
}

// StartAttempt opens an in-progress attempt for a user or anonymous session.
func (s *Service) StartAttempt(ctx context.Context, testID, userID, sessionID string) (Attempt, error) {
	testID = strings.TrimSpace(testID)
	if testID == "" {
		return Attempt{}, invalid("test_id required")
	}
	if userID == "" && sessionID == "" {
		return Attempt{}, invalid("user_id or session_id required")
	}
	if _, err := s.store.GetTestWithQuestions(ctx, testID); err != nil {
		return Attempt{}, err
	}
	a := Attempt{
		ID:        s.newID(),
		TestID:    testID,
		UserID:    userID,
		SessionID: sessionID,
		Status:    StatusInProgress,
		Answers:   map[string]any{},
		StartedAt: s.now(),
	}
	if _, err := s.store.SaveAttempt(ctx, a, SaveOptions{}); err != nil {
		return Attempt{}, fmt.Errorf("save attempt: %w", err)
	}
	return a, nil
}

// SaveAnswers merges answers into an in-progress attempt.
func (s *Service) SaveAnswers(ctx context.Context, attemptID string, answers map[string]any) (Attempt, error) {
	if answers == nil {
		return Attempt{}, invalid("answers must be an object")
	}
	a, err := s.openAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Answers == nil {
		a.Answers = map[string]any{}
	}
	for k, v := range answers {
		a.Answers[k] = v
	}
	if _, err := s.store.SaveAttempt(ctx, a, SaveOptions{}); err != nil {
		return Attempt{}, fmt.Errorf("save answers: %w", err)
	}
	return a, nil
}

// CompleteAttempt scores the answers collected so far and closes the attempt.
// A zero timeSpentSeconds is derived from the attempt's start time.
func (s *Service) CompleteAttempt(ctx context.Context, attemptID string, timeSpentSeconds int) (Attempt, error) {
	if timeSpentSeconds < 0 || timeSpentSeconds > MaxTimeSpentSeconds {
		return Attempt{}, &ValidationError{Msg: "invalid time spent", Fields: map[string]string{"time_spent_seconds": "out of range"}}
	}
	a, err := s.openAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	def, err := s.store.GetTestWithQuestions(ctx, a.TestID)
	if err != nil {
		return Attempt{}, err
	}
	if timeSpentSeconds == 0 && !a.StartedAt.IsZero() {
		timeSpentSeconds = int(s.now().Sub(a.StartedAt).Seconds())
	}
	return s.finalize(ctx, def, a, timeSpentSeconds)
}

// AbandonAttempt closes an attempt without scoring it. It is the path for
// external timeouts and cancellations.
func (s *Service) AbandonAttempt(ctx context.Context, attemptID string) (Attempt, error) {
	a, err := s.openAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	now := s.now()
	a.Status = StatusAbandoned
	a.CompletedAt = &now
	if _, err := s.store.SaveAttempt(ctx, a, SaveOptions{}); err != nil {
		return Attempt{}, fmt.Errorf("abandon attempt: %w", err)
	}
	return a, nil
}

func (s *Service) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	return s.store.GetAttempt(ctx, id)
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

func (s *Service) GetAnswerDetails(ctx context.Context, attemptID string) ([]AnswerDetail, error) {
	return s.store.GetAnswerDetails(ctx, attemptID)
}

func (s *Service) openAttempt(ctx context.Context, id string) (Attempt, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Attempt{}, invalid("attempt id required")
	}
	a, err := s.store.GetAttempt(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status.Terminal() {
		return Attempt{}, ErrAttemptClosed
	}
	return a, nil
}

// finalize scores a against def and persists it as completed. Nothing is
// written until every question has been scored.
func (s *Service) finalize(ctx context.Context, def TestDefinition, a Attempt, timeSpentSeconds int) (Attempt, error) {
	res := s.Score(def, a.Answers)

	now := s.now()
	a.Status = StatusCompleted
	a.Score = res.Score
	a.MaxPossibleScore = res.MaxPossibleScore
	a.Percentage = res.Percentage
	a.Passed = res.Passed
	a.FactorScores = res.FactorScores
	a.Interpretation = res.Interpretation
	a.CompletedAt = &now
	a.TimeSpentSeconds = timeSpentSeconds
	snap := def
	a.Snapshot = &snap

	if err := s.persist(ctx, a); err != nil {
		return Attempt{}, err
	}

	if err := s.store.SaveAnswerDetails(ctx, a.ID, answerDetails(a.Answers, res.Results)); err != nil {
		s.log.Warn("save answer details failed", "attempt_id", a.ID, "err", err)
	}
	if err := s.store.IncrementTestStats(ctx, a.TestID, a.Percentage); err != nil {
		s.log.Warn("test stats update failed", "test_id", a.TestID, "attempt_id", a.ID, "err", err)
	}
	if s.pub != nil {
		if err := s.pub.AttemptCompleted(ctx, a); err != nil {
			s.log.Warn("publish attempt completed failed", "attempt_id", a.ID, "err", err)
		}
	}
	s.log.Info("attempt completed",
		"attempt_id", a.ID, "test_id", a.TestID,
		"score", a.Score, "max", a.MaxPossibleScore, "percentage", a.Percentage, "passed", a.Passed,
		"factors", len(a.FactorScores))
	return a, nil
}

// persist saves the attempt, retrying without factor scores when the store
// predates that field. The core score fields are never held back by it.
func (s *Service) persist(ctx context.Context, a Attempt) error {
	_, err := s.store.SaveAttempt(ctx, a, SaveOptions{})
	if errors.Is(err, ErrFactorScoresUnsupported) {
		s.log.Warn("store lacks factor scores, saving attempt without them", "attempt_id", a.ID)
		_, err = s.store.SaveAttempt(ctx, a, SaveOptions{OmitFactorScores: true})
	}
	if err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func answerDetails(answers map[string]any, results []scoring.Result) []AnswerDetail {
	out := make([]AnswerDetail, 0, len(results))
	for _, r := range results {
		d := AnswerDetail{
			QuestionID:  r.QuestionID,
			Answer:      answers[r.QuestionID],
			Earned:      r.Earned,
			Max:         r.Max,
			Correct:     r.Correct,
			Answered:    r.Answered,
			Unscoreable: r.Unscoreable,
			Note:        r.Note,
		}
		if c := r.Contribution; c != nil {
			adj := c.Adjusted
			d.FactorID = c.FactorID
			d.Adjusted = &adj
		}
		out = append(out, d)
	}
	return out
}

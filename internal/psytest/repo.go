package psytest

import "context"

// SaveOptions tunes a single SaveAttempt call.
type SaveOptions struct {
	// OmitFactorScores writes the attempt without the factor-score field.
	OmitFactorScores bool
}

// Repository is what the attempt orchestrator needs from storage.
type Repository interface {
	GetTestWithQuestions(ctx context.Context, testID string) (TestDefinition, error)
	// SaveAttempt inserts or updates the attempt. An existing row is only
	// updated while it is still in progress; otherwise ErrAttemptClosed.
	SaveAttempt(ctx context.Context, a Attempt, opts SaveOptions) (string, error)
	SaveAnswerDetails(ctx context.Context, attemptID string, details []AnswerDetail) error
	// IncrementTestStats must update the count and running average atomically.
	IncrementTestStats(ctx context.Context, testID string, percentage float64) error
}

type ListOpts struct {
	Q      string
	Limit  int
	Offset int
}

type AttemptListOpts struct {
	TestID    string
	UserID    string
	SessionID string
	Status    Status
	Limit     int
	Offset    int
}

// Store is the full storage surface used by the service and the HTTP layer.
type Store interface {
	Repository

	PutTest(ctx context.Context, d TestDefinition) error
	ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error)
	GetTestStats(ctx context.Context, testID string) (TestStats, error)

	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	GetAnswerDetails(ctx context.Context, attemptID string) ([]AnswerDetail, error)
}

type TestSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TestType      string `json:"test_type,omitempty"`
	QuestionCount int    `json:"question_count"`
	CreatedAt     int64  `json:"created_at,omitempty"`
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

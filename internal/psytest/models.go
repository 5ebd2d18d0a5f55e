package psytest

import (
	"time"

	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

type AnswerOption struct {
	ID        string  `json:"id" yaml:"id" validate:"required"`
	Text      string  `json:"text" yaml:"text"`
	IsCorrect bool    `json:"is_correct,omitempty" yaml:"is_correct,omitempty"`
	Points    float64 `json:"points,omitempty" yaml:"points,omitempty" validate:"gte=0"`
}

type Question struct {
	ID       string               `json:"id" yaml:"id" validate:"required"`
	Type     scoring.QuestionType `json:"type" yaml:"type" validate:"required"`
	Text     string               `json:"text" yaml:"text"`
	Points   float64              `json:"points" yaml:"points" validate:"gte=0"`
	Required bool                 `json:"required,omitempty" yaml:"required,omitempty"`
	Options  []AnswerOption       `json:"options,omitempty" yaml:"options,omitempty" validate:"dive"`

	// rating_scale only
	ScaleMin  float64 `json:"scale_min,omitempty" yaml:"scale_min,omitempty"`
	ScaleMax  float64 `json:"scale_max,omitempty" yaml:"scale_max,omitempty"`
	IsReverse bool    `json:"is_reverse,omitempty" yaml:"is_reverse,omitempty"`
	FactorID  string  `json:"factor_id,omitempty" yaml:"factor_id,omitempty"`
	Weight    float64 `json:"weight,omitempty" yaml:"weight,omitempty" validate:"gte=0"` // 0 reads as 1.0
}

type PersonalityFactor struct {
	ID                string `json:"id" yaml:"id" validate:"required"`
	Name              string `json:"name" yaml:"name"`
	DescriptionLow    string `json:"description_low,omitempty" yaml:"description_low,omitempty"`
	DescriptionMedium string `json:"description_medium,omitempty" yaml:"description_medium,omitempty"`
	DescriptionHigh   string `json:"description_high,omitempty" yaml:"description_high,omitempty"`
}

type TestDefinition struct {
	ID               string                        `json:"id" yaml:"id"`
	Title            string                        `json:"title" yaml:"title" validate:"required"`
	TestType         string                        `json:"test_type,omitempty" yaml:"test_type,omitempty"` // big_five, hexaco, digital_skills, ...
	PassingScore     float64                       `json:"passing_score" yaml:"passing_score" validate:"gte=0,lte=100"`
	TimeLimitMinutes int                           `json:"time_limit_minutes,omitempty" yaml:"time_limit_minutes,omitempty" validate:"gte=0"`
	Questions        []Question                    `json:"questions" yaml:"questions" validate:"dive"`
	Factors          []PersonalityFactor           `json:"factors,omitempty" yaml:"factors,omitempty" validate:"dive"`
	Interpretation   *scoring.InterpretationConfig `json:"interpretation,omitempty" yaml:"interpretation,omitempty"`

	CreatedAt int64 `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt int64 `json:"updated_at,omitempty" yaml:"-"`
}

// TestStats are the running aggregates kept on a test.
type TestStats struct {
	TestID        string  `json:"test_id"`
	AttemptsCount int64   `json:"attempts_count"`
	AvgPercentage float64 `json:"avg_percentage"`
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusAbandoned }

type Attempt struct {
	ID               string                            `json:"id"`
	TestID           string                            `json:"test_id"`
	UserID           string                            `json:"user_id,omitempty"`
	SessionID        string                            `json:"session_id,omitempty"`
	Status           Status                            `json:"status"`
	Answers          map[string]any                    `json:"answers"` // questionID -> answer payload
	Score            float64                           `json:"score"`
	MaxPossibleScore float64                           `json:"max_possible_score"`
	Percentage       float64                           `json:"percentage"`
	Passed           bool                              `json:"passed"`
	FactorScores     map[string]int                    `json:"factor_scores,omitempty"`
	Interpretation   map[string]scoring.Interpretation `json:"interpretation,omitempty"`
	StartedAt        time.Time                         `json:"started_at"`
	CompletedAt      *time.Time                        `json:"completed_at,omitempty"`
	TimeSpentSeconds int                               `json:"time_spent_seconds,omitempty"`

	// Snapshot is the definition the attempt was scored against.
	Snapshot *TestDefinition `json:"-"`
}

// AnswerDetail is the per-question row stored next to a completed attempt.
type AnswerDetail struct {
	QuestionID  string   `json:"question_id"`
	Answer      any      `json:"answer,omitempty"`
	Earned      float64  `json:"earned"`
	Max         float64  `json:"max"`
	Correct     *bool    `json:"correct"`
	Answered    bool     `json:"answered"`
	Unscoreable bool     `json:"unscoreable,omitempty"`
	FactorID    string   `json:"factor_id,omitempty"`
	Adjusted    *float64 `json:"adjusted,omitempty"`
	Note        string   `json:"note,omitempty"`
}

// ScoringQuestions converts the definition into the scorer's view.
func (d TestDefinition) ScoringQuestions() []scoring.Q {
	out := make([]scoring.Q, 0, len(d.Questions))
	for _, q := range d.Questions {
		sq := scoring.Q{
			ID:        q.ID,
			Type:      q.Type,
			Points:    q.Points,
			ScaleMin:  q.ScaleMin,
			ScaleMax:  q.ScaleMax,
			IsReverse: q.IsReverse,
			FactorID:  q.FactorID,
			Weight:    q.Weight,
		}
		for _, o := range q.Options {
			sq.Options = append(sq.Options, scoring.Choice{ID: o.ID, Text: o.Text, IsCorrect: o.IsCorrect, Points: o.Points})
		}
		out = append(out, sq)
	}
	return out
}

// FactorMeta converts the factor list into the resolver's view.
func (d TestDefinition) FactorMeta() []scoring.FactorMeta {
	out := make([]scoring.FactorMeta, 0, len(d.Factors))
	for _, f := range d.Factors {
		out = append(out, scoring.FactorMeta{
			ID:                f.ID,
			Name:              f.Name,
			DescriptionLow:    f.DescriptionLow,
			DescriptionMedium: f.DescriptionMedium,
			DescriptionHigh:   f.DescriptionHigh,
		})
	}
	return out
}

// TakerView strips answer keys and option points before a definition is
// shown to someone taking the test.
func (d TestDefinition) TakerView() TestDefinition {
	v := d
	v.Interpretation = nil
	v.Questions = make([]Question, len(d.Questions))
	for i, q := range d.Questions {
		q.Options = append([]AnswerOption(nil), q.Options...)
		for j := range q.Options {
			q.Options[j].IsCorrect = false
			q.Options[j].Points = 0
		}
		v.Questions[i] = q
	}
	return v
}

package scoring

import (
	"errors"
	"strings"
)

// QuestionType is the wire name of a question kind.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	RatingScale    QuestionType = "rating_scale"
	FreeText       QuestionType = "free_text"
	Numeric        QuestionType = "numeric"
	FileUpload     QuestionType = "file_upload"
)

// Known reports whether t is one of the supported question types.
func (t QuestionType) Known() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse, RatingScale, FreeText, Numeric, FileUpload:
		return true
	}
	return false
}

// Choice is one selectable answer of a choice question.
type Choice struct {
	ID        string
	Text      string
	IsCorrect bool
	Points    float64
}

// Q is the view of a question the scorer needs.
// Scale fields, FactorID and Weight only matter for rating-scale questions.
type Q struct {
	ID        string
	Type      QuestionType
	Points    float64
	Options   []Choice
	ScaleMin  float64
	ScaleMax  float64
	IsReverse bool
	FactorID  string
	Weight    float64
}

// Contribution is what one answered rating-scale question feeds into
// factor aggregation.
type Contribution struct {
	QuestionID string
	FactorID   string
	Weight     float64
	ScaleMin   float64
	ScaleMax   float64
	Adjusted   float64
}

// Result is the outcome of scoring one answer.
type Result struct {
	QuestionID string
	Type       QuestionType
	Earned     float64
	Max        float64
	// Correct is nil for question types with no notion of correctness.
	Correct  *bool
	Answered bool
	// Unscoreable marks answers that were present but could not be parsed.
	Unscoreable bool
	Note        string
	// Contribution is set only for rating-scale answers that count
	// towards a factor.
	Contribution *Contribution
}

// ErrUnscoreable is returned by strategies for answers of the wrong shape.
// It never escapes Scorer.Score; the question simply earns nothing.
var ErrUnscoreable = errors.New("unscoreable answer")

// Strategy scores one answer for one question type.
type Strategy interface {
	Score(q Q, answer any) (Result, error)
}

// Scorer routes by question type to the right Strategy.
type Scorer struct {
	strategies map[QuestionType]Strategy
}

type Option func(*config)

type config struct {
	rejectOutOfRange bool
	overrides        map[QuestionType]Strategy
}

// WithOutOfRangeRejection controls whether rating answers outside
// [ScaleMin, ScaleMax] are treated as unscoreable. Enabled by default.
func WithOutOfRangeRejection(b bool) Option { return func(c *config) { c.rejectOutOfRange = b } }

// WithStrategy replaces the built-in strategy for a question type.
func WithStrategy(t QuestionType, s Strategy) Option {
	return func(c *config) { c.overrides[t] = s }
}

// NewScorer installs the built-in strategies. Rating answers outside the
// item's scale are unscoreable unless WithOutOfRangeRejection(false) is given.
func NewScorer(opts ...Option) *Scorer {
	cfg := &config{rejectOutOfRange: true, overrides: map[QuestionType]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	s := &Scorer{
		strategies: map[QuestionType]Strategy{
			SingleChoice:   singleChoiceStrategy{},
			TrueFalse:      trueFalseStrategy{},
			MultipleChoice: multipleChoiceStrategy{},
			RatingScale:    ratingScaleStrategy{rejectOutOfRange: cfg.rejectOutOfRange},
			FreeText:       manualStrategy{},
			Numeric:        manualStrategy{},
			FileUpload:     manualStrategy{},
		},
	}
	for t, st := range cfg.overrides {
		s.strategies[t] = st
	}
	return s
}

// Score scores answer against q. present is false when the taker sent
// nothing for the question; a JSON null counts as absent as well.
func (s *Scorer) Score(q Q, answer any, present bool) Result {
	res := Result{QuestionID: q.ID, Type: q.Type, Max: q.Points}
	if !present || answer == nil {
		if q.Type.choice() {
			res.Correct = boolPtr(false)
		}
		res.Note = "unanswered"
		return res
	}
	st, ok := s.strategies[q.Type]
	if !ok {
		res.Answered = true
		res.Note = "no strategy for question type"
		return res
	}
	out, err := st.Score(q, answer)
	out.QuestionID, out.Type, out.Max = q.ID, q.Type, q.Points
	out.Answered = true
	if err != nil {
		out.Earned = 0
		out.Unscoreable = true
		out.Contribution = nil
		if out.Note == "" {
			out.Note = err.Error()
		}
		if q.Type.choice() {
			out.Correct = boolPtr(false)
		}
	}
	return out
}

func (t QuestionType) choice() bool {
	return t == SingleChoice || t == MultipleChoice || t == TrueFalse
}

// --- Strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Score(q Q, answer any) (Result, error) {
	id, ok := optionID(answer)
	if !ok {
		return Result{Note: "answer must be an option id"}, ErrUnscoreable
	}
	return choiceResult(q, isCorrectOption(q.Options, id)), nil
}

// trueFalseStrategy is single choice over the two options of the question.
// A boolean answer selects the option whose id or text reads true/false.
type trueFalseStrategy struct{}

func (trueFalseStrategy) Score(q Q, answer any) (Result, error) {
	if b, ok := answer.(bool); ok {
		want := "false"
		if b {
			want = "true"
		}
		for _, o := range q.Options {
			if strings.EqualFold(o.ID, want) || strings.EqualFold(strings.TrimSpace(o.Text), want) {
				return choiceResult(q, o.IsCorrect), nil
			}
		}
		return choiceResult(q, false), nil
	}
	return singleChoiceStrategy{}.Score(q, answer)
}

type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Score(q Q, answer any) (Result, error) {
	ids, ok := optionIDs(answer)
	if !ok {
		return Result{Note: "answer must be an array of option ids"}, ErrUnscoreable
	}
	correct := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		if o.IsCorrect {
			correct = append(correct, o.ID)
		}
	}
	return choiceResult(q, setEqual(toSet(correct), toSet(ids))), nil
}

type ratingScaleStrategy struct{ rejectOutOfRange bool }

func (s ratingScaleStrategy) Score(q Q, answer any) (Result, error) {
	raw, ok := ratingValue(answer)
	if !ok {
		return Result{Note: "rating must be a finite number"}, ErrUnscoreable
	}
	if s.rejectOutOfRange && (raw < q.ScaleMin || raw > q.ScaleMax) {
		return Result{Note: "rating outside scale"}, ErrUnscoreable
	}
	weight := q.Weight
	if weight <= 0 {
		weight = 1
	}
	return Result{
		// answering a rating item at all awards its full points
		Earned: q.Points,
		Contribution: &Contribution{
			QuestionID: q.ID,
			FactorID:   q.FactorID,
			Weight:     weight,
			ScaleMin:   q.ScaleMin,
			ScaleMax:   q.ScaleMax,
			Adjusted:   Normalize(raw, q.ScaleMin, q.ScaleMax, q.IsReverse),
		},
	}, nil
}

// manualStrategy covers types reserved for manual grading.
type manualStrategy struct{}

func (manualStrategy) Score(q Q, answer any) (Result, error) {
	return Result{Note: "manual grading required"}, nil
}

// helpers

func choiceResult(q Q, correct bool) Result {
	res := Result{Correct: boolPtr(correct)}
	if correct {
		res.Earned = q.Points
	}
	return res
}

func isCorrectOption(opts []Choice, id string) bool {
	for _, o := range opts {
		if o.ID == id {
			return o.IsCorrect
		}
	}
	return false
}

func boolPtr(b bool) *bool { return &b }

package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleQ() Q {
	return Q{ID: "q1", Type: SingleChoice, Points: 10, Options: []Choice{
		{ID: "A", Text: "first"},
		{ID: "B", Text: "second", IsCorrect: true},
		{ID: "C", Text: "third"},
	}}
}

func multiQ() Q {
	return Q{ID: "q2", Type: MultipleChoice, Points: 4, Options: []Choice{
		{ID: "A", IsCorrect: true},
		{ID: "B", IsCorrect: true},
		{ID: "C"},
	}}
}

func ratingQ(reverse bool) Q {
	return Q{ID: "r1", Type: RatingScale, Points: 1, ScaleMin: 1, ScaleMax: 5, IsReverse: reverse, FactorID: "openness", Weight: 1}
}

func TestScore_SingleChoice(t *testing.T) {
	s := NewScorer()
	tests := []struct {
		name    string
		answer  any
		earned  float64
		correct bool
		unscore bool
	}{
		{name: "correct option", answer: "B", earned: 10, correct: true},
		{name: "wrong option", answer: "A", earned: 0, correct: false},
		{name: "unknown option", answer: "Z", earned: 0, correct: false},
		{name: "blank string", answer: "  ", earned: 0, correct: false, unscore: true},
		{name: "array is wrong shape", answer: []any{"B"}, earned: 0, correct: false, unscore: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := s.Score(singleQ(), tc.answer, true)
			assert.Equal(t, tc.earned, r.Earned)
			assert.Equal(t, 10.0, r.Max)
			require.NotNil(t, r.Correct)
			assert.Equal(t, tc.correct, *r.Correct)
			assert.Equal(t, tc.unscore, r.Unscoreable)
			assert.True(t, r.Answered)
		})
	}
}

func TestScore_SingleChoiceNumericID(t *testing.T) {
	q := Q{ID: "q", Type: SingleChoice, Points: 2, Options: []Choice{{ID: "7", IsCorrect: true}, {ID: "8"}}}
	r := NewScorer().Score(q, float64(7), true)
	assert.Equal(t, 2.0, r.Earned)
}

func TestScore_MultipleChoiceExactness(t *testing.T) {
	s := NewScorer()
	tests := []struct {
		name    string
		answer  any
		correct bool
	}{
		{"exact set", []any{"A", "B"}, true},
		{"exact set reordered", []any{"B", "A"}, true},
		{"string slice", []string{"A", "B"}, true},
		{"superset", []any{"A", "B", "C"}, false},
		{"subset", []any{"A"}, false},
		{"empty array", []any{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := s.Score(multiQ(), tc.answer, true)
			require.NotNil(t, r.Correct)
			assert.Equal(t, tc.correct, *r.Correct)
			if tc.correct {
				assert.Equal(t, 4.0, r.Earned)
			} else {
				assert.Zero(t, r.Earned)
			}
			assert.False(t, r.Unscoreable)
		})
	}
}

func TestScore_TrueFalse(t *testing.T) {
	q := Q{ID: "tf", Type: TrueFalse, Points: 1, Options: []Choice{
		{ID: "t", Text: "True", IsCorrect: true},
		{ID: "f", Text: "False"},
	}}
	s := NewScorer()

	assert.Equal(t, 1.0, s.Score(q, true, true).Earned)
	assert.Equal(t, 0.0, s.Score(q, false, true).Earned)
	assert.Equal(t, 1.0, s.Score(q, "t", true).Earned)
	assert.Equal(t, 0.0, s.Score(q, "f", true).Earned)
}

func TestScore_RatingScale(t *testing.T) {
	s := NewScorer()

	r := s.Score(ratingQ(false), float64(4), true)
	assert.Nil(t, r.Correct)
	assert.Equal(t, 1.0, r.Earned)
	require.NotNil(t, r.Contribution)
	assert.Equal(t, 4.0, r.Contribution.Adjusted)
	assert.Equal(t, "openness", r.Contribution.FactorID)

	r = s.Score(ratingQ(true), "4", true)
	require.NotNil(t, r.Contribution)
	assert.Equal(t, 2.0, r.Contribution.Adjusted)
}

func TestScore_RatingScaleUnscoreable(t *testing.T) {
	s := NewScorer()
	for name, ans := range map[string]any{
		"text":         "often",
		"nan":          math.NaN(),
		"inf":          math.Inf(1),
		"above scale":  float64(6),
		"below scale":  float64(0),
		"object value": map[string]any{"v": 3},
	} {
		t.Run(name, func(t *testing.T) {
			r := s.Score(ratingQ(false), ans, true)
			assert.True(t, r.Unscoreable)
			assert.Zero(t, r.Earned)
			assert.Nil(t, r.Contribution)
			assert.Nil(t, r.Correct)
		})
	}
}

func TestScore_RatingOutOfRangeAllowed(t *testing.T) {
	s := NewScorer(WithOutOfRangeRejection(false))
	r := s.Score(ratingQ(false), float64(6), true)
	require.NotNil(t, r.Contribution)
	assert.Equal(t, 6.0, r.Contribution.Adjusted)
}

func TestScore_DefaultWeight(t *testing.T) {
	q := ratingQ(false)
	q.Weight = 0
	r := NewScorer().Score(q, float64(3), true)
	require.NotNil(t, r.Contribution)
	assert.Equal(t, 1.0, r.Contribution.Weight)
}

func TestScore_ManualTypes(t *testing.T) {
	s := NewScorer()
	for _, typ := range []QuestionType{FreeText, Numeric, FileUpload} {
		r := s.Score(Q{ID: "m", Type: typ, Points: 5}, "anything", true)
		assert.Zero(t, r.Earned, typ)
		assert.Equal(t, 5.0, r.Max, typ)
		assert.Nil(t, r.Correct, typ)
	}
}

func TestScore_Missing(t *testing.T) {
	s := NewScorer()

	r := s.Score(singleQ(), nil, false)
	require.NotNil(t, r.Correct)
	assert.False(t, *r.Correct)
	assert.False(t, r.Answered)
	assert.Equal(t, 10.0, r.Max)

	r = s.Score(ratingQ(false), nil, true)
	assert.Nil(t, r.Correct)
	assert.Nil(t, r.Contribution)
	assert.Zero(t, r.Earned)
}

type fixedStrategy struct{ earned float64 }

func (f fixedStrategy) Score(q Q, answer any) (Result, error) {
	return Result{Earned: f.earned}, nil
}

func TestScore_StrategyOverride(t *testing.T) {
	s := NewScorer(WithStrategy(FreeText, fixedStrategy{earned: 3}))
	r := s.Score(Q{ID: "essay", Type: FreeText, Points: 5}, "text", true)
	assert.Equal(t, 3.0, r.Earned)
}

func TestScore_UnknownType(t *testing.T) {
	r := NewScorer().Score(Q{ID: "x", Type: "matrix", Points: 2}, "a", true)
	assert.Zero(t, r.Earned)
	assert.Equal(t, 2.0, r.Max)
}

package scoring

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_SingleChoiceScenarios(t *testing.T) {
	s := NewScorer()
	qs := []Q{singleQ()}

	out := s.Evaluate(qs, map[string]any{"q1": "B"})
	assert.Equal(t, 10.0, out.Score)
	assert.Equal(t, 10.0, out.MaxPossibleScore)
	assert.Equal(t, 100.0, out.Percentage)

	out = s.Evaluate(qs, map[string]any{"q1": "A"})
	assert.Zero(t, out.Score)
	assert.Zero(t, out.Percentage)
	assert.False(t, Passed(out.Percentage, 50))
}

func TestEvaluate_RatingScenarios(t *testing.T) {
	s := NewScorer()

	out := s.Evaluate([]Q{ratingQ(false)}, map[string]any{"r1": float64(4)})
	assert.Equal(t, map[string]int{"openness": 80}, out.FactorScores)

	out = s.Evaluate([]Q{ratingQ(true)}, map[string]any{"r1": float64(4)})
	assert.Equal(t, map[string]int{"openness": 40}, out.FactorScores)
	assert.Equal(t, LevelLow, LevelFor(40, (*InterpretationConfig)(nil).Thresholds()))
}

func TestEvaluate_TwoWeightedQuestions(t *testing.T) {
	qs := []Q{
		{ID: "q1", Type: RatingScale, Points: 1, ScaleMin: 1, ScaleMax: 5, FactorID: "conscientiousness", Weight: 1},
		{ID: "q2", Type: RatingScale, Points: 1, ScaleMin: 1, ScaleMax: 5, FactorID: "conscientiousness", Weight: 2},
	}
	out := NewScorer().Evaluate(qs, map[string]any{"q1": float64(5), "q2": float64(1)})
	assert.Equal(t, 47, out.FactorScores["conscientiousness"])
	interp := Interpret(out.FactorScores, nil, nil)
	assert.Equal(t, LevelMedium, interp["conscientiousness"].Level)
}

func TestEvaluate_EmptyMultipleChoice(t *testing.T) {
	q := Q{ID: "m", Type: MultipleChoice, Points: 3, Options: []Choice{{ID: "X", IsCorrect: true}, {ID: "Y", IsCorrect: true}}}
	out := NewScorer().Evaluate([]Q{q}, map[string]any{"m": []any{}})
	assert.Zero(t, out.Score)
	require.Len(t, out.Results, 1)
	require.NotNil(t, out.Results[0].Correct)
	assert.False(t, *out.Results[0].Correct)
}

func TestEvaluate_ZeroMaxIsSafe(t *testing.T) {
	qs := []Q{
		{ID: "a", Type: SingleChoice, Points: 0, Options: []Choice{{ID: "1", IsCorrect: true}}},
		{ID: "b", Type: FreeText, Points: 0},
	}
	out := NewScorer().Evaluate(qs, map[string]any{"a": "1", "b": "text"})
	assert.Zero(t, out.MaxPossibleScore)
	assert.Zero(t, out.Percentage)
}

func TestEvaluate_UnansweredFactorAbsent(t *testing.T) {
	qs := []Q{
		ratingQ(false),
		{ID: "r2", Type: RatingScale, Points: 1, ScaleMin: 1, ScaleMax: 5, FactorID: "neuroticism", Weight: 1},
	}
	out := NewScorer().Evaluate(qs, map[string]any{"r1": float64(3)})
	_, ok := out.FactorScores["neuroticism"]
	assert.False(t, ok)
	assert.Equal(t, 60, out.FactorScores["openness"])
	// the unanswered item still counts towards the maximum
	assert.Equal(t, 2.0, out.MaxPossibleScore)
	assert.Equal(t, 50.0, out.Percentage)
}

func TestEvaluate_PercentageBounds(t *testing.T) {
	qs := []Q{singleQ(), multiQ(), ratingQ(true), {ID: "ft", Type: FreeText, Points: 3}}
	sheets := []map[string]any{
		{},
		{"q1": "B", "q2": []any{"A", "B"}, "r1": float64(2), "ft": "x"},
		{"q1": "C", "q2": []any{"C"}, "r1": "bad"},
		{"q1": float64(3), "q2": "A", "r1": float64(5)},
	}
	s := NewScorer()
	for _, answers := range sheets {
		out := s.Evaluate(qs, answers)
		assert.GreaterOrEqual(t, out.Percentage, 0.0)
		assert.LessOrEqual(t, out.Percentage, 100.0)
		assert.LessOrEqual(t, out.Score, out.MaxPossibleScore)
	}
}

func TestPercentage_NonFiniteInputs(t *testing.T) {
	assert.Zero(t, Percentage(math.Inf(1), math.Inf(1)))
	assert.Zero(t, Percentage(math.NaN(), 10))
	assert.Zero(t, Percentage(5, math.NaN()))
	assert.Equal(t, 100.0, Percentage(math.Inf(1), 10))

	out := NewScorer().Evaluate([]Q{{ID: "q1", Type: SingleChoice, Points: math.Inf(1), Options: []Choice{{ID: "A", IsCorrect: true}}}},
		map[string]any{"q1": "A"})
	assert.Zero(t, out.Percentage)
	assert.False(t, Passed(out.Percentage, 50))
}

func TestEvaluate_Deterministic(t *testing.T) {
	qs := []Q{
		singleQ(),
		{ID: "a", Type: RatingScale, Points: 1, ScaleMin: 1, ScaleMax: 7, FactorID: "f", Weight: 0.3},
		{ID: "b", Type: RatingScale, Points: 1, ScaleMin: 1, ScaleMax: 7, FactorID: "f", Weight: 1.7, IsReverse: true},
		{ID: "c", Type: RatingScale, Points: 1, ScaleMin: 1, ScaleMax: 7, FactorID: "g", Weight: 1},
	}
	answers := map[string]any{"q1": "B", "a": float64(3), "b": float64(6), "c": float64(7)}
	s := NewScorer()

	first, err := json.Marshal(s.Evaluate(qs, answers))
	require.NoError(t, err)
	second, err := json.Marshal(s.Evaluate(qs, answers))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestPassed_InclusiveThreshold(t *testing.T) {
	assert.True(t, Passed(70, 70))
	assert.False(t, Passed(69.99, 70))
	assert.True(t, Passed(0, 0))
}

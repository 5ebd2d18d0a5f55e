package psytest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

func TestValidateDefinition_Accepts(t *testing.T) {
	require.NoError(t, ValidateDefinition(mixedTest()))
}

func TestValidateDefinition_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*TestDefinition)
		field string
	}{
		{"missing title", func(d *TestDefinition) { d.Title = "" }, "title"},
		{"passing score above 100", func(d *TestDefinition) { d.PassingScore = 120 }, "passing_score"},
		{"duplicate question", func(d *TestDefinition) { d.Questions[1].ID = "q1" }, "questions[1].id"},
		{"unknown type", func(d *TestDefinition) { d.Questions[0].Type = "essay" }, "questions[0].type"},
		{"no correct option", func(d *TestDefinition) { d.Questions[0].Options[1].IsCorrect = false }, "questions[0].options"},
		{"inverted scale", func(d *TestDefinition) { d.Questions[1].ScaleMin = 5 }, "questions[1].scale_max"},
		{"unknown factor", func(d *TestDefinition) { d.Questions[1].FactorID = "grit" }, "questions[1].factor_id"},
		{"negative points", func(d *TestDefinition) { d.Questions[0].Points = -1 }, "questions[0].points"},
		{"infinite points", func(d *TestDefinition) { d.Questions[0].Points = math.Inf(1) }, "questions[0].points"},
		{"infinite option points", func(d *TestDefinition) { d.Questions[0].Options[0].Points = math.Inf(1) }, "questions[0].options[0].points"},
		{"infinite weight", func(d *TestDefinition) { d.Questions[1].Weight = math.Inf(1) }, "questions[1].weight"},
		{"infinite scale max", func(d *TestDefinition) { d.Questions[1].ScaleMax = math.Inf(1) }, "questions[1].scale_max"},
		{"NaN scale min", func(d *TestDefinition) { d.Questions[1].ScaleMin = math.NaN() }, "questions[1].scale_min"},
		{"true_false with three options", func(d *TestDefinition) {
			d.Questions[0].Type = scoring.TrueFalse
			d.Questions[0].Options = append(d.Questions[0].Options, AnswerOption{ID: "C"})
		}, "questions[0].options"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := mixedTest()
			tc.edit(&d)
			err := ValidateDefinition(d)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tc.field)
			assert.Equal(t, KindInvalidInput, KindOf(err))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Msg: "bad", Fields: map[string]string{"b": "required", "a": "gte"}}
	assert.Equal(t, "bad (a: gte; b: required)", err.Error())
	assert.Equal(t, "bad", invalid("bad").Error())
}

func TestTakerViewHidesKey(t *testing.T) {
	d := mixedTest()
	d.Questions[0].Options[1].Points = 3
	d.Interpretation = &scoring.InterpretationConfig{}

	v := d.TakerView()
	assert.Nil(t, v.Interpretation)
	for _, o := range v.Questions[0].Options {
		assert.False(t, o.IsCorrect)
		assert.Zero(t, o.Points)
	}
	assert.True(t, d.Questions[0].Options[1].IsCorrect, "original must be untouched")
}

package psytest

import (
	"time"

	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

// mixedTest has one knowledge item worth 10 points and one openness item.
func mixedTest() TestDefinition {
	return TestDefinition{
		ID:           "t-mixed",
		Title:        "Mixed Screening",
		TestType:     "big_five",
		PassingScore: 50,
		Questions: []Question{
			{ID: "q1", Type: scoring.SingleChoice, Text: "Pick B", Points: 10, Options: []AnswerOption{
				{ID: "A", Text: "A"},
				{ID: "B", Text: "B", IsCorrect: true},
			}},
			{ID: "r1", Type: scoring.RatingScale, Text: "I enjoy new ideas", Points: 1,
				ScaleMin: 1, ScaleMax: 5, FactorID: "openness"},
		},
		Factors: []PersonalityFactor{{ID: "openness", Name: "Openness"}},
	}
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}

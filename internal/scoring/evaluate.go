package scoring

import "math"

// Outcome is the full scoring of one answer sheet.
type Outcome struct {
	Results          []Result
	Score            float64
	MaxPossibleScore float64
	Percentage       float64
	FactorScores     map[string]int
}

// Evaluate scores every question in order and aggregates the rating
// contributions. Every question counts towards the maximum, answered or not.
func (s *Scorer) Evaluate(questions []Q, answers map[string]any) Outcome {
	out := Outcome{Results: make([]Result, 0, len(questions))}
	contribs := make([]Contribution, 0, len(questions))
	for _, q := range questions {
		ans, present := answers[q.ID]
		r := s.Score(q, ans, present)
		out.Score += r.Earned
		out.MaxPossibleScore += r.Max
		if r.Contribution != nil {
			contribs = append(contribs, *r.Contribution)
		}
		out.Results = append(out.Results, r)
	}
	out.Percentage = Percentage(out.Score, out.MaxPossibleScore)
	out.FactorScores = Aggregate(contribs)
	return out
}

// Percentage is score/max*100 bounded to [0, 100]; a zero or undefined
// ratio yields 0.
func Percentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	p := score / maxScore * 100
	switch {
	case math.IsNaN(p):
		return 0
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Passed applies the inclusive passing threshold.
func Passed(percentage, passingScore float64) bool {
	return percentage >= passingScore
}

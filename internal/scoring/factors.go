package scoring

import "math"

// GeneralFactor collects rating answers that are not mapped to any factor.
// It has no interpretive meaning and is never reported.
const GeneralFactor = "general"

type factorSum struct {
	weighted float64
	max      float64
}

// Aggregate turns rating-scale contributions into a 0-100 score per factor:
// round(sum(adjusted*weight) / sum(scaleMax*weight) * 100).
// Factors whose maximum sums to zero are left out rather than reported as 0.
func Aggregate(contribs []Contribution) map[string]int {
	sums := map[string]*factorSum{}
	order := make([]string, 0, len(contribs))
	for _, c := range contribs {
		id := c.FactorID
		if id == "" {
			id = GeneralFactor
		}
		fs, ok := sums[id]
		if !ok {
			fs = &factorSum{}
			sums[id] = fs
			order = append(order, id)
		}
		fs.weighted += c.Adjusted * c.Weight
		fs.max += c.ScaleMax * c.Weight
	}

	out := make(map[string]int, len(sums))
	for _, id := range order {
		if id == GeneralFactor {
			continue
		}
		fs := sums[id]
		if fs.max <= 0 {
			continue
		}
		out[id] = int(math.Round(fs.weighted / fs.max * 100))
	}
	return out
}

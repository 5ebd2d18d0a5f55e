package scoring

import "strings"

// Level is the qualitative band of a factor score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Default band boundaries. A score at or below LowMax is low, at or above
// HighMin is high.
const (
	DefaultLowMax  = 40
	DefaultHighMin = 60
)

// Bound is one edge of a band in an interpretation config.
type Bound struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Ranges overrides the default band boundaries. Only low.max and high.min
// are read.
type Ranges struct {
	Low  *Bound `json:"low,omitempty" yaml:"low,omitempty"`
	High *Bound `json:"high,omitempty" yaml:"high,omitempty"`
}

// LevelTexts holds one description per band.
type LevelTexts struct {
	Low    string `json:"low,omitempty" yaml:"low,omitempty"`
	Medium string `json:"medium,omitempty" yaml:"medium,omitempty"`
	High   string `json:"high,omitempty" yaml:"high,omitempty"`
}

func (t LevelTexts) For(l Level) string {
	switch l {
	case LevelLow:
		return t.Low
	case LevelHigh:
		return t.High
	default:
		return t.Medium
	}
}

// InterpretationConfig is the optional per-test interpretation table.
// The zero value and a nil pointer both mean "use defaults".
type InterpretationConfig struct {
	Ranges       *Ranges               `json:"ranges,omitempty" yaml:"ranges,omitempty"`
	Descriptions map[string]LevelTexts `json:"descriptions,omitempty" yaml:"descriptions,omitempty"`
}

// Thresholds are the resolved band boundaries.
type Thresholds struct {
	LowMax  float64
	HighMin float64
}

// Thresholds resolves the band boundaries, falling back to the defaults for
// anything the config leaves out.
func (c *InterpretationConfig) Thresholds() Thresholds {
	th := Thresholds{LowMax: DefaultLowMax, HighMin: DefaultHighMin}
	if c == nil || c.Ranges == nil {
		return th
	}
	if c.Ranges.Low != nil && c.Ranges.Low.Max != nil {
		th.LowMax = *c.Ranges.Low.Max
	}
	if c.Ranges.High != nil && c.Ranges.High.Min != nil {
		th.HighMin = *c.Ranges.High.Min
	}
	return th
}

// LevelFor maps a 0-100 score to its band.
func LevelFor(score float64, th Thresholds) Level {
	switch {
	case score <= th.LowMax:
		return LevelLow
	case score >= th.HighMin:
		return LevelHigh
	default:
		return LevelMedium
	}
}

// FactorMeta is what the resolver knows about a factor.
type FactorMeta struct {
	ID                string
	Name              string
	DescriptionLow    string
	DescriptionMedium string
	DescriptionHigh   string
}

func (f FactorMeta) texts() LevelTexts {
	return LevelTexts{Low: f.DescriptionLow, Medium: f.DescriptionMedium, High: f.DescriptionHigh}
}

// Interpretation is the resolved reading of one factor score.
type Interpretation struct {
	FactorID    string `json:"factor_id"`
	Name        string `json:"name,omitempty"`
	Score       int    `json:"score"`
	Level       Level  `json:"level"`
	Description string `json:"description"`
}

var genericTexts = LevelTexts{Low: "Low level", Medium: "Medium level", High: "High level"}

// Interpret resolves a level and description for every scored factor.
// Descriptions come from, in order: the config table, the factor's own
// texts, the built-in bank for well-known factors, a generic string.
// Missing metadata never fails; there is always some description.
func Interpret(scores map[string]int, factors []FactorMeta, cfg *InterpretationConfig) map[string]Interpretation {
	meta := make(map[string]FactorMeta, len(factors))
	for _, f := range factors {
		meta[f.ID] = f
	}
	th := cfg.Thresholds()

	out := make(map[string]Interpretation, len(scores))
	for id, score := range scores {
		level := LevelFor(float64(score), th)
		f, known := meta[id]
		name := f.Name
		if !known || name == "" {
			name = id
		}
		out[id] = Interpretation{
			FactorID:    id,
			Name:        name,
			Score:       score,
			Level:       level,
			Description: describe(id, f, level, cfg),
		}
	}
	return out
}

func describe(id string, f FactorMeta, level Level, cfg *InterpretationConfig) string {
	if cfg != nil {
		if t, ok := cfg.Descriptions[id]; ok {
			if d := strings.TrimSpace(t.For(level)); d != "" {
				return d
			}
		}
	}
	if d := strings.TrimSpace(f.texts().For(level)); d != "" {
		return d
	}
	if t, ok := bankTexts(id, f.Name); ok {
		return t.For(level)
	}
	return genericTexts.For(level)
}

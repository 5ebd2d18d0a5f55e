package scoring

import "strings"

// bank holds stock descriptions for the Big Five and HEXACO dimensions.
var bank = map[string]LevelTexts{
	"openness": {
		Low:    "Prefers the familiar and practical; favours proven methods over experimentation.",
		Medium: "Balances curiosity with pragmatism; open to new ideas when they are useful.",
		High:   "Curious and imaginative; enjoys new ideas, abstract problems and varied experiences.",
	},
	"conscientiousness": {
		Low:    "Flexible and spontaneous; may find strict plans and routines constraining.",
		Medium: "Reasonably organised; plans when it matters and adapts when it does not.",
		High:   "Organised, dependable and goal-directed; follows through on commitments.",
	},
	"extraversion": {
		Low:    "Reserved and reflective; recharges through solitary or small-group work.",
		Medium: "Comfortable both with people and alone; adapts to the social setting.",
		High:   "Outgoing and energetic; draws energy from interaction and group activity.",
	},
	"agreeableness": {
		Low:    "Direct and competitive; comfortable challenging others and defending positions.",
		Medium: "Cooperative while able to stand firm when needed.",
		High:   "Warm, trusting and cooperative; values harmony and helping others.",
	},
	"neuroticism": {
		Low:    "Calm and emotionally steady; handles pressure without much distress.",
		Medium: "Generally stable with occasional stress reactions under strain.",
		High:   "Sensitive to stress; experiences worry and mood swings more intensely.",
	},
	"honesty_humility": {
		Low:    "Comfortable with self-promotion and bending rules for personal gain.",
		Medium: "Usually fair and modest, with some pragmatic flexibility.",
		High:   "Sincere, fair and modest; avoids manipulating others.",
	},
	"emotionality": {
		Low:    "Emotionally detached and fearless; rarely seeks reassurance.",
		Medium: "Moderately sensitive; seeks support in difficult situations.",
		High:   "Empathic and sensitive; feels anxiety and attachment strongly.",
	},
}

var bankAliases = map[string]string{
	"openness_to_experience": "openness",
	"emotional_stability":    "neuroticism",
	"honesty":                "honesty_humility",
	"o":                      "openness",
	"c":                      "conscientiousness",
	"e":                      "extraversion",
	"a":                      "agreeableness",
	"n":                      "neuroticism",
}

func bankKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if a, ok := bankAliases[s]; ok {
		return a
	}
	return s
}

func bankTexts(id, name string) (LevelTexts, bool) {
	for _, k := range []string{id, name} {
		if k == "" {
			continue
		}
		if t, ok := bank[bankKey(k)]; ok {
			return t, true
		}
	}
	return LevelTexts{}, false
}

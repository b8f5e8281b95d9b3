package services

import (
	"math"
	"sort"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

// Label is a qualitative relationship descriptor.
type Label string

// Candidate labels, in tie-break order.
const (
	LabelDevoted     Label = "devoted"
	LabelAllied      Label = "allied"
	LabelFriendly    Label = "friendly"
	LabelTrusted     Label = "trusted"
	LabelRespected   Label = "respected"
	LabelBeloved     Label = "beloved"
	LabelHostile     Label = "hostile"
	LabelRival       Label = "rival"
	LabelResented    Label = "resented"
	LabelTerrified   Label = "terrified"
	LabelFeared      Label = "feared"
	LabelWary        Label = "wary"
	LabelIndebted    Label = "indebted"
	LabelIndifferent Label = "indifferent"
)

// AllLabels lists every candidate label.
var AllLabels = []Label{
	LabelDevoted, LabelAllied, LabelFriendly, LabelTrusted, LabelRespected, LabelBeloved,
	LabelHostile, LabelRival, LabelResented, LabelTerrified, LabelFeared, LabelWary,
	LabelIndebted, LabelIndifferent,
}

// Valence is the emotional polarity of a label.
type Valence string

// Valences.
const (
	ValencePositive Valence = "positive"
	ValenceNegative Valence = "negative"
	ValenceNeutral  Valence = "neutral"
)

// Label thresholds.
const (
	thresholdVeryLow  = 0.2
	thresholdLow      = 0.3
	thresholdModerate = 0.5
	thresholdHigh     = 0.7
	thresholdVeryHigh = 0.8

	neutralTolerance = 0.15
)

// ScoredLabel is a label with its intensity in (0, 1].
type ScoredLabel struct {
	Label     Label   `json:"label"`
	Intensity float64 `json:"intensity"`
}

// LabelResult is the ranked label set for one relationship.
type LabelResult struct {
	Primary Label         `json:"primary"`
	Labels  []ScoredLabel `json:"labels"`
	Summary string        `json:"summary"`
}

type dims struct {
	trust, respect, affection, fear, resentment, debt float64
}

type labelScorer struct {
	label Label
	score func(d dims) float64
}

// Each scorer returns 0 when disqualified, otherwise base + (cap-base) * mean(parts).
var labelScorers = []labelScorer{
	{LabelDevoted, func(d dims) float64 {
		if d.affection < thresholdVeryHigh || d.trust < thresholdHigh || d.respect < thresholdHigh ||
			d.fear > thresholdLow || d.resentment > thresholdVeryLow {
			return 0
		}
		return scale(0.7, 1.0,
			excess(d.affection, thresholdVeryHigh),
			excess(d.trust, thresholdHigh),
			excess(d.respect, thresholdHigh),
			deficit(d.fear, thresholdLow),
			deficit(d.resentment, thresholdVeryLow))
	}},
	{LabelAllied, func(d dims) float64 {
		if d.trust < thresholdHigh || d.respect < thresholdModerate ||
			d.resentment > thresholdLow || d.fear > thresholdLow {
			return 0
		}
		return scale(0.6, 0.95,
			excess(d.trust, thresholdHigh),
			excess(d.respect, thresholdModerate),
			deficit(d.resentment, thresholdLow),
			deficit(d.fear, thresholdLow))
	}},
	{LabelFriendly, func(d dims) float64 {
		if d.affection < 0.65 || d.resentment > thresholdLow || d.trust < thresholdModerate {
			return 0
		}
		return scale(0.2, 0.6,
			excess(d.affection, 0.65),
			deficit(d.resentment, thresholdLow),
			excess(d.trust, thresholdModerate))
	}},
	{LabelTrusted, func(d dims) float64 {
		if d.trust < thresholdHigh || d.resentment > thresholdModerate {
			return 0
		}
		return scale(0.3, 0.75,
			excess(d.trust, thresholdHigh),
			deficit(d.resentment, thresholdModerate))
	}},
	{LabelRespected, func(d dims) float64 {
		if d.respect < thresholdHigh {
			return 0
		}
		return scale(0.3, 0.75, excess(d.respect, thresholdHigh))
	}},
	{LabelBeloved, func(d dims) float64 {
		if d.affection < thresholdHigh || d.resentment > thresholdLow || d.fear > thresholdLow {
			return 0
		}
		return scale(0.4, 0.8,
			excess(d.affection, thresholdHigh),
			deficit(d.resentment, thresholdLow),
			deficit(d.fear, thresholdLow))
	}},
	{LabelHostile, func(d dims) float64 {
		if d.resentment < thresholdModerate || d.affection > thresholdLow || d.trust > thresholdLow {
			return 0
		}
		return scale(0.6, 1.0,
			excess(d.resentment, thresholdModerate),
			deficit(d.affection, thresholdLow),
			deficit(d.trust, thresholdLow))
	}},
	{LabelRival, func(d dims) float64 {
		if d.respect < thresholdModerate || d.resentment < thresholdLow || d.resentment >= thresholdHigh ||
			d.trust > thresholdModerate {
			return 0
		}
		return scale(0.4, 0.8,
			excess(d.respect, thresholdModerate),
			band(d.resentment, thresholdLow, thresholdHigh),
			deficit(d.trust, thresholdModerate))
	}},
	{LabelResented, func(d dims) float64 {
		if d.resentment < thresholdHigh {
			return 0
		}
		return scale(0.4, 0.85, excess(d.resentment, thresholdHigh))
	}},
	{LabelTerrified, func(d dims) float64 {
		if d.fear < thresholdVeryHigh {
			return 0
		}
		return scale(0.7, 1.0, excess(d.fear, thresholdVeryHigh))
	}},
	// feared stops where terrified starts.
	{LabelFeared, func(d dims) float64 {
		if d.fear < thresholdHigh || d.fear >= thresholdVeryHigh {
			return 0
		}
		return scale(0.4, 0.8, band(d.fear, thresholdHigh, thresholdVeryHigh))
	}},
	// wary stops where feared starts.
	{LabelWary, func(d dims) float64 {
		if d.fear >= thresholdHigh || (d.fear < thresholdLow && d.trust > thresholdLow) {
			return 0
		}
		return scale(0.2, 0.6, math.Max(band(d.fear, thresholdLow, thresholdHigh), deficit(d.trust, thresholdLow)))
	}},
	{LabelIndebted, func(d dims) float64 {
		if d.debt < thresholdModerate {
			return 0
		}
		return scale(0.3, 0.7, excess(d.debt, thresholdModerate))
	}},
	{LabelIndifferent, func(d dims) float64 {
		maxDev := 0.0
		for _, dev := range []float64{
			math.Abs(d.trust - entities.DimTrust.Default()),
			math.Abs(d.respect - entities.DimRespect.Default()),
			math.Abs(d.affection - entities.DimAffection.Default()),
			math.Abs(d.fear - entities.DimFear.Default()),
			math.Abs(d.resentment - entities.DimResentment.Default()),
			math.Abs(d.debt - entities.DimDebt.Default()),
		} {
			maxDev = math.Max(maxDev, dev)
		}
		if maxDev > 2*neutralTolerance {
			return 0
		}
		return clamp01(1 - maxDev/(2*neutralTolerance))
	}},
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// excess is how far v sits above threshold t, normalized to [0, 1].
func excess(v, t float64) float64 {
	return clamp01((v - t) / (1 - t))
}

// deficit is how far v sits below threshold t, normalized to [0, 1].
func deficit(v, t float64) float64 {
	return clamp01((t - v) / t)
}

// band is the position of v within [lo, hi).
func band(v, lo, hi float64) float64 {
	return clamp01((v - lo) / (hi - lo))
}

func scale(base, ceiling float64, parts ...float64) float64 {
	sum := 0.0
	for _, p := range parts {
		sum += p
	}
	return base + (ceiling-base)*sum/float64(len(parts))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ComputeLabels ranks every candidate label for a relationship. It is pure:
// the same record always yields the same result.
func ComputeLabels(rel entities.Relationship) LabelResult {
	return computeLabels(dims{
		trust:      rel.Trust,
		respect:    rel.Respect,
		affection:  rel.Affection,
		fear:       rel.Fear,
		resentment: rel.Resentment,
		debt:       rel.Debt,
	})
}

func computeLabels(d dims) LabelResult {
	labels := make([]ScoredLabel, 0, len(labelScorers))
	for _, s := range labelScorers {
		if intensity := round3(s.score(d)); intensity > 0 {
			labels = append(labels, ScoredLabel{Label: s.label, Intensity: intensity})
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Intensity > labels[j].Intensity
	})

	primary := LabelIndifferent
	if len(labels) > 0 {
		primary = labels[0].Label
	}
	return LabelResult{
		Primary: primary,
		Labels:  labels,
		Summary: summarize(primary, labels),
	}
}

// LabelValence partitions labels by polarity. Unknown labels are neutral.
func LabelValence(label Label) Valence {
	switch label {
	case LabelDevoted, LabelAllied, LabelFriendly, LabelTrusted, LabelRespected, LabelBeloved:
		return ValencePositive
	case LabelHostile, LabelRival, LabelResented, LabelTerrified, LabelFeared, LabelWary:
		return ValenceNegative
	default:
		return ValenceNeutral
	}
}

type labelCombo struct {
	secondary Label
	phrase    string
}

var summaryCombos = map[Label][]labelCombo{
	LabelDevoted: {
		{LabelTrusted, "Deeply devoted and trusting"},
		{LabelRespected, "Devoted with deep admiration"},
		{LabelIndebted, "Devoted and bound by gratitude"},
	},
	LabelAllied: {
		{LabelFriendly, "A warm and steadfast ally"},
		{LabelRespected, "A respected ally"},
		{LabelIndebted, "An ally who owes a debt"},
	},
	LabelFriendly: {
		{LabelTrusted, "Friendly and trusting"},
		{LabelWary, "Friendly but guarded"},
	},
	LabelTrusted: {
		{LabelRespected, "Trusted and respected"},
		{LabelRival, "Trusted, yet competitive"},
	},
	LabelRespected: {
		{LabelRival, "A respected rival"},
		{LabelFeared, "Respected and feared"},
		{LabelResented, "Grudging respect"},
	},
	LabelBeloved: {
		{LabelTrusted, "Beloved and trusted"},
		{LabelIndebted, "Beloved and owed much"},
	},
	LabelHostile: {
		{LabelFeared, "Hostile and dangerous"},
		{LabelTerrified, "Hateful, yet terrified"},
		{LabelResented, "Bitterly hostile"},
	},
	LabelRival: {
		{LabelRespected, "A worthy rival"},
		{LabelResented, "A bitter rival"},
	},
	LabelResented: {
		{LabelIndebted, "Resentful of an unpaid debt"},
		{LabelWary, "Resentful and suspicious"},
	},
	LabelTerrified: {
		{LabelHostile, "Terrified and hateful"},
		{LabelIndebted, "Terrified and beholden"},
	},
	LabelFeared: {
		{LabelRespected, "Feared and respected"},
		{LabelResented, "Feared and resented"},
	},
	LabelWary: {
		{LabelIndebted, "Wary of an obligation"},
		{LabelRespected, "Cautious respect"},
	},
	LabelIndebted: {
		{LabelTrusted, "Grateful and trusting"},
		{LabelWary, "Uneasily indebted"},
	},
}

var summaryFallbacks = map[Label]string{
	LabelDevoted:     "Utterly devoted",
	LabelAllied:      "A firm ally",
	LabelFriendly:    "On friendly terms",
	LabelTrusted:     "Trusted",
	LabelRespected:   "Held in high regard",
	LabelBeloved:     "Deeply fond",
	LabelHostile:     "Openly hostile",
	LabelRival:       "A rival",
	LabelResented:    "Harbors deep resentment",
	LabelTerrified:   "Paralyzed by fear",
	LabelFeared:      "Afraid",
	LabelWary:        "Wary and guarded",
	LabelIndebted:    "Owes a debt",
	LabelIndifferent: "Indifferent",
}

// summarize picks a combination phrase for the primary and its first two
// secondaries, falling back to the primary's own phrase.
func summarize(primary Label, ranked []ScoredLabel) string {
	var secondaries []Label
	for _, l := range ranked {
		if l.Label == primary {
			continue
		}
		secondaries = append(secondaries, l.Label)
		if len(secondaries) == 2 {
			break
		}
	}
	for _, sec := range secondaries {
		for _, combo := range summaryCombos[primary] {
			if combo.secondary == sec {
				return combo.phrase
			}
		}
	}
	return summaryFallbacks[primary]
}

// Package diagnosis turns a session's recorded hands into per-player style
// profiles: deterministic statistics and classification, plus qualitative
// content from a pluggable Generator.
package diagnosis

import "github.com/lox/pokerstyle/internal/game"

// Classification thresholds. Both are inclusive.
const (
	LooseVPIPThreshold        = 40.0
	AggressiveFactorThreshold = 2.0
)

// Archetype is the business persona attached to a play style.
type Archetype struct {
	Name        string
	Description string
}

var archetypes = map[game.Style]Archetype{
	game.LooseAggressive: {
		Name:        "Innovative Pioneer",
		Description: "Opens new markets and projects through bold decisions and a high bias for action. Takes risks without hesitation and gives the team momentum.",
	},
	game.TightAggressive: {
		Name:        "Strategic Leader",
		Description: "Makes precise calls grounded in careful analysis and leads decisively when it matters. Guides the team with efficient resource allocation and a clear vision.",
	},
	game.LoosePassive: {
		Name:        "Collaborative Supporter",
		Description: "Engages flexibly in many situations and keeps the team in harmony. Respects other views and holds the organisation together through communication.",
	},
	game.TightPassive: {
		Name:        "Steady Manager",
		Description: "Keeps risk to a minimum and delivers stable operations. Protects the foundations of the organisation with sound, evidence-based judgement.",
	},
}

// Classify maps statistics onto one of the four style quadrants.
func Classify(stats game.Stats) game.Style {
	loose := stats.VPIP >= LooseVPIPThreshold
	aggressive := stats.AggressionFactor >= AggressiveFactorThreshold

	switch {
	case loose && aggressive:
		return game.LooseAggressive
	case aggressive:
		return game.TightAggressive
	case loose:
		return game.LoosePassive
	default:
		return game.TightPassive
	}
}

// ArchetypeFor returns the business archetype of a style.
func ArchetypeFor(style game.Style) Archetype {
	return archetypes[style]
}

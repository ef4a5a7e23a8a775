package diagnosis

import (
	"context"
	"math"

	"github.com/lox/pokerstyle/internal/game"
)

// OfflineGenerator derives the content from the statistics alone. It never
// fails and gives the same answer for the same statistics.
type OfflineGenerator struct{}

type styleCopy struct {
	advice     string
	strengths  []string
	weaknesses []string
}

var offlineCopy = map[game.Style]styleCopy{
	game.LooseAggressive: {
		advice:     "Your drive opens doors. Pick the few bets that matter most and give them your full weight before moving on to the next opportunity.",
		strengths:  []string{"Bias for action", "Comfort with uncertainty", "Creates momentum"},
		weaknesses: []string{"Selectivity", "Follow-through on details", "Risk budgeting"},
	},
	game.TightAggressive: {
		advice:     "Your discipline is an asset. Share your reasoning early so the team can move as decisively as you do when the moment comes.",
		strengths:  []string{"Disciplined selection", "Decisive execution", "Clear priorities"},
		weaknesses: []string{"Exploring new options", "Delegating judgement", "Patience with ambiguity"},
	},
	game.LoosePassive: {
		advice:     "You stay involved and keep people together. Practise taking the initiative on one decision each week instead of waiting for others to set the pace.",
		strengths:  []string{"Openness", "Team harmony", "Broad engagement"},
		weaknesses: []string{"Taking initiative", "Saying no", "Pressing an advantage"},
	},
	game.TightPassive: {
		advice:     "Your caution protects the organisation. When the data supports a move, commit to it fully rather than keeping every option open.",
		strengths:  []string{"Risk control", "Consistency", "Evidence-based judgement"},
		weaknesses: []string{"Speed of commitment", "Seizing opportunities", "Visible leadership"},
	},
}

// Generate implements Generator.
func (OfflineGenerator) Generate(_ context.Context, _, _ string, req Request) (Content, error) {
	s := req.Stats
	scores := map[string]float64{
		"riskTolerance":      s.VPIP*0.8 + s.AggressionFactor*10,
		"decisionSpeed":      20 + s.PFR*1.5,
		"analyticalThinking": 100 - math.Abs(s.VPIP-25)*2,
		"adaptability":       20 + s.CBetPercentage*0.5 + s.ShowdownPercentage*0.3,
		"stressManagement":   100 - s.FoldPercentage*1.2,
		"resourceManagement": 100 - s.VPIP + s.PFR*0.5,
	}

	c := offlineCopy[req.Style]
	content := Content{
		Advice:     c.advice,
		Strengths:  append([]string(nil), c.strengths...),
		Weaknesses: append([]string(nil), c.weaknesses...),
	}
	for _, def := range Axes {
		score := clampScore(scores[def.Key])
		content.Axes = append(content.Axes, game.Axis{
			Key:         def.Key,
			Label:       def.Label,
			Score:       score,
			Description: describeScore(score),
		})
	}
	return content, nil
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func describeScore(score int) string {
	switch {
	case score >= 75:
		return "A clear strength in the recorded hands"
	case score >= 50:
		return "Solid, shows up regularly"
	case score >= 25:
		return "Developing, visible in some spots"
	default:
		return "Rarely seen in the recorded hands"
	}
}

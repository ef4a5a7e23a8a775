package diagnosis

import (
	"fmt"
	"strings"

	"github.com/lox/pokerstyle/internal/game"
)

// SystemPrompt instructs the generator to answer with the JSON document that
// schemas/content.json describes.
var SystemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an expert at reading business traits from a person's poker play style.\n")
	b.WriteString("Using the player's poker statistics and style classification, score their business traits on six axes.\n\n")
	b.WriteString("Answer in the following JSON format:\n{\n  \"axes\": [\n")
	for i, a := range Axes {
		fmt.Fprintf(&b, `    {"key": %q, "label": %q, "score": <integer 0-100>, "description": "<concrete assessment of this player's %s, at most 50 characters>"}`,
			a.Key, a.Label, strings.ToLower(a.Label))
		if i < len(Axes)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  ],\n")
	b.WriteString("  \"advice\": \"<business advice for this player, at most 200 characters>\",\n")
	b.WriteString("  \"strengths\": [\"<strength 1>\", \"<strength 2>\", \"<strength 3>\"],\n")
	b.WriteString("  \"weaknesses\": [\"<growth area 1>\", \"<growth area 2>\", \"<growth area 3>\"]\n}\n\n")
	b.WriteString("Output only the JSON document and nothing else.")
	return b.String()
}

// UserPrompt renders the per-player prompt.
func UserPrompt(req Request) string {
	s := req.Stats
	return fmt.Sprintf(`Player: %s
Poker style: %s
Business type: %s

Statistics:
- VPIP (voluntarily put money in pot): %.1f%%
- PFR (preflop raise): %.1f%%
- AF (aggression factor): %.2f
- Fold rate: %.1f%%
- C-bet rate: %.1f%%
- Showdown rate: %.1f%%
- Total hands: %d

Based on this data, diagnose this player's traits as a businessperson.`,
		req.PlayerName, req.Style, req.Archetype.Name,
		s.VPIP, s.PFR, s.AggressionFactor, s.FoldPercentage, s.CBetPercentage, s.ShowdownPercentage, s.TotalHands)
}

// Request is everything a Generator needs for one player.
type Request struct {
	PlayerName string
	Stats      game.Stats
	Style      game.Style
	Archetype  Archetype
}

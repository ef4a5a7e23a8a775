package diagnosis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/lox/pokerstyle/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		vpip float64
		af   float64
		want game.Style
	}{
		{"loose aggressive at thresholds", 40, 2.0, game.LooseAggressive},
		{"tight aggressive", 39.9, 2.0, game.TightAggressive},
		{"loose passive", 40, 1.99, game.LoosePassive},
		{"tight passive", 10, 0.5, game.TightPassive},
		{"no data", 0, 0, game.TightPassive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(game.Stats{VPIP: tc.vpip, AggressionFactor: tc.af})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestArchetypeFor_AllStyles(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range game.Styles {
		a := ArchetypeFor(s)
		require.NotEmpty(t, a.Name, s)
		require.NotEmpty(t, a.Description, s)
		assert.False(t, seen[a.Name], "archetype %q reused", a.Name)
		seen[a.Name] = true
	}
	assert.Equal(t, "Strategic Leader", ArchetypeFor(game.TightAggressive).Name)
}

func TestPrompts(t *testing.T) {
	for _, a := range Axes {
		assert.Contains(t, SystemPrompt, a.Key)
	}

	req := Request{
		PlayerName: "Alice",
		Stats:      game.Stats{VPIP: 50, PFR: 25, AggressionFactor: 1.5, TotalHands: 4},
		Style:      game.LoosePassive,
		Archetype:  ArchetypeFor(game.LoosePassive),
	}
	p := UserPrompt(req)
	assert.Contains(t, p, "Alice")
	assert.Contains(t, p, "loose-passive")
	assert.Contains(t, p, "Collaborative Supporter")
	assert.Contains(t, p, "50.0%")
	assert.Contains(t, p, "1.50")
	assert.Contains(t, p, "Total hands: 4")
}

func validContentJSON(t *testing.T) []byte {
	t.Helper()
	doc := map[string]any{
		"advice":     "Keep going",
		"strengths":  []string{"a", "b"},
		"weaknesses": []string{"c"},
	}
	var axes []map[string]any
	// reverse order to exercise normalisation
	for i := len(Axes) - 1; i >= 0; i-- {
		axes = append(axes, map[string]any{"key": Axes[i].Key, "label": "x", "score": 10 * i, "description": "d"})
	}
	doc["axes"] = axes
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func TestParseContent(t *testing.T) {
	t.Run("valid content is normalised", func(t *testing.T) {
		c, err := ParseContent(validContentJSON(t))
		require.NoError(t, err)
		require.Len(t, c.Axes, len(Axes))
		for i, a := range c.Axes {
			assert.Equal(t, Axes[i].Key, a.Key)
			assert.Equal(t, Axes[i].Label, a.Label)
			assert.Equal(t, 10*i, a.Score)
		}
		assert.Equal(t, "Keep going", c.Advice)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseContent([]byte("sure! here is your answer"))
		require.Error(t, err)
	})

	t.Run("score out of range", func(t *testing.T) {
		data := strings.Replace(string(validContentJSON(t)), `"score":50`, `"score":150`, 1)
		_, err := ParseContent([]byte(data))
		require.Error(t, err)
	})

	t.Run("missing axis", func(t *testing.T) {
		doc := map[string]any{
			"axes":       []map[string]any{{"key": "riskTolerance", "label": "x", "score": 1, "description": "d"}},
			"advice":     "a",
			"strengths":  []string{},
			"weaknesses": []string{},
		}
		data, _ := json.Marshal(doc)
		_, err := ParseContent(data)
		require.Error(t, err)
	})

	t.Run("unknown axis", func(t *testing.T) {
		data := strings.Replace(string(validContentJSON(t)), `"adaptability"`, `"charisma"`, 1)
		_, err := ParseContent([]byte(data))
		require.Error(t, err)
	})
}

func TestOfflineGenerator_Deterministic(t *testing.T) {
	req := Request{
		PlayerName: "Bob",
		Stats:      game.Stats{VPIP: 60, PFR: 40, AggressionFactor: 3, FoldPercentage: 10, CBetPercentage: 50, ShowdownPercentage: 20, TotalHands: 5},
		Style:      game.LooseAggressive,
		Archetype:  ArchetypeFor(game.LooseAggressive),
	}
	var g OfflineGenerator
	a, err := g.Generate(context.Background(), SystemPrompt, UserPrompt(req), req)
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), SystemPrompt, UserPrompt(req), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = a.normalize()
	require.NoError(t, err)
	for _, axis := range a.Axes {
		assert.GreaterOrEqual(t, axis.Score, 0)
		assert.LessOrEqual(t, axis.Score, 100)
		assert.NotEmpty(t, axis.Description)
	}
	assert.NotEmpty(t, a.Advice)
	assert.Len(t, a.Strengths, 3)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-20))
	assert.Equal(t, 100, clampScore(512))
	assert.Equal(t, 43, clampScore(42.6))
}

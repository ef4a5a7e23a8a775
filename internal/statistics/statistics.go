// Package statistics derives poker statistics (VPIP, PFR, aggression factor,
// fold, c-bet and showdown percentages) from a recorded hand history.
package statistics

import (
	"github.com/lox/pokerstyle/internal/game"
)

// Tally accumulates the raw counters for one player across hands.
type Tally struct {
	PlayerID string

	Hands             int // Hands the player was dealt into
	PreflopVoluntary  int // Hands with a preflop call/bet/raise/all-in
	PreflopRaises     int // Hands with a preflop raise or bet
	AggressiveActions int // bet + raise + all-in, every street
	Calls             int // call actions, every street
	Folds             int // fold actions, every street
	Actions           int // every action by the player
	CBetOpportunities int // preflop raiser and the flop saw action
	CBetsMade         int // first flop action was the raiser's bet/raise
	ShowdownsReached  int // river saw action and the player never folded
}

// NewTally creates an empty tally for playerID
func NewTally(playerID string) *Tally {
	return &Tally{PlayerID: playerID}
}

// Add incorporates one hand. Hands the player was not dealt into are ignored.
func (t *Tally) Add(hand game.Hand) {
	if !hand.IsParticipant(t.PlayerID) {
		return
	}
	t.Hands++

	mine := hand.ActionsBy(t.PlayerID)

	voluntary, raisedPreflop, folded := false, false, false
	for _, a := range mine {
		t.Actions++
		switch {
		case a.Type.IsAggressive():
			t.AggressiveActions++
		case a.Type == game.Call:
			t.Calls++
		case a.Type == game.Fold:
			t.Folds++
			folded = true
		}

		if a.Street != game.Preflop {
			continue
		}
		if a.Type == game.Call || a.Type.IsAggressive() {
			voluntary = true
		}
		if a.Type == game.Raise || a.Type == game.Bet {
			raisedPreflop = true
		}
	}

	if voluntary {
		t.PreflopVoluntary++
	}
	if raisedPreflop {
		t.PreflopRaises++
		if flop := game.StreetActions(hand, game.Flop); len(flop) > 0 {
			t.CBetOpportunities++
			first := flop[0]
			if first.PlayerID == t.PlayerID && (first.Type == game.Bet || first.Type == game.Raise) {
				t.CBetsMade++
			}
		}
	}

	if !folded && len(game.StreetActions(hand, game.River)) > 0 {
		t.ShowdownsReached++
	}
}

// Stats converts the counters into percentages and ratios. Every denominator
// is clamped to at least one, so an empty tally yields all zeroes.
func (t *Tally) Stats() game.Stats {
	hands := float64(max(t.Hands, 1))
	stats := game.Stats{
		VPIP:               percent(t.PreflopVoluntary, hands),
		PFR:                percent(t.PreflopRaises, hands),
		AggressionFactor:   float64(t.AggressiveActions) / float64(max(t.Calls, 1)),
		FoldPercentage:     percent(t.Folds, float64(max(t.Actions, 1))),
		ShowdownPercentage: percent(t.ShowdownsReached, hands),
		TotalHands:         t.Hands,
	}
	if t.CBetOpportunities > 0 {
		stats.CBetPercentage = percent(t.CBetsMade, float64(t.CBetOpportunities))
	}
	return stats
}

func percent(n int, d float64) float64 {
	return float64(n) / d * 100
}

// Compute derives playerID's statistics from the full hand history.
func Compute(playerID string, hands []game.Hand) game.Stats {
	t := NewTally(playerID)
	for _, h := range hands {
		t.Add(h)
	}
	return t.Stats()
}

// ComputeAll derives statistics for every player.
func ComputeAll(players []game.Player, hands []game.Hand) map[string]game.Stats {
	out := make(map[string]game.Stats, len(players))
	for _, p := range players {
		out[p.ID] = Compute(p.ID, hands)
	}
	return out
}

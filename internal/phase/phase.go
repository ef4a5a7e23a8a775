// Package phase drives the tablet flow of a session: dealing, privacy
// screens, hole card entry, action entry, dealer street entry and hand
// completion.
//
// The transition function Next is pure. It looks only at the current phase,
// the event and an immutable View of the session. All I/O lives in
// Controller, which persists a change through its Backend first and then asks
// Next for the following phase.
package phase

import (
	"fmt"

	"github.com/lox/pokerstyle/internal/game"
)

// Phase is one step of the flow. PlayerIndex is a roster index of the current
// hand and only meaningful for player-intro, card-input, action-select and
// turn-complete. Street is meaningful for player-intro, action-select,
// turn-complete and dealer-turn.
type Phase struct {
	Step        game.PhaseStep
	PlayerIndex int
	Street      game.Street
}

func Loading() Phase      { return Phase{Step: game.StepLoading} }
func HandStart() Phase    { return Phase{Step: game.StepHandStart} }
func HandComplete() Phase { return Phase{Step: game.StepHandComplete} }
func Diagnosing() Phase   { return Phase{Step: game.StepDiagnosing} }
func Complete() Phase     { return Phase{Step: game.StepComplete} }

func PlayerIntro(idx int, street game.Street) Phase {
	return Phase{Step: game.StepPlayerIntro, PlayerIndex: idx, Street: street}
}

func CardInput(idx int) Phase {
	return Phase{Step: game.StepCardInput, PlayerIndex: idx, Street: game.Preflop}
}

func ActionSelect(idx int, street game.Street) Phase {
	return Phase{Step: game.StepActionSelect, PlayerIndex: idx, Street: street}
}

func TurnComplete(idx int, street game.Street) Phase {
	return Phase{Step: game.StepTurnComplete, PlayerIndex: idx, Street: street}
}

func DealerTurn(street game.Street) Phase {
	return Phase{Step: game.StepDealerTurn, Street: street}
}

// HasPlayer reports whether the phase is about one player.
func (p Phase) HasPlayer() bool {
	switch p.Step {
	case game.StepPlayerIntro, game.StepCardInput, game.StepActionSelect, game.StepTurnComplete:
		return true
	}
	return false
}

func (p Phase) hasStreet() bool {
	return p.HasPlayer() || p.Step == game.StepDealerTurn
}

func (p Phase) String() string {
	switch {
	case p.HasPlayer():
		return fmt.Sprintf("%s(%d, %s)", p.Step, p.PlayerIndex, p.Street)
	case p.Step == game.StepDealerTurn:
		return fmt.Sprintf("%s(%s)", p.Step, p.Street)
	default:
		return string(p.Step)
	}
}

// Record converts the phase to its persisted form.
func (p Phase) Record() game.PhaseRecord {
	rec := game.PhaseRecord{Step: p.Step}
	if p.HasPlayer() {
		idx := p.PlayerIndex
		rec.PlayerIndex = &idx
	}
	if p.hasStreet() {
		rec.Street = p.Street
	}
	return rec
}

// FromRecord restores a persisted phase.
func FromRecord(rec game.PhaseRecord) (Phase, error) {
	if !rec.Step.Valid() {
		return Phase{}, fmt.Errorf("unknown phase step %q", rec.Step)
	}
	p := Phase{Step: rec.Step}
	if p.HasPlayer() {
		if rec.PlayerIndex == nil || *rec.PlayerIndex < 0 {
			return Phase{}, fmt.Errorf("phase %s needs a player index", rec.Step)
		}
		p.PlayerIndex = *rec.PlayerIndex
	}
	if p.hasStreet() {
		if !rec.Street.Valid() {
			return Phase{}, fmt.Errorf("phase %s needs a street", rec.Step)
		}
		p.Street = rec.Street
	}
	return p, nil
}

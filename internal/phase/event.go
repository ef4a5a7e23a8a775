package phase

import (
	"slices"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
)

// Event is something that happened to the flow.
type Event int

const (
	Loaded Event = iota
	Dealt
	Ready
	CardsSubmitted
	ActionSubmitted
	Continue
	BoardDealt
	HandCompleted
	NextHand
	DiagnoseRequested
	Diagnosed
	DiagnosisFailed
)

var eventNames = map[Event]string{
	Loaded:            "loaded",
	Dealt:             "dealt",
	Ready:             "ready",
	CardsSubmitted:    "cards-submitted",
	ActionSubmitted:   "action-submitted",
	Continue:          "continue",
	BoardDealt:        "board-dealt",
	HandCompleted:     "hand-completed",
	NextHand:          "next-hand",
	DiagnoseRequested: "diagnose-requested",
	Diagnosed:         "diagnosed",
	DiagnosisFailed:   "diagnosis-failed",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// accepts lists the events each step reacts to.
var accepts = map[game.PhaseStep][]Event{
	game.StepLoading:      {Loaded},
	game.StepHandStart:    {Dealt},
	game.StepPlayerIntro:  {Ready},
	game.StepCardInput:    {CardsSubmitted},
	game.StepActionSelect: {ActionSubmitted},
	game.StepTurnComplete: {Continue, HandCompleted},
	game.StepDealerTurn:   {BoardDealt, HandCompleted},
	game.StepHandComplete: {NextHand, DiagnoseRequested},
	game.StepDiagnosing:   {Diagnosed, DiagnosisFailed},
}

// Check reports whether ev applies to the current phase.
func Check(current Phase, ev Event) error {
	if !slices.Contains(accepts[current.Step], ev) {
		return apperr.Preconditionf("phase.Check", "%s does not apply in %s", ev, current)
	}
	return nil
}

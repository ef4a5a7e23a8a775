package phase

import (
	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
)

// OutcomeKind says what follows a finished turn.
type OutcomeKind int

const (
	// NextPlayer hands the tablet to Outcome.Player on the same street.
	NextPlayer OutcomeKind = iota
	// DealBoard asks the dealer for the cards of Outcome.Street.
	DealBoard
	// FinishHand ends the hand: fewer than two players remain or the river closed.
	FinishHand
)

// Outcome is the result of AfterTurn.
type Outcome struct {
	Kind   OutcomeKind
	Player int
	Street game.Street
}

// AfterTurn decides what follows idx's turn on street.
func AfterTurn(v View, idx int, street game.Street) Outcome {
	order := v.TurnOrder(street)
	if order.HandDecided() {
		return Outcome{Kind: FinishHand}
	}
	if next, ok := order.NextAfter(idx); ok {
		return Outcome{Kind: NextPlayer, Player: next, Street: street}
	}
	if next, ok := street.Next(); ok {
		return Outcome{Kind: DealBoard, Street: next}
	}
	return Outcome{Kind: FinishHand}
}

// Next returns the phase that follows current when ev happens. The view must
// already reflect whatever ev persisted.
func Next(current Phase, ev Event, v View) (Phase, error) {
	const op = "phase.Next"

	if err := Check(current, ev); err != nil {
		return current, err
	}

	switch current.Step {
	case game.StepLoading:
		return Resume(v), nil

	case game.StepHandStart:
		if !v.HandOpen() || v.Hand.CurrentStreet != game.Preflop {
			return current, apperr.Preconditionf(op, "no freshly dealt hand")
		}
		first, ok := v.TurnOrder(game.Preflop).First()
		if !ok {
			return current, apperr.Preconditionf(op, "hand %d has nobody to act", v.Hand.HandNumber)
		}
		return PlayerIntro(first, game.Preflop), nil

	case game.StepPlayerIntro:
		p, ok := v.Player(current.PlayerIndex)
		if !ok {
			return current, apperr.Preconditionf(op, "no player at index %d", current.PlayerIndex)
		}
		ph, _ := v.Hand.PlayerHand(p.ID)
		if current.Street == game.Preflop && !ph.HasHoleCards() {
			return CardInput(current.PlayerIndex), nil
		}
		return ActionSelect(current.PlayerIndex, current.Street), nil

	case game.StepCardInput:
		p, ok := v.Player(current.PlayerIndex)
		if !ok {
			return current, apperr.Preconditionf(op, "no player at index %d", current.PlayerIndex)
		}
		if ph, _ := v.Hand.PlayerHand(p.ID); !ph.HasHoleCards() {
			return current, apperr.Preconditionf(op, "hole cards for %s are not recorded", p.Name)
		}
		return ActionSelect(current.PlayerIndex, game.Preflop), nil

	case game.StepActionSelect:
		p, ok := v.Player(current.PlayerIndex)
		if !ok {
			return current, apperr.Preconditionf(op, "no player at index %d", current.PlayerIndex)
		}
		if !actedOn(v.Hand, p.ID, current.Street) {
			return current, apperr.Preconditionf(op, "no action recorded for %s on the %s", p.Name, current.Street)
		}
		return TurnComplete(current.PlayerIndex, current.Street), nil

	case game.StepTurnComplete:
		if ev == HandCompleted {
			return finished(current, v)
		}
		out := AfterTurn(v, current.PlayerIndex, current.Street)
		switch out.Kind {
		case NextPlayer:
			return PlayerIntro(out.Player, out.Street), nil
		case DealBoard:
			return DealerTurn(out.Street), nil
		default:
			return finished(current, v)
		}

	case game.StepDealerTurn:
		if ev == HandCompleted {
			return finished(current, v)
		}
		if v.Hand.CurrentStreet != current.Street || len(v.Hand.CommunityCards) != current.Street.BoardSize() {
			return current, apperr.Preconditionf(op, "the %s has not been dealt", current.Street)
		}
		first, ok := v.TurnOrder(current.Street).First()
		if !ok {
			return current, apperr.Preconditionf(op, "nobody left to act on the %s", current.Street)
		}
		return PlayerIntro(first, current.Street), nil

	case game.StepHandComplete:
		if ev == DiagnoseRequested {
			if !v.CanDiagnose() {
				return current, apperr.Preconditionf(op, "%d of %d hands needed for a diagnosis", v.CompletedHands, v.MinHands)
			}
			return Diagnosing(), nil
		}
		if v.DiagnosisDue() {
			return current, apperr.Preconditionf(op, "all %d hands played, diagnose instead", v.TargetHands)
		}
		return HandStart(), nil

	case game.StepDiagnosing:
		if ev == DiagnosisFailed {
			return HandComplete(), nil
		}
		return Complete(), nil
	}

	return current, apperr.Preconditionf(op, "no transition from %s", current)
}

func finished(current Phase, v View) (Phase, error) {
	if v.HandOpen() {
		return current, apperr.Preconditionf("phase.Next", "hand %d is not marked complete", v.Hand.HandNumber)
	}
	return HandComplete(), nil
}

func actedOn(h game.Hand, playerID string, street game.Street) bool {
	for _, a := range h.Actions {
		if a.PlayerID == playerID && a.Street == street {
			return true
		}
	}
	return false
}

// Resume derives the phase to show for a freshly loaded session. The action
// log is authoritative, so a persisted phase is never trusted over it.
func Resume(v View) Phase {
	switch v.Status {
	case game.StatusCompleted:
		return Complete()
	case game.StatusDiagnosing:
		return Diagnosing()
	}
	if !v.HasHand {
		return HandStart()
	}
	if !v.HandOpen() {
		return HandComplete()
	}

	street := v.Hand.CurrentStreet
	order := v.TurnOrder(street)
	last, acted := lastActor(v, street)

	switch {
	case order.HandDecided():
		return TurnComplete(last, street)
	case order.StreetClosed():
		if next, ok := street.Next(); ok {
			return DealerTurn(next)
		}
		return TurnComplete(last, street)
	case acted:
		next, _ := order.NextAfter(last)
		return PlayerIntro(next, street)
	default:
		first, _ := order.First()
		return PlayerIntro(first, street)
	}
}

// lastActor returns the roster index of the latest action on street.
func lastActor(v View, street game.Street) (int, bool) {
	actions := game.StreetActions(v.Hand, street)
	for i := len(actions) - 1; i >= 0; i-- {
		for idx, p := range v.Roster {
			if p.ID == actions[i].PlayerID {
				return idx, true
			}
		}
	}
	return 0, false
}

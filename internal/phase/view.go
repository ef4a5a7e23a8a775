package phase

import "github.com/lox/pokerstyle/internal/game"

// Defaults for the hand target and the diagnosis threshold.
const (
	DefaultTargetHands = 10
	DefaultMinHands    = 3
)

// View is the read-only snapshot Next decides on.
type View struct {
	Status game.SessionStatus
	// Hand is the open hand, or the latest hand when none is open.
	Hand    game.Hand
	HasHand bool
	// Roster holds the hand's participants; phase player indices refer to it.
	Roster         []game.Player
	CompletedHands int
	TargetHands    int
	MinHands       int
}

// NewView snapshots a session.
func NewView(s *game.Session, target, minHands int) View {
	if target <= 0 {
		target = DefaultTargetHands
	}
	if minHands <= 0 {
		minHands = DefaultMinHands
	}
	v := View{TargetHands: target, MinHands: minHands}
	if s == nil {
		return v
	}

	v.Status = s.Status
	v.CompletedHands = s.CompletedHandCount()
	if h, ok := s.OpenHand(); ok {
		v.Hand, v.HasHand = h, true
	} else if n := len(s.Hands); n > 0 {
		v.Hand, v.HasHand = s.Hands[n-1], true
	}
	if v.HasHand {
		v.Roster = s.Roster(v.Hand)
	}
	return v
}

// HandOpen reports whether the view holds a hand still being played.
func (v View) HandOpen() bool {
	return v.HasHand && !v.Hand.IsComplete
}

// TurnOrder replays street of the current hand.
func (v View) TurnOrder(street game.Street) game.TurnOrder {
	return game.DeriveTurnOrder(v.Hand, street, v.Roster)
}

// Player returns the roster entry at idx.
func (v View) Player(idx int) (game.Player, bool) {
	if idx < 0 || idx >= len(v.Roster) {
		return game.Player{}, false
	}
	return v.Roster[idx], true
}

// CanDiagnose reports whether enough hands are complete to diagnose early.
func (v View) CanDiagnose() bool {
	return v.CompletedHands >= v.MinHands
}

// DiagnosisDue reports whether the target has been reached.
func (v View) DiagnosisDue() bool {
	return v.CompletedHands >= v.TargetHands
}

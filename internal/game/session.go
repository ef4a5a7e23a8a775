package game

import (
	"encoding/json"

	"github.com/lox/pokerstyle/internal/cards"
)

// FindPlayer returns the player with the given id.
func (s *Session) FindPlayer(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// SeatTaken reports whether a player already sits at seat.
func (s *Session) SeatTaken(seat int) bool {
	for _, p := range s.Players {
		if p.SeatNumber == seat {
			return true
		}
	}
	return false
}

// HandIndex returns the position of the hand with the given id, -1 if absent.
func (s *Session) HandIndex(id string) int {
	for i := range s.Hands {
		if s.Hands[i].ID == id {
			return i
		}
	}
	return -1
}

// FindHand returns the hand with the given id.
func (s *Session) FindHand(id string) (Hand, bool) {
	if i := s.HandIndex(id); i >= 0 {
		return s.Hands[i], true
	}
	return Hand{}, false
}

// CompletedHandCount returns the number of hands marked complete.
func (s *Session) CompletedHandCount() int {
	n := 0
	for _, h := range s.Hands {
		if h.IsComplete {
			n++
		}
	}
	return n
}

// CompletedHands returns the completed hands in order.
func (s *Session) CompletedHands() []Hand {
	out := make([]Hand, 0, len(s.Hands))
	for _, h := range s.Hands {
		if h.IsComplete {
			out = append(out, h)
		}
	}
	return out
}

// OpenHand returns the first hand that is not complete.
func (s *Session) OpenHand() (Hand, bool) {
	for _, h := range s.Hands {
		if !h.IsComplete {
			return h, true
		}
	}
	return Hand{}, false
}

// Roster returns the hand's participants as session players, in the order of
// the hand's player hands. Turn order indices refer to this slice.
func (s *Session) Roster(hand Hand) []Player {
	roster := make([]Player, 0, len(hand.PlayerHands))
	for _, ph := range hand.PlayerHands {
		if p, ok := s.FindPlayer(ph.PlayerID); ok {
			roster = append(roster, p)
		}
	}
	return roster
}

// Clone returns a deep copy so mutations can be validated before they are saved.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		panic("game: session clone: " + err.Error())
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		panic("game: session clone: " + err.Error())
	}
	return &out
}

// PlayerHand returns the participant entry for playerID.
func (h Hand) PlayerHand(playerID string) (PlayerHand, bool) {
	for _, ph := range h.PlayerHands {
		if ph.PlayerID == playerID {
			return ph, true
		}
	}
	return PlayerHand{}, false
}

// IsParticipant reports whether playerID was dealt into the hand.
func (h Hand) IsParticipant(playerID string) bool {
	_, ok := h.PlayerHand(playerID)
	return ok
}

// UsedCards returns every card already on the board or in a player's hole cards.
func (h Hand) UsedCards() cards.Set {
	used := cards.NewSet(h.CommunityCards...)
	for _, ph := range h.PlayerHands {
		used.Add(ph.HoleCards...)
	}
	return used
}

// FoldedPlayerIDs returns the players who folded anywhere in the hand.
func (h Hand) FoldedPlayerIDs() map[string]bool {
	folded := make(map[string]bool)
	for _, a := range h.Actions {
		if a.Type == Fold {
			folded[a.PlayerID] = true
		}
	}
	return folded
}

// HasFolded reports whether playerID folded in this hand.
func (h Hand) HasFolded(playerID string) bool {
	return h.FoldedPlayerIDs()[playerID]
}

// ActionsBy returns playerID's actions in log order.
func (h Hand) ActionsBy(playerID string) []Action {
	var out []Action
	for _, a := range h.Actions {
		if a.PlayerID == playerID {
			out = append(out, a)
		}
	}
	return out
}

// FindRequest returns the action appended for a client request id.
func (h Hand) FindRequest(requestID string) (Action, bool) {
	if requestID == "" {
		return Action{}, false
	}
	for _, a := range h.Actions {
		if a.RequestID == requestID {
			return a, true
		}
	}
	return Action{}, false
}

package store

import (
	"context"
	"slices"
	"sort"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/game"
)

// ActionInput is a player action as submitted by the tablet. Street and order
// are stamped by the store.
type ActionInput struct {
	PlayerID  string          `json:"playerId"`
	Type      game.ActionType `json:"type"`
	Amount    *float64        `json:"amount,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// HandUpdate is a partial update of a hand. Nil fields are left alone.
type HandUpdate struct {
	// CommunityCards are appended to the board.
	CommunityCards []cards.Card `json:"communityCards,omitempty"`
	CurrentStreet  *game.Street `json:"currentStreet,omitempty"`
	Pot            *float64     `json:"pot,omitempty"`
	IsComplete     *bool        `json:"isComplete,omitempty"`
}

// CreateHand opens a new hand for the given participants, ordered by seat.
func (s *Service) CreateHand(ctx context.Context, sessionID string, playerIDs []string) (*game.Session, game.Hand, error) {
	const op = "store.CreateHand"

	var hand game.Hand
	session, err := s.mutate(ctx, op, sessionID, func(session *game.Session) error {
		switch session.Status {
		case game.StatusDiagnosing, game.StatusCompleted:
			return apperr.Preconditionf(op, "session %s is %s", session.ID, session.Status)
		}
		if open, ok := session.OpenHand(); ok {
			return apperr.Preconditionf(op, "hand %d is still in progress", open.HandNumber)
		}

		participants := make([]game.Player, 0, len(playerIDs))
		seen := make(map[string]bool, len(playerIDs))
		for _, id := range playerIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			p, ok := session.FindPlayer(id)
			if !ok {
				return apperr.Invalidf(op, "player %s is not in session %s", id, session.ID)
			}
			participants = append(participants, p)
		}
		if len(participants) < 2 {
			return apperr.Invalidf(op, "a hand needs at least 2 players, got %d", len(participants))
		}
		sort.SliceStable(participants, func(i, j int) bool {
			return participants[i].SeatNumber < participants[j].SeatNumber
		})

		hand = game.Hand{
			ID:             s.newID(),
			HandNumber:     len(session.Hands) + 1,
			CommunityCards: []cards.Card{},
			Actions:        []game.Action{},
			CurrentStreet:  game.Preflop,
		}
		for _, p := range participants {
			hand.PlayerHands = append(hand.PlayerHands, game.PlayerHand{PlayerID: p.ID, HoleCards: []cards.Card{}})
		}
		session.Hands = append(session.Hands, hand)
		if session.Status == game.StatusWaiting {
			session.Status = game.StatusPlaying
		}
		s.logger.Info("Hand started", "session", session.ID, "hand", hand.ID, "number", hand.HandNumber, "players", len(participants))
		return nil
	})
	if err != nil {
		return nil, game.Hand{}, err
	}
	return session, hand, nil
}

// GetHand returns one hand of a session.
func (s *Service) GetHand(ctx context.Context, sessionID, handID string) (game.Hand, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return game.Hand{}, err
	}
	hand, ok := session.FindHand(handID)
	if !ok {
		return game.Hand{}, apperr.NotFoundf("store.GetHand", "hand %s not found in session %s", handID, sessionID)
	}
	return hand, nil
}

// editHand runs fn against the hand handID inside a session mutation.
func (s *Service) editHand(ctx context.Context, op, sessionID, handID string, fn func(*game.Session, *game.Hand) error) (*game.Session, error) {
	return s.mutate(ctx, op, sessionID, func(session *game.Session) error {
		i := session.HandIndex(handID)
		if i < 0 {
			return apperr.NotFoundf(op, "hand %s not found in session %s", handID, session.ID)
		}
		return fn(session, &session.Hands[i])
	})
}

// SetHoleCards records a participant's two hole cards. Submitting the same
// pair again is a no-op.
func (s *Service) SetHoleCards(ctx context.Context, sessionID, handID, playerID string, hole []cards.Card) (*game.Session, error) {
	const op = "store.SetHoleCards"

	if len(hole) != 2 {
		return nil, apperr.Invalidf(op, "exactly 2 hole cards required, got %d", len(hole))
	}
	for _, c := range hole {
		if err := c.Validate(); err != nil {
			return nil, apperr.Invalidf(op, "%v", err)
		}
	}
	if !cards.Distinct(hole) {
		return nil, apperr.Invalidf(op, "hole cards must be different")
	}

	return s.editHand(ctx, op, sessionID, handID, func(session *game.Session, hand *game.Hand) error {
		idx := slices.IndexFunc(hand.PlayerHands, func(ph game.PlayerHand) bool { return ph.PlayerID == playerID })
		if idx < 0 {
			return apperr.Invalidf(op, "player %s is not in hand %s", playerID, hand.ID)
		}
		ph := &hand.PlayerHands[idx]
		if ph.HasHoleCards() {
			if sameCards(ph.HoleCards, hole) {
				return errUnchanged
			}
			return apperr.Preconditionf(op, "hole cards for player %s are already set", playerID)
		}
		if hand.IsComplete {
			return apperr.Preconditionf(op, "hand %d is complete", hand.HandNumber)
		}
		if hand.CurrentStreet != game.Preflop {
			return apperr.Preconditionf(op, "hole cards can only be entered preflop, hand is on the %s", hand.CurrentStreet)
		}
		used := hand.UsedCards()
		for _, c := range hole {
			if used.Contains(c) {
				return apperr.Invalidf(op, "card %s is already in use", c)
			}
		}
		ph.HoleCards = slices.Clone(hole)
		s.logger.Debug("Hole cards set", "session", session.ID, "hand", hand.ID, "player", playerID)
		return nil
	})
}

func sameCards(a, b []cards.Card) bool {
	if len(a) != len(b) {
		return false
	}
	set := cards.NewSet(a...)
	for _, c := range b {
		if !set.Contains(c) {
			return false
		}
	}
	return true
}

// AddAction appends a player action to the hand's log, stamped with the
// hand's current street and the next order number. A repeated request id
// returns the session unchanged.
func (s *Service) AddAction(ctx context.Context, sessionID, handID string, in ActionInput) (*game.Session, error) {
	const op = "store.AddAction"

	if !in.Type.Valid() {
		return nil, apperr.Invalidf(op, "invalid action type %q", in.Type)
	}
	if in.Type.IsAggressive() {
		if in.Amount == nil || !game.ValidAmount(*in.Amount) {
			return nil, apperr.Invalidf(op, "%s requires a positive amount", in.Type)
		}
	} else if in.Amount != nil {
		return nil, apperr.Invalidf(op, "%s does not take an amount", in.Type)
	}

	return s.editHand(ctx, op, sessionID, handID, func(session *game.Session, hand *game.Hand) error {
		if _, ok := hand.FindRequest(in.RequestID); ok {
			return errUnchanged
		}
		if hand.IsComplete {
			return apperr.Preconditionf(op, "hand %d is complete", hand.HandNumber)
		}
		if !hand.IsParticipant(in.PlayerID) {
			return apperr.Invalidf(op, "player %s is not in hand %s", in.PlayerID, hand.ID)
		}
		if hand.HasFolded(in.PlayerID) {
			return apperr.Preconditionf(op, "player %s has folded", in.PlayerID)
		}

		action := game.Action{
			PlayerID:  in.PlayerID,
			Type:      in.Type,
			Street:    hand.CurrentStreet,
			Order:     len(hand.Actions),
			RequestID: in.RequestID,
		}
		if in.Amount != nil {
			amount := *in.Amount
			action.Amount = &amount
		}
		hand.Actions = append(hand.Actions, action)
		s.logger.Debug("Action recorded", "session", session.ID, "hand", hand.ID, "action", action.String())
		return nil
	})
}

// UpdateHand applies a partial update: board cards, street, pot and the
// completion flag.
func (s *Service) UpdateHand(ctx context.Context, sessionID, handID string, u HandUpdate) (*game.Session, error) {
	const op = "store.UpdateHand"

	for _, c := range u.CommunityCards {
		if err := c.Validate(); err != nil {
			return nil, apperr.Invalidf(op, "%v", err)
		}
	}
	if !cards.Distinct(u.CommunityCards) {
		return nil, apperr.Invalidf(op, "duplicate community card")
	}
	if u.CurrentStreet != nil && !u.CurrentStreet.Valid() {
		return nil, apperr.Invalidf(op, "invalid street %q", *u.CurrentStreet)
	}
	if u.Pot != nil && !game.ValidPot(*u.Pot) {
		return nil, apperr.Invalidf(op, "pot must be a finite amount of at least 0")
	}

	return s.editHand(ctx, op, sessionID, handID, func(session *game.Session, hand *game.Hand) error {
		if hand.IsComplete {
			if u.IsComplete != nil && *u.IsComplete && len(u.CommunityCards) == 0 && u.CurrentStreet == nil && u.Pot == nil {
				return errUnchanged
			}
			return apperr.Preconditionf(op, "hand %d is complete", hand.HandNumber)
		}

		changed := false
		if len(u.CommunityCards) > 0 {
			used := hand.UsedCards()
			for _, c := range u.CommunityCards {
				if used.Contains(c) {
					return apperr.Invalidf(op, "card %s is already in use", c)
				}
			}
			if len(hand.CommunityCards)+len(u.CommunityCards) > 5 {
				return apperr.Invalidf(op, "board cannot hold more than 5 cards")
			}
			hand.CommunityCards = append(hand.CommunityCards, u.CommunityCards...)
			changed = true
		}

		if u.CurrentStreet != nil && *u.CurrentStreet != hand.CurrentStreet {
			next, ok := hand.CurrentStreet.Next()
			if !ok || next != *u.CurrentStreet {
				return apperr.Invalidf(op, "cannot move from %s to %s", hand.CurrentStreet, *u.CurrentStreet)
			}
			hand.CurrentStreet = next
			changed = true
		}
		if u.CurrentStreet != nil && len(hand.CommunityCards) != hand.CurrentStreet.BoardSize() {
			return apperr.Invalidf(op, "%s needs %d community cards, board has %d",
				hand.CurrentStreet, hand.CurrentStreet.BoardSize(), len(hand.CommunityCards))
		}

		if u.Pot != nil && *u.Pot != hand.Pot {
			hand.Pot = *u.Pot
			changed = true
		}
		if u.IsComplete != nil && *u.IsComplete {
			hand.IsComplete = true
			changed = true
			s.logger.Info("Hand complete", "session", session.ID, "hand", hand.ID, "number", hand.HandNumber)
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
}

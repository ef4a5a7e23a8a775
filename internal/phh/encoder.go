package phh

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lox/pokerstyle/internal/game"
)

// Encode writes the hand history to the provided writer in PHH TOML format.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}

	enc := toml.NewEncoder(w)
	// Use tabs for arrays to match human expectations
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeToBytes encodes and returns the result as bytes.
func EncodeToBytes(hand *HandHistory) ([]byte, error) {
	var buf strings.Builder
	if err := Encode(&buf, hand); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// EncodeSession writes every hand of a session as one PHHS document, each
// hand under a table named after its hand number.
func EncodeSession(w io.Writer, s *game.Session) error {
	for i, hand := range s.Hands {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "[%d]\n", hand.HandNumber); err != nil {
			return err
		}
		if err := Encode(w, FromHand(s, hand)); err != nil {
			return fmt.Errorf("phh: hand %d: %w", hand.HandNumber, err)
		}
	}
	return nil
}

// FormatAction converts a recorded action to a PHH action string. seat is
// the zero-based roster index of the actor.
func FormatAction(seat int, a game.Action) string {
	player := fmt.Sprintf("p%d", seat+1)
	switch a.Type {
	case game.Fold:
		return player + " f"
	case game.Check, game.Call:
		return player + " cc"
	case game.Raise, game.Bet, game.AllIn:
		if a.Amount == nil {
			return player + " cbr"
		}
		return player + " cbr " + strconv.FormatFloat(*a.Amount, 'f', -1, 64)
	default:
		return fmt.Sprintf("# %s %s", player, a.Type)
	}
}

// FromHand builds the history of one recorded hand. Hole cards that were
// never entered are written as ????.
func FromHand(s *game.Session, hand game.Hand) *HandHistory {
	roster := s.Roster(hand)
	seatOf := make(map[string]int, len(roster))
	h := &HandHistory{
		Variant:           "NT",
		Table:             s.Code,
		SeatCount:         len(roster),
		Antes:             make([]int, len(roster)),
		BlindsOrStraddles: make([]int, len(roster)),
		StartingStacks:    make([]int, len(roster)),
		HandID:            hand.ID,
		HandNumber:        hand.HandNumber,
		Pot:               hand.Pot,
		Complete:          hand.IsComplete,
	}
	for i, p := range roster {
		seatOf[p.ID] = i
		h.Seats = append(h.Seats, p.SeatNumber)
		h.Players = append(h.Players, p.Name)
	}

	if !s.CreatedAt.IsZero() {
		ts := s.CreatedAt.UTC()
		h.Time = ts.Format("15:04:05")
		h.TimeZone = "UTC"
		h.Day, h.Month, h.Year = ts.Day(), int(ts.Month()), ts.Year()
	}

	for i, p := range roster {
		ph, _ := hand.PlayerHand(p.ID)
		hole := "????"
		if ph.HasHoleCards() {
			hole = Cards(ph.HoleCards)
		}
		h.Actions = append(h.Actions, fmt.Sprintf("d dh p%d %s", i+1, hole))
	}

	actions := game.StreetActions(hand, game.Preflop)
	for _, a := range actions {
		if seat, ok := seatOf[a.PlayerID]; ok {
			h.Actions = append(h.Actions, FormatAction(seat, a))
		}
	}
	for _, street := range game.Streets[1:] {
		if street.BoardSize() > len(hand.CommunityCards) {
			break
		}
		dealt := hand.CommunityCards[street.BoardSize()-street.CardsDealt() : street.BoardSize()]
		h.Actions = append(h.Actions, "d db "+Cards(dealt))
		for _, a := range game.StreetActions(hand, street) {
			if seat, ok := seatOf[a.PlayerID]; ok {
				h.Actions = append(h.Actions, FormatAction(seat, a))
			}
		}
	}
	return h
}

// Package cards defines the playing card value types recorded during a session.
package cards

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit string

const (
	Spade   Suit = "spade"
	Heart   Suit = "heart"
	Diamond Suit = "diamond"
	Club    Suit = "club"
)

// Suits lists every suit in display order.
var Suits = []Suit{Spade, Heart, Diamond, Club}

// Valid reports whether s is one of the four suits
func (s Suit) Valid() bool {
	switch s {
	case Spade, Heart, Diamond, Club:
		return true
	}
	return false
}

// Symbol returns the suit glyph (e.g. ♠)
func (s Suit) Symbol() string {
	switch s {
	case Spade:
		return "♠"
	case Heart:
		return "♥"
	case Diamond:
		return "♦"
	case Club:
		return "♣"
	default:
		return "?"
	}
}

// Letter returns the single letter short form used by Card.Short.
func (s Suit) Letter() string {
	if !s.Valid() {
		return "?"
	}
	return string(s[0])
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Heart || s == Diamond
}

// Rank represents a card rank
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Ranks lists every rank, low to high with the ace on top.
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// Valid reports whether r is one of the thirteen ranks
func (r Rank) Valid() bool {
	return r.Value() != 0
}

// Value returns the numeric value of the rank, aces high (14). Zero for invalid ranks.
func (r Rank) Value() int {
	switch r {
	case Ace:
		return 14
	case King:
		return 13
	case Queen:
		return 12
	case Jack:
		return 11
	case Ten:
		return 10
	case Two, Three, Four, Five, Six, Seven, Eight, Nine:
		return int(r[0] - '0')
	default:
		return 0
	}
}

// Card represents a playing card. Equality is by value.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// New creates a new card
func New(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// Valid reports whether both suit and rank belong to the enumerations
func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

// String returns the display form of a card (e.g., "A♠")
func (c Card) String() string {
	return string(c.Rank) + c.Suit.Symbol()
}

// Short returns the compact form accepted by Parse (e.g. "As", "10h").
func (c Card) Short() string {
	return string(c.Rank) + c.Suit.Letter()
}

// Validate returns an error naming the offending field when the card is invalid.
func (c Card) Validate() error {
	if !c.Suit.Valid() {
		return fmt.Errorf("invalid suit %q", c.Suit)
	}
	if !c.Rank.Valid() {
		return fmt.Errorf("invalid rank %q", c.Rank)
	}
	return nil
}

// Parse parses the compact notation: rank followed by suit letter or symbol.
// "As", "10h", "Td", "Q♣" are all accepted. Matching is case-insensitive.
func Parse(s string) (Card, error) {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) < 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}

	suit, ok := parseSuit(runes[len(runes)-1])
	if !ok {
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}

	rankPart := strings.ToUpper(string(runes[:len(runes)-1]))
	if rankPart == "T" {
		rankPart = "10"
	}
	rank := Rank(rankPart)
	if !rank.Valid() {
		return Card{}, fmt.Errorf("invalid rank in card %q", s)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// MustParse is Parse for literals in tests and fixtures; it panics on error.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseList parses whitespace or comma separated cards.
func ParseList(s string) ([]Card, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseSuit(r rune) (Suit, bool) {
	switch r {
	case 's', 'S', '♠':
		return Spade, true
	case 'h', 'H', '♥':
		return Heart, true
	case 'd', 'D', '♦':
		return Diamond, true
	case 'c', 'C', '♣':
		return Club, true
	}
	return "", false
}

// FullDeck returns the 52 distinct cards, suit-major.
func FullDeck() []Card {
	deck := make([]Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

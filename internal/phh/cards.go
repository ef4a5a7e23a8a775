package phh

import (
	"strings"

	"github.com/lox/pokerstyle/internal/cards"
)

// Card converts a card to PHH notation (Th, As).
func Card(c cards.Card) string {
	rank := string(c.Rank)
	if c.Rank == cards.Ten {
		rank = "T"
	}
	return rank + c.Suit.Letter()
}

// Cards concatenates cards in PHH notation.
func Cards(cs []cards.Card) string {
	var b strings.Builder
	for _, c := range cs {
		b.WriteString(Card(c))
	}
	return b.String()
}

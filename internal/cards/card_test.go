package cards

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Card
	}{
		{"As", New(Spade, Ace)},
		{"10h", New(Heart, Ten)},
		{"Td", New(Diamond, Ten)},
		{"q♣", New(Club, Queen)},
		{" 2C ", New(Club, Two)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "A", "1s", "11h", "Ax", "Zs"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestValidateEnumerations(t *testing.T) {
	assert.NoError(t, New(Heart, King).Validate())
	assert.Error(t, Card{Suit: "star", Rank: King}.Validate())
	assert.Error(t, Card{Suit: Heart, Rank: "1"}.Validate())
	assert.Error(t, Card{}.Validate())
}

func TestJSONShape(t *testing.T) {
	data, err := json.Marshal(New(Spade, Ten))
	require.NoError(t, err)
	assert.JSONEq(t, `{"suit":"spade","rank":"10"}`, string(data))
}

func TestFullDeckDistinct(t *testing.T) {
	deck := FullDeck()
	assert.Len(t, deck, 52)
	assert.True(t, Distinct(deck))
	assert.False(t, Distinct([]Card{MustParse("As"), MustParse("Ks"), MustParse("As")}))
}

func TestShortRoundTrip(t *testing.T) {
	for _, c := range FullDeck() {
		got, err := Parse(c.Short())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

// Package sessioncode generates the short join codes and the ids used for
// sessions, players, hands and requests.
package sessioncode

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Alphabet leaves out characters that are easy to misread on a tablet (0/O, 1/I).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length of a session code.
const Length = 6

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator creates session codes with configurable randomness
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator. A nil RandSource uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a session code using crypto/rand
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a session code using the generator's RandSource
func (g *Generator) Generate() string {
	var b strings.Builder
	b.Grow(Length)
	for range Length {
		b.WriteByte(Alphabet[g.intn(len(Alphabet))])
	}
	return b.String()
}

func (g *Generator) intn(n int) int {
	if g.randSource != nil {
		return g.randSource.IntN(n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("failed to generate random index: " + err.Error())
	}
	return int(v.Int64())
}

// Normalize upper-cases and trims a code typed by a user.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a code is Length characters from Alphabet
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("session code must be exactly %d characters, got %d", Length, len(code))
	}
	for i, c := range code {
		if !strings.ContainsRune(Alphabet, c) {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}

// NewID returns a fresh identifier for sessions, players, hands and requests.
func NewID() string {
	return uuid.NewString()
}

package phase

import (
	"context"

	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/diagnosis"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/store"
)

// Backend is everything the controller persists through. The HTTP client
// implements it for the tablet; LocalBackend wires it straight to a store.
type Backend interface {
	GetSession(ctx context.Context, sessionID string) (*game.Session, error)
	CreateHand(ctx context.Context, sessionID string, playerIDs []string) (*game.Session, game.Hand, error)
	SetHoleCards(ctx context.Context, sessionID, handID, playerID string, hole []cards.Card) (*game.Session, error)
	AddAction(ctx context.Context, sessionID, handID string, in store.ActionInput) (*game.Session, error)
	UpdateHand(ctx context.Context, sessionID, handID string, u store.HandUpdate) (*game.Session, error)
	SaveGameState(ctx context.Context, sessionID string, state game.GameState) (*game.Session, error)
	RunDiagnosis(ctx context.Context, sessionID string) (*game.Session, error)
}

// LocalBackend runs the controller against an in-process store.
type LocalBackend struct {
	*store.Service
	Runner *diagnosis.Runner
}

// RunDiagnosis implements Backend.
func (b LocalBackend) RunDiagnosis(ctx context.Context, sessionID string) (*game.Session, error) {
	return b.Runner.Run(ctx, sessionID)
}

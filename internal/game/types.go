package game

import (
	"fmt"
	"math"
	"time"

	"github.com/lox/pokerstyle/internal/cards"
)

// Street represents a dealing round
type Street string

const (
	Preflop Street = "preflop"
	Flop    Street = "flop"
	Turn    Street = "turn"
	River   Street = "river"
)

// Streets lists the streets in dealing order.
var Streets = []Street{Preflop, Flop, Turn, River}

// Valid reports whether s is one of the four streets
func (s Street) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of the street in dealing order, -1 if invalid.
func (s Street) Index() int {
	switch s {
	case Preflop:
		return 0
	case Flop:
		return 1
	case Turn:
		return 2
	case River:
		return 3
	default:
		return -1
	}
}

// Next returns the following street. ok is false after the river.
func (s Street) Next() (Street, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Streets) {
		return "", false
	}
	return Streets[i+1], true
}

// BoardSize is the cumulative number of community cards once the street is dealt.
func (s Street) BoardSize() int {
	switch s {
	case Flop:
		return 3
	case Turn:
		return 4
	case River:
		return 5
	default:
		return 0
	}
}

// CardsDealt is the number of community cards the dealer adds to reach s.
func (s Street) CardsDealt() int {
	switch s {
	case Flop:
		return 3
	case Turn, River:
		return 1
	default:
		return 0
	}
}

// ActionType represents a recorded player action
type ActionType string

const (
	Fold  ActionType = "fold"
	Check ActionType = "check"
	Call  ActionType = "call"
	Raise ActionType = "raise"
	Bet   ActionType = "bet"
	AllIn ActionType = "all-in"
)

// ActionTypes lists every accepted action type.
var ActionTypes = []ActionType{Fold, Check, Call, Raise, Bet, AllIn}

// Valid reports whether a is one of the enumerated action types
func (a ActionType) Valid() bool {
	switch a {
	case Fold, Check, Call, Raise, Bet, AllIn:
		return true
	}
	return false
}

// IsAggressive returns true for actions that put a new bet in front of the
// other players (raise, bet, all-in).
func (a ActionType) IsAggressive() bool {
	return a == Raise || a == Bet || a == AllIn
}

// ValidAmount reports whether x can be a bet amount: finite and above zero.
func ValidAmount(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

// ValidPot reports whether x can be a pot total: finite and not negative.
func ValidPot(x float64) bool {
	return x >= 0 && !math.IsInf(x, 0)
}

// Player is a seated participant of a session. Immutable once joined.
type Player struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SeatNumber int       `json:"seatNumber"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// Action is one entry of a hand's append-only action log.
type Action struct {
	PlayerID  string     `json:"playerId"`
	Type      ActionType `json:"type"`
	Amount    *float64   `json:"amount"`
	Street    Street     `json:"street"`
	Order     int        `json:"order"`
	RequestID string     `json:"requestId,omitempty"`
}

// String returns a compact description such as "raise 100 (flop)"
func (a Action) String() string {
	if a.Amount != nil {
		return fmt.Sprintf("%s %g (%s)", a.Type, *a.Amount, a.Street)
	}
	return fmt.Sprintf("%s (%s)", a.Type, a.Street)
}

// PlayerHand holds a participant's hole cards; nil until entered.
type PlayerHand struct {
	PlayerID  string       `json:"playerId"`
	HoleCards []cards.Card `json:"holeCards"`
}

// HasHoleCards reports whether both hole cards were entered.
func (ph PlayerHand) HasHoleCards() bool {
	return len(ph.HoleCards) == 2
}

// Hand is a single dealt hand within a session.
type Hand struct {
	ID             string       `json:"id"`
	HandNumber     int          `json:"handNumber"`
	CommunityCards []cards.Card `json:"communityCards"`
	PlayerHands    []PlayerHand `json:"playerHands"`
	Actions        []Action     `json:"actions"`
	Pot            float64      `json:"pot"`
	CurrentStreet  Street       `json:"currentStreet"`
	IsComplete     bool         `json:"isComplete"`
}

// SessionStatus is the lifecycle state of a session
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"
	StatusPlaying    SessionStatus = "playing"
	StatusDiagnosing SessionStatus = "diagnosing"
	StatusCompleted  SessionStatus = "completed"
)

// Valid reports whether s is a known status
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusPlaying, StatusDiagnosing, StatusCompleted:
		return true
	}
	return false
}

// PhaseStep names a step of the tablet flow
type PhaseStep string

const (
	StepLoading      PhaseStep = "loading"
	StepHandStart    PhaseStep = "hand-start"
	StepPlayerIntro  PhaseStep = "player-intro"
	StepCardInput    PhaseStep = "card-input"
	StepActionSelect PhaseStep = "action-select"
	StepTurnComplete PhaseStep = "turn-complete"
	StepDealerTurn   PhaseStep = "dealer-turn"
	StepHandComplete PhaseStep = "hand-complete"
	StepDiagnosing   PhaseStep = "diagnosing"
	StepComplete     PhaseStep = "complete"
)

// Valid reports whether p is a known step
func (p PhaseStep) Valid() bool {
	switch p {
	case StepLoading, StepHandStart, StepPlayerIntro, StepCardInput, StepActionSelect,
		StepTurnComplete, StepDealerTurn, StepHandComplete, StepDiagnosing, StepComplete:
		return true
	}
	return false
}

// PhaseRecord is the persisted form of the tablet's game phase. It never
// holds the client-only loading step.
type PhaseRecord struct {
	Step        PhaseStep `json:"step"`
	PlayerIndex *int      `json:"playerIndex,omitempty"`
	Street      Street    `json:"street,omitempty"`
}

// GameState is the tablet flow state shared with other devices.
type GameState struct {
	GamePhase     PhaseRecord `json:"gamePhase"`
	TotalHands    int         `json:"totalHands"`
	CurrentHandID string      `json:"currentHandId,omitempty"`
}

// Session owns the players, hands and diagnosis results of one recording.
type Session struct {
	ID               string                     `json:"id"`
	Code             string                     `json:"code"`
	Players          []Player                   `json:"players"`
	Hands            []Hand                     `json:"hands"`
	Status           SessionStatus              `json:"status"`
	DiagnosisResults map[string]DiagnosisResult `json:"diagnosisResults"`
	GameState        *GameState                 `json:"gameState,omitempty"`
	CreatedAt        time.Time                  `json:"createdAt"`
	Version          int64                      `json:"version"`
}

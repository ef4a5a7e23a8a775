package phase

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/sessioncode"
	"github.com/lox/pokerstyle/internal/store"
)

// Config tunes a Controller
type Config struct {
	TargetHands int
	MinHands    int
}

// Controller owns the live phase of one tablet. Every operation validates
// locally, persists through the Backend and only then moves the phase. On
// failure the phase and the local selections are left as they were.
type Controller struct {
	backend   Backend
	logger    *log.Logger
	sessionID string
	minHands  int

	mu       sync.Mutex
	phase    Phase
	session  *game.Session
	target   int
	selected []cards.Card
	// pending is reused until the action it names has been accepted, so a
	// retried submission cannot be recorded twice. It only applies to the
	// turn it was minted for.
	pending pendingAction
	err     error
}

// pendingAction is the request id of an action whose response was lost.
type pendingAction struct {
	turn      string
	requestID string
}

// turnKey names one player's turn on one street of a hand.
func turnKey(hand game.Hand, player game.Player) string {
	return hand.ID + "/" + player.ID + "/" + string(hand.CurrentStreet)
}

// NewController creates a controller in the loading phase
func NewController(backend Backend, sessionID string, cfg Config, logger *log.Logger) *Controller {
	if cfg.TargetHands <= 0 {
		cfg.TargetHands = DefaultTargetHands
	}
	if cfg.MinHands <= 0 {
		cfg.MinHands = DefaultMinHands
	}
	return &Controller{
		backend:   backend,
		logger:    logger.WithPrefix("phase"),
		sessionID: sessionID,
		minHands:  cfg.MinHands,
		phase:     Loading(),
		target:    cfg.TargetHands,
	}
}

// Phase returns the live phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Session returns the latest session snapshot, nil before Load.
func (c *Controller) Session() *game.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Err returns the error of the last failed operation.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// View returns the snapshot the next transition will be computed from.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

func (c *Controller) view() View {
	return NewView(c.session, c.target, c.minHands)
}

// Target returns the number of hands to play.
func (c *Controller) Target() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// SetTarget changes the number of hands to play. It cannot drop below the
// hands already completed.
func (c *Controller) SetTarget(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	completed := 0
	if c.session != nil {
		completed = c.session.CompletedHandCount()
	}
	if n < 1 || n < completed {
		return apperr.Invalidf("phase.SetTarget", "target must be at least %d", max(completed, 1))
	}
	c.target = n
	return nil
}

// Selected returns the locally selected cards.
func (c *Controller) Selected() []cards.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cards.Card(nil), c.selected...)
}

// UsedCards returns the cards already in the current hand.
func (c *Controller) UsedCards() cards.Set {
	v := c.View()
	if !v.HasHand {
		return cards.NewSet()
	}
	return v.Hand.UsedCards()
}

// ToggleCard selects or deselects a card for the card-input or dealer-turn
// screen. Cards already in the hand cannot be selected.
func (c *Controller) ToggleCard(card cards.Card) error {
	const op = "phase.ToggleCard"

	c.mu.Lock()
	defer c.mu.Unlock()

	limit := 0
	switch c.phase.Step {
	case game.StepCardInput:
		limit = 2
	case game.StepDealerTurn:
		limit = c.phase.Street.CardsDealt()
	default:
		return apperr.Preconditionf(op, "cards cannot be selected in %s", c.phase)
	}
	if err := card.Validate(); err != nil {
		return apperr.Invalidf(op, "%v", err)
	}
	for i, sel := range c.selected {
		if sel == card {
			c.selected = append(c.selected[:i:i], c.selected[i+1:]...)
			return nil
		}
	}
	if v := c.view(); v.HasHand && v.Hand.UsedCards().Contains(card) {
		return apperr.Invalidf(op, "%s is already in use", card)
	}
	if len(c.selected) >= limit {
		return apperr.Invalidf(op, "only %d cards can be selected", limit)
	}
	c.selected = append(c.selected, card)
	return nil
}

// ClearSelection drops the locally selected cards.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

// CurrentPlayer returns the player the phase is about.
func (c *Controller) CurrentPlayer() (game.Player, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.phase.HasPlayer() {
		return game.Player{}, false
	}
	return c.view().Player(c.phase.PlayerIndex)
}

// LegalActions returns the actions the current player may choose.
func (c *Controller) LegalActions() []game.ActionType {
	v := c.View()
	if !v.HandOpen() {
		return nil
	}
	return game.LegalActions(v.Hand)
}

// Load fetches the session and resumes the phase its log implies.
func (c *Controller) Load(ctx context.Context) error {
	return c.run(ctx, Loaded, func(ctx context.Context) (*game.Session, error) {
		s, err := c.backend.GetSession(ctx, c.sessionID)
		if err != nil {
			return nil, err
		}
		if s.GameState != nil && s.GameState.TotalHands > 0 {
			c.mu.Lock()
			c.target = max(s.GameState.TotalHands, s.CompletedHandCount())
			c.mu.Unlock()
		}
		return s, nil
	})
}

// Refresh replaces the snapshot with a newer one without moving the phase.
// Older or equal versions are ignored.
func (c *Controller) Refresh(s *game.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil || (c.session != nil && s.Version <= c.session.Version) {
		return false
	}
	c.session = s
	return true
}

// Deal starts a new hand with every player of the session.
func (c *Controller) Deal(ctx context.Context) error {
	return c.run(ctx, Dealt, func(ctx context.Context) (*game.Session, error) {
		var ids []string
		for _, p := range c.Session().Players {
			ids = append(ids, p.ID)
		}
		s, hand, err := c.backend.CreateHand(ctx, c.sessionID, ids)
		if err != nil {
			return nil, err
		}
		c.logger.Info("Dealt hand", "session", c.sessionID, "hand", hand.ID, "number", hand.HandNumber)
		return s, nil
	})
}

// Ready acknowledges the privacy screen.
func (c *Controller) Ready(ctx context.Context) error {
	return c.run(ctx, Ready, nil)
}

// SubmitCards records the current player's hole cards. With no cards given
// the local selection is used.
func (c *Controller) SubmitCards(ctx context.Context, hole ...cards.Card) error {
	const op = "phase.SubmitCards"

	return c.run(ctx, CardsSubmitted, func(ctx context.Context) (*game.Session, error) {
		if len(hole) == 0 {
			hole = c.Selected()
		}
		if len(hole) != 2 || !cards.Distinct(hole) {
			return nil, apperr.Invalidf(op, "select exactly 2 different cards")
		}
		used := c.UsedCards()
		for _, card := range hole {
			if err := card.Validate(); err != nil {
				return nil, apperr.Invalidf(op, "%v", err)
			}
			if used.Contains(card) {
				return nil, apperr.Invalidf(op, "%s is already in use", card)
			}
		}
		player, hand, err := c.currentTurn(op)
		if err != nil {
			return nil, err
		}
		return c.backend.SetHoleCards(ctx, c.sessionID, hand.ID, player.ID, hole)
	})
}

// SubmitAction records the current player's action. amount is required for
// raise, bet and all-in and must be nil otherwise.
func (c *Controller) SubmitAction(ctx context.Context, t game.ActionType, amount *float64) error {
	const op = "phase.SubmitAction"

	return c.run(ctx, ActionSubmitted, func(ctx context.Context) (*game.Session, error) {
		player, hand, err := c.currentTurn(op)
		if err != nil {
			return nil, err
		}
		if !game.IsLegal(hand, t) {
			return nil, apperr.Invalidf(op, "%s is not a legal action now", t)
		}
		if t.IsAggressive() && (amount == nil || !game.ValidAmount(*amount)) {
			return nil, apperr.Invalidf(op, "%s needs a positive amount", t)
		}
		if !t.IsAggressive() {
			amount = nil
		}

		turn := turnKey(hand, player)
		c.mu.Lock()
		if c.pending.turn != turn {
			c.pending = pendingAction{turn: turn, requestID: sessioncode.NewID()}
		}
		requestID := c.pending.requestID
		c.mu.Unlock()

		s, err := c.backend.AddAction(ctx, c.sessionID, hand.ID, store.ActionInput{
			PlayerID:  player.ID,
			Type:      t,
			Amount:    amount,
			RequestID: requestID,
		})
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.pending = pendingAction{}
		c.mu.Unlock()
		return s, nil
	})
}

// Continue hands the tablet on after a turn. When the hand is over it is
// marked complete first.
func (c *Controller) Continue(ctx context.Context) error {
	return c.run(ctx, Continue, func(ctx context.Context) (*game.Session, error) {
		c.mu.Lock()
		current, v := c.phase, c.view()
		c.mu.Unlock()

		if AfterTurn(v, current.PlayerIndex, current.Street).Kind != FinishHand || !v.HandOpen() {
			return nil, nil
		}
		complete := true
		s, err := c.backend.UpdateHand(ctx, c.sessionID, v.Hand.ID, store.HandUpdate{IsComplete: &complete})
		if err != nil {
			return nil, err
		}
		c.logger.Info("Hand finished", "session", c.sessionID, "hand", v.Hand.ID)
		return s, nil
	})
}

// DealBoard records the community cards for the dealer-turn street. With no
// cards given the local selection is used.
func (c *Controller) DealBoard(ctx context.Context, board ...cards.Card) error {
	const op = "phase.DealBoard"

	return c.run(ctx, BoardDealt, func(ctx context.Context) (*game.Session, error) {
		c.mu.Lock()
		street, v := c.phase.Street, c.view()
		c.mu.Unlock()

		if len(board) == 0 {
			board = c.Selected()
		}
		if len(board) != street.CardsDealt() {
			return nil, apperr.Invalidf(op, "the %s needs %d cards, got %d", street, street.CardsDealt(), len(board))
		}
		if !cards.Distinct(board) {
			return nil, apperr.Invalidf(op, "board cards must be different")
		}
		if !v.HandOpen() {
			return nil, apperr.Preconditionf(op, "no hand in progress")
		}
		used := v.Hand.UsedCards()
		for _, card := range board {
			if err := card.Validate(); err != nil {
				return nil, apperr.Invalidf(op, "%v", err)
			}
			if used.Contains(card) {
				return nil, apperr.Invalidf(op, "%s is already in use", card)
			}
		}
		return c.backend.UpdateHand(ctx, c.sessionID, v.Hand.ID, store.HandUpdate{
			CommunityCards: board,
			CurrentStreet:  &street,
		})
	})
}

// NextHand moves from a finished hand to dealing the next one.
func (c *Controller) NextHand(ctx context.Context) error {
	return c.run(ctx, NextHand, nil)
}

// Diagnose runs the diagnosis. On failure the flow returns to hand-complete
// and the error is reported so the operator can retry.
func (c *Controller) Diagnose(ctx context.Context) error {
	if err := c.run(ctx, DiagnoseRequested, nil); err != nil {
		return err
	}

	s, err := c.backend.RunDiagnosis(ctx, c.sessionID)
	if err != nil {
		c.logger.Error("Diagnosis failed", "session", c.sessionID, "error", err)
		if ferr := c.run(ctx, DiagnosisFailed, nil); ferr != nil {
			c.logger.Error("Failed to leave diagnosing phase", "error", ferr)
		}
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}
	return c.run(ctx, Diagnosed, func(context.Context) (*game.Session, error) { return s, nil })
}

// DiagnosisDue reports whether the target hand count has been reached.
func (c *Controller) DiagnosisDue() bool {
	return c.View().DiagnosisDue()
}

// CanDiagnose reports whether an early diagnosis is allowed.
func (c *Controller) CanDiagnose() bool {
	return c.View().CanDiagnose()
}

// currentTurn returns the player and the open hand of the live phase.
func (c *Controller) currentTurn(op string) (game.Player, game.Hand, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.view()
	if !v.HandOpen() {
		return game.Player{}, game.Hand{}, apperr.Preconditionf(op, "no hand in progress")
	}
	p, ok := v.Player(c.phase.PlayerIndex)
	if !ok {
		return game.Player{}, game.Hand{}, apperr.Preconditionf(op, "no player at index %d", c.phase.PlayerIndex)
	}
	return p, v.Hand, nil
}

// run applies one event: check, persist, then transition. persist may return
// a nil session when nothing was written.
func (c *Controller) run(ctx context.Context, ev Event, persist func(context.Context) (*game.Session, error)) error {
	c.mu.Lock()
	current := c.phase
	c.mu.Unlock()

	err := c.apply(ctx, current, ev, persist)

	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	if err != nil {
		c.logger.Debug("Transition rejected", "phase", current, "event", ev, "error", err)
	}
	return err
}

func (c *Controller) apply(ctx context.Context, current Phase, ev Event, persist func(context.Context) (*game.Session, error)) error {
	if err := Check(current, ev); err != nil {
		return err
	}

	if persist != nil {
		s, err := persist(ctx)
		if err != nil {
			return err
		}
		if s != nil {
			c.mu.Lock()
			c.session = s
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	if c.phase != current {
		c.mu.Unlock()
		return apperr.Conflictf("phase.Controller", "phase moved to %s while applying %s", c.phase, ev)
	}
	next, err := Next(current, ev, c.view())
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", ev, err)
	}
	c.phase = next
	if next.Step == game.StepHandStart || next.Step == game.StepPlayerIntro || next.Step == game.StepDealerTurn {
		c.selected = nil
	}
	c.mu.Unlock()

	c.logger.Debug("Phase changed", "session", c.sessionID, "from", current, "to", next, "event", ev)
	c.saveState(ctx, next)
	return nil
}

// saveState persists the phase for other devices. Failure only costs them a
// stale view, so it is logged and dropped.
func (c *Controller) saveState(ctx context.Context, p Phase) {
	if p.Step == game.StepLoading {
		return
	}
	c.mu.Lock()
	state := game.GameState{GamePhase: p.Record(), TotalHands: c.target}
	if v := c.view(); v.HasHand {
		state.CurrentHandID = v.Hand.ID
	}
	c.mu.Unlock()

	s, err := c.backend.SaveGameState(ctx, c.sessionID, state)
	if err != nil {
		c.logger.Warn("Failed to save game state", "session", c.sessionID, "phase", p, "error", err)
		return
	}
	c.Refresh(s)
}

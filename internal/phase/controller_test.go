package phase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/diagnosis"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/statistics"
	"github.com/lox/pokerstyle/internal/store"
)

type fixture struct {
	svc     *store.Service
	backend LocalBackend
	session *game.Session
}

func newFixture(t *testing.T, players ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := log.New(io.Discard)

	svc := store.NewService(store.NewMemoryRepository(), logger, store.WithClock(quartz.NewMock(t)))
	runner := diagnosis.NewRunner(svc, diagnosis.OfflineGenerator{}, diagnosis.RunnerConfig{}, quartz.NewMock(t), logger)

	s, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	for i, name := range players {
		s, err = svc.AddPlayer(ctx, s.ID, store.PlayerInput{Name: name, SeatNumber: i + 1})
		require.NoError(t, err)
	}
	return &fixture{svc: svc, backend: LocalBackend{Service: svc, Runner: runner}, session: s}
}

func (f *fixture) controller(t *testing.T, b Backend, cfg Config) *Controller {
	t.Helper()
	c := NewController(b, f.session.ID, cfg, log.New(io.Discard))
	require.NoError(t, c.Load(context.Background()))
	return c
}

func mustCards(t *testing.T, s string) []cards.Card {
	t.Helper()
	cs, err := cards.ParseList(s)
	require.NoError(t, err)
	return cs
}

// turn plays one full turn for the player on the intro screen.
func turn(t *testing.T, c *Controller, hole string, action game.ActionType, amount float64) {
	t.Helper()
	ctx := context.Background()

	require.Equal(t, game.StepPlayerIntro, c.Phase().Step, "phase %s", c.Phase())
	require.NoError(t, c.Ready(ctx))
	if c.Phase().Step == game.StepCardInput {
		require.NoError(t, c.SubmitCards(ctx, mustCards(t, hole)...))
	}
	require.Equal(t, game.StepActionSelect, c.Phase().Step)

	var amt *float64
	if action.IsAggressive() {
		amt = &amount
	}
	require.NoError(t, c.SubmitAction(ctx, action, amt))
	require.Equal(t, game.StepTurnComplete, c.Phase().Step)
	require.NoError(t, c.Continue(ctx))
}

func dealBoard(t *testing.T, c *Controller, street game.Street, board string) {
	t.Helper()
	require.Equal(t, DealerTurn(street), c.Phase())
	require.NoError(t, c.DealBoard(context.Background(), mustCards(t, board)...))
}

func currentHand(t *testing.T, c *Controller) game.Hand {
	t.Helper()
	v := c.View()
	require.True(t, v.HasHand)
	return v.Hand
}

func TestController_AllChecksToShowdown(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	c := f.controller(t, f.backend, Config{})
	ctx := context.Background()

	assert.Equal(t, HandStart(), c.Phase())
	require.NoError(t, c.Deal(ctx))
	assert.Equal(t, PlayerIntro(0, game.Preflop), c.Phase())

	turn(t, c, "As Ah", game.Check, 0)
	assert.Equal(t, PlayerIntro(1, game.Preflop), c.Phase())
	turn(t, c, "Ks Kh", game.Check, 0)

	dealBoard(t, c, game.Flop, "2d 7h 9s")
	turn(t, c, "", game.Check, 0)
	turn(t, c, "", game.Check, 0)
	dealBoard(t, c, game.Turn, "Tc")
	turn(t, c, "", game.Check, 0)
	turn(t, c, "", game.Check, 0)
	dealBoard(t, c, game.River, "Jd")
	turn(t, c, "", game.Check, 0)
	turn(t, c, "", game.Check, 0)

	assert.Equal(t, HandComplete(), c.Phase())
	hand := currentHand(t, c)
	assert.True(t, hand.IsComplete)
	assert.Len(t, hand.CommunityCards, 5)

	s := c.Session()
	for _, p := range s.Players {
		assert.Len(t, hand.ActionsBy(p.ID), 4)
		stats := statistics.Compute(p.ID, s.Hands)
		assert.Equal(t, 0.0, stats.FoldPercentage)
		assert.Equal(t, 100.0, stats.ShowdownPercentage)
	}

	require.NotNil(t, s.GameState)
	assert.Equal(t, game.StepHandComplete, s.GameState.GamePhase.Step)
	assert.Equal(t, hand.ID, s.GameState.CurrentHandID)
}

func TestController_FoldEndsHandImmediately(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	c := f.controller(t, f.backend, Config{})
	ctx := context.Background()

	require.NoError(t, c.Deal(ctx))
	turn(t, c, "As Ah", game.Fold, 0)

	assert.Equal(t, HandComplete(), c.Phase())
	hand := currentHand(t, c)
	assert.True(t, hand.IsComplete)
	assert.Empty(t, hand.CommunityCards)

	ann := c.Session().Players[0]
	stats := statistics.Compute(ann.ID, c.Session().Hands)
	assert.Equal(t, 0.0, stats.VPIP)
	assert.Equal(t, 100.0, stats.FoldPercentage)
}

func TestController_CompletedHandStats(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	c := f.controller(t, f.backend, Config{})
	ctx := context.Background()

	require.NoError(t, c.Deal(ctx))
	turn(t, c, "As Ah", game.Raise, 100)
	turn(t, c, "Ks Kh", game.Call, 0)
	dealBoard(t, c, game.Flop, "2d 7h 9s")
	turn(t, c, "", game.Check, 0)
	turn(t, c, "", game.Raise, 200)
	// the flop raise sends action back to seat 0
	assert.Equal(t, PlayerIntro(0, game.Flop), c.Phase())
	assert.Equal(t, []game.ActionType{game.Fold, game.Call, game.Raise}, c.LegalActions())
	turn(t, c, "", game.Call, 0)
	dealBoard(t, c, game.Turn, "Tc")
	turn(t, c, "", game.Check, 0)
	turn(t, c, "", game.Check, 0)
	dealBoard(t, c, game.River, "Jd")
	turn(t, c, "", game.Check, 0)
	turn(t, c, "", game.Check, 0)
	require.Equal(t, HandComplete(), c.Phase())

	s := c.Session()
	p1 := statistics.Compute(s.Players[0].ID, s.Hands)
	assert.Equal(t, 100.0, p1.VPIP)
	assert.Equal(t, 100.0, p1.PFR)
	assert.Equal(t, 1.0, p1.AggressionFactor)

	p2 := statistics.Compute(s.Players[1].ID, s.Hands)
	assert.Equal(t, 100.0, p2.ShowdownPercentage)
}

func TestController_RejectsInvalidInputWithoutMoving(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	c := f.controller(t, f.backend, Config{})
	ctx := context.Background()

	err := c.Ready(ctx)
	assert.Equal(t, apperr.PreconditionFailed, apperr.KindOf(err))
	assert.Equal(t, err, c.Err())

	require.NoError(t, c.Deal(ctx))
	assert.NoError(t, c.Err())
	require.NoError(t, c.Ready(ctx))
	require.Equal(t, CardInput(0), c.Phase())

	err = c.SubmitCards(ctx, mustCards(t, "As As")...)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Equal(t, CardInput(0), c.Phase())

	require.NoError(t, c.ToggleCard(cards.MustParse("As")))
	require.NoError(t, c.ToggleCard(cards.MustParse("Ah")))
	assert.Error(t, c.ToggleCard(cards.MustParse("Ad")), "third card")
	require.NoError(t, c.SubmitCards(ctx))
	require.Equal(t, ActionSelect(0, game.Preflop), c.Phase())

	err = c.SubmitAction(ctx, game.Call, nil)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err), "nothing to call")
	err = c.SubmitAction(ctx, game.Raise, nil)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err), "raise needs an amount")
	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		err = c.SubmitAction(ctx, game.Raise, &v)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err), "raise %v", v)
	}
	assert.Equal(t, ActionSelect(0, game.Preflop), c.Phase())

	require.NoError(t, c.SubmitAction(ctx, game.Check, nil))
	require.NoError(t, c.Continue(ctx))
	require.NoError(t, c.Ready(ctx))

	err = c.SubmitCards(ctx, mustCards(t, "Ah Kd")...)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err), "Ah belongs to seat 0")
	assert.Equal(t, CardInput(1), c.Phase())
}

// flakyBackend records the action but loses the first response.
type flakyBackend struct {
	LocalBackend
	failures  int
	diagnoses int
}

func (b *flakyBackend) AddAction(ctx context.Context, sessionID, handID string, in store.ActionInput) (*game.Session, error) {
	s, err := b.LocalBackend.AddAction(ctx, sessionID, handID, in)
	if err != nil {
		return nil, err
	}
	if b.failures > 0 {
		b.failures--
		return nil, apperr.Transient("flaky.AddAction", errors.New("connection reset"))
	}
	return s, nil
}

func (b *flakyBackend) RunDiagnosis(ctx context.Context, sessionID string) (*game.Session, error) {
	if b.diagnoses > 0 {
		b.diagnoses--
		return nil, apperr.Transient("flaky.RunDiagnosis", errors.New("generator timeout"))
	}
	return b.LocalBackend.RunDiagnosis(ctx, sessionID)
}

func TestController_RetryAfterLostResponseRecordsOnce(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	b := &flakyBackend{LocalBackend: f.backend, failures: 1}
	c := f.controller(t, b, Config{})
	ctx := context.Background()

	require.NoError(t, c.Deal(ctx))
	require.NoError(t, c.Ready(ctx))
	require.NoError(t, c.SubmitCards(ctx, mustCards(t, "As Ah")...))

	err := c.SubmitAction(ctx, game.Check, nil)
	require.Error(t, err)
	assert.True(t, apperr.KindOf(err).Retryable())
	assert.Equal(t, ActionSelect(0, game.Preflop), c.Phase())

	require.NoError(t, c.SubmitAction(ctx, game.Check, nil))
	assert.Equal(t, TurnComplete(0, game.Preflop), c.Phase())

	hand, err := f.svc.GetHand(ctx, f.session.ID, currentHand(t, c).ID)
	require.NoError(t, err)
	assert.Len(t, hand.Actions, 1)
}

func TestController_LostResponseDoesNotLeakIntoNextTurn(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	b := &flakyBackend{LocalBackend: f.backend, failures: 1}
	c := f.controller(t, b, Config{})
	ctx := context.Background()

	require.NoError(t, c.Deal(ctx))
	require.NoError(t, c.Ready(ctx))
	require.NoError(t, c.SubmitCards(ctx, mustCards(t, "As Ah")...))
	require.Error(t, c.SubmitAction(ctx, game.Check, nil))

	// Another device saw Ann's check land and the table moved on to Ben.
	s, err := f.svc.GetSession(ctx, f.session.ID)
	require.NoError(t, err)
	require.True(t, c.Refresh(s))
	c.mu.Lock()
	c.phase = PlayerIntro(1, game.Preflop)
	c.mu.Unlock()

	require.NoError(t, c.Ready(ctx))
	require.NoError(t, c.SubmitCards(ctx, mustCards(t, "Ks Kh")...))
	require.NoError(t, c.SubmitAction(ctx, game.Check, nil))
	assert.Equal(t, TurnComplete(1, game.Preflop), c.Phase())

	hand := currentHand(t, c)
	require.Len(t, hand.Actions, 2)
	assert.Equal(t, s.Players[1].ID, hand.Actions[1].PlayerID)
	assert.NotEqual(t, hand.Actions[0].RequestID, hand.Actions[1].RequestID)
}

func playFoldedHands(t *testing.T, c *Controller, n int) {
	t.Helper()
	ctx := context.Background()
	for i := range n {
		if i > 0 {
			require.NoError(t, c.NextHand(ctx))
		}
		require.NoError(t, c.Deal(ctx))
		turn(t, c, fmt.Sprintf("%ds %dh", i+2, i+2), game.Fold, 0)
		require.Equal(t, HandComplete(), c.Phase())
	}
}

func TestController_Diagnosis(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	b := &flakyBackend{LocalBackend: f.backend, diagnoses: 1}
	c := f.controller(t, b, Config{TargetHands: 3, MinHands: 2})
	ctx := context.Background()

	playFoldedHands(t, c, 1)
	assert.False(t, c.CanDiagnose())
	err := c.Diagnose(ctx)
	assert.Equal(t, apperr.PreconditionFailed, apperr.KindOf(err))

	require.NoError(t, c.NextHand(ctx))
	require.NoError(t, c.Deal(ctx))
	turn(t, c, "3s 3h", game.Fold, 0)
	require.True(t, c.CanDiagnose())
	assert.False(t, c.DiagnosisDue())

	err = c.Diagnose(ctx)
	require.Error(t, err)
	assert.Equal(t, HandComplete(), c.Phase())
	assert.Equal(t, err, c.Err())

	s, err := f.svc.GetSession(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusPlaying, s.Status)

	require.NoError(t, c.Diagnose(ctx))
	assert.Equal(t, Complete(), c.Phase())
	assert.Equal(t, game.StatusCompleted, c.Session().Status)
	assert.Len(t, c.Session().DiagnosisResults, 2)
}

func TestController_TargetReached(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	c := f.controller(t, f.backend, Config{TargetHands: 2, MinHands: 1})

	playFoldedHands(t, c, 2)
	assert.True(t, c.DiagnosisDue())
	assert.Error(t, c.NextHand(context.Background()))

	require.NoError(t, c.SetTarget(3))
	assert.Error(t, c.SetTarget(1), "below completed hands")
	require.NoError(t, c.NextHand(context.Background()))
}

func TestController_ResumeFromAnotherDevice(t *testing.T) {
	f := newFixture(t, "Ann", "Ben", "Cal")
	c := f.controller(t, f.backend, Config{TargetHands: 5})
	ctx := context.Background()

	require.NoError(t, c.Deal(ctx))
	turn(t, c, "As Ah", game.Call, 0)
	require.Equal(t, PlayerIntro(1, game.Preflop), c.Phase())

	other := f.controller(t, f.backend, Config{})
	assert.Equal(t, PlayerIntro(1, game.Preflop), other.Phase())
	assert.Equal(t, 5, other.Target(), "target restored from the saved game state")
}

func TestController_Refresh(t *testing.T) {
	f := newFixture(t, "Ann", "Ben")
	c := f.controller(t, f.backend, Config{})

	current := c.Session()
	stale := current.Clone()
	stale.Version--
	assert.False(t, c.Refresh(stale))

	newer := current.Clone()
	newer.Version++
	assert.True(t, c.Refresh(newer))
	assert.Equal(t, newer.Version, c.Session().Version)
}

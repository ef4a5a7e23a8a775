package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/diagnosis"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/phase"
	"github.com/lox/pokerstyle/internal/server"
	"github.com/lox/pokerstyle/internal/store"
)

var _ phase.Backend = (*Client)(nil)

type testServer struct {
	svc    *store.Service
	srv    *server.Server
	http   *httptest.Server
	clock  *quartz.Mock
	client *Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := log.New(io.Discard)

	svc := store.NewService(store.NewMemoryRepository(), logger, store.WithClock(quartz.NewMock(t)))
	runner := diagnosis.NewRunner(svc, diagnosis.OfflineGenerator{}, diagnosis.RunnerConfig{}, quartz.NewMock(t), logger)
	clock := quartz.NewMock(t)
	srv := server.NewServer(svc, runner, logger, server.WithClock(clock), server.WithPollInterval(time.Second))
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Stop()
		hs.Close()
	})

	return &testServer{
		svc:    svc,
		srv:    srv,
		http:   hs,
		clock:  clock,
		client: New(hs.URL, WithHTTPClient(hs.Client()), WithLogger(logger)),
	}
}

func (ts *testServer) seated(t *testing.T, names ...string) *game.Session {
	t.Helper()
	ctx := context.Background()

	s, err := ts.client.CreateSession(ctx)
	require.NoError(t, err)
	for i, name := range names {
		s, err = ts.client.AddPlayer(ctx, s.ID, store.PlayerInput{Name: name, SeatNumber: i + 1})
		require.NoError(t, err)
	}
	return s
}

func mustCards(t *testing.T, s string) []cards.Card {
	t.Helper()
	cs, err := cards.ParseList(s)
	require.NoError(t, err)
	return cs
}

func TestClientRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client
	ctx := context.Background()

	s := ts.seated(t, "Ann", "Ben")
	assert.Len(t, s.Players, 2)

	byCode, err := c.GetSessionByCode(ctx, strings.ToLower(s.Code))
	require.NoError(t, err)
	assert.Equal(t, s.ID, byCode.ID)

	s, hand, err := c.CreateHand(ctx, s.ID, []string{s.Players[0].ID, s.Players[1].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, hand.HandNumber)
	assert.Equal(t, game.StatusPlaying, s.Status)

	_, err = c.SetHoleCards(ctx, s.ID, hand.ID, s.Players[0].ID, mustCards(t, "As Kd"))
	require.NoError(t, err)

	amount := 40.0
	_, err = c.AddAction(ctx, s.ID, hand.ID, store.ActionInput{PlayerID: s.Players[0].ID, Type: game.Bet, Amount: &amount, RequestID: "r1"})
	require.NoError(t, err)
	again, err := c.AddAction(ctx, s.ID, hand.ID, store.ActionInput{PlayerID: s.Players[0].ID, Type: game.Bet, Amount: &amount, RequestID: "r1"})
	require.NoError(t, err)
	_, err = c.AddAction(ctx, s.ID, hand.ID, store.ActionInput{PlayerID: s.Players[1].ID, Type: game.Fold})
	require.NoError(t, err)

	complete := true
	s, err = c.UpdateHand(ctx, s.ID, hand.ID, store.HandUpdate{IsComplete: &complete})
	require.NoError(t, err)

	got, err := c.GetHand(ctx, s.ID, hand.ID)
	require.NoError(t, err)
	assert.Len(t, got.Actions, 2)
	assert.Len(t, again.Hands[0].Actions, 1)
	assert.True(t, got.IsComplete)

	s, err = c.SaveGameState(ctx, s.ID, game.GameState{GamePhase: game.PhaseRecord{Step: game.StepHandComplete}, TotalHands: 5, CurrentHandID: hand.ID})
	require.NoError(t, err)
	require.NotNil(t, s.GameState)
	assert.Equal(t, 5, s.GameState.TotalHands)

	phh, err := c.HandPHH(ctx, s.ID, hand.ID)
	require.NoError(t, err)
	assert.Contains(t, string(phh), `"d dh p1 AsKd"`)
	assert.Contains(t, string(phh), `"p1 cbr 40"`)

	all, err := c.SessionPHH(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(all), "[1]\n"))

	summaries, err := c.ListSessionSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].CompletedHands)

	s, err = c.RunDiagnosis(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusCompleted, s.Status)
	assert.Len(t, s.DiagnosisResults, 2)
}

func TestClientErrorKinds(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client
	ctx := context.Background()

	_, err := c.GetSession(ctx, "missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	s := ts.seated(t, "Ann", "Ben")
	_, err = c.AddPlayer(ctx, s.ID, store.PlayerInput{Name: "", SeatNumber: 3})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = c.AddPlayer(store.IfVersion(ctx, s.Version-1), s.ID, store.PlayerInput{Name: "Cat", SeatNumber: 3})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	_, err = c.AddPlayer(store.IfVersion(ctx, s.Version), s.ID, store.PlayerInput{Name: "Cat", SeatNumber: 3})
	require.NoError(t, err)

	ids := []string{s.Players[0].ID, s.Players[1].ID}
	_, _, err = c.CreateHand(ctx, s.ID, ids)
	require.NoError(t, err)
	_, _, err = c.CreateHand(ctx, s.ID, ids)
	assert.Equal(t, apperr.PreconditionFailed, apperr.KindOf(err))

	_, err = c.HandPHH(ctx, s.ID, "nope")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestClientTransportFailuresAreTransient(t *testing.T) {
	ctx := context.Background()

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer garbage.Close()
	_, err := New(garbage.URL).GetSession(ctx, "s1")
	assert.Equal(t, apperr.TransientIO, apperr.KindOf(err))

	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"success":false,"error":"internal error","code":"internal"}`)
	}))
	defer internal.Close()
	_, err = New(internal.URL).GetSession(ctx, "s1")
	assert.Equal(t, apperr.TransientIO, apperr.KindOf(err))

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	_, err = New(url).GetSession(ctx, "s1")
	assert.Equal(t, apperr.TransientIO, apperr.KindOf(err))
}

func TestControllerOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	s := ts.seated(t, "Ann", "Ben")
	ctx := context.Background()

	c := phase.NewController(ts.client, s.ID, phase.Config{TargetHands: 1, MinHands: 1}, log.New(io.Discard))
	require.NoError(t, c.Load(ctx))
	require.Equal(t, phase.HandStart(), c.Phase())

	require.NoError(t, c.Deal(ctx))
	require.Equal(t, phase.PlayerIntro(0, game.Preflop), c.Phase())
	require.NoError(t, c.Ready(ctx))
	require.Equal(t, game.StepCardInput, c.Phase().Step)
	require.NoError(t, c.SubmitCards(ctx, mustCards(t, "Qs Qh")...))
	require.NoError(t, c.SubmitAction(ctx, game.Fold, nil))
	require.NoError(t, c.Continue(ctx))

	require.Equal(t, phase.HandComplete(), c.Phase())
	require.True(t, c.DiagnosisDue())
	require.NoError(t, c.Diagnose(ctx))
	assert.Equal(t, phase.Complete(), c.Phase())

	stored, err := ts.svc.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusCompleted, stored.Status)
	require.NotNil(t, stored.GameState)
	assert.Equal(t, game.StepComplete, stored.GameState.GamePhase.Step)

	// A second tablet resumes at the same phase.
	other := phase.NewController(New(ts.http.URL), s.ID, phase.Config{}, log.New(io.Discard))
	require.NoError(t, other.Load(ctx))
	assert.Equal(t, phase.Complete(), other.Phase())
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/diagnosis"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/store"
)

type testEnv struct {
	svc   *store.Service
	srv   *Server
	http  *httptest.Server
	clock *quartz.Mock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := log.New(io.Discard)

	svc := store.NewService(store.NewMemoryRepository(), logger, store.WithClock(quartz.NewMock(t)))
	runner := diagnosis.NewRunner(svc, diagnosis.OfflineGenerator{}, diagnosis.RunnerConfig{}, quartz.NewMock(t), logger)

	clock := quartz.NewMock(t)
	srv := NewServer(svc, runner, logger, WithClock(clock), WithPollInterval(time.Second))
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Stop()
		hs.Close()
	})
	return &testEnv{svc: svc, srv: srv, http: hs, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) (int, Envelope) {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.http.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env Envelope) T {
	t.Helper()
	require.True(t, env.Success, "request failed: %s (%s)", env.Error, env.Code)
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// seated creates a session over the API with the named players in seats 1..n.
func (e *testEnv) seated(t *testing.T, names ...string) *game.Session {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, status)
	s := decodeData[*game.Session](t, env)

	for i, name := range names {
		status, env = e.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/players", store.PlayerInput{Name: name, SeatNumber: i + 1})
		require.Equal(t, http.StatusCreated, status)
		s = decodeData[*game.Session](t, env)
	}
	return s
}

func (e *testEnv) openHand(t *testing.T, s *game.Session) game.Hand {
	t.Helper()
	ids := make([]string, len(s.Players))
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	status, env := e.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/hands", CreateHandRequest{PlayerIDs: ids})
	require.Equal(t, http.StatusCreated, status)
	return decodeData[CreateHandResponse](t, env).Hand
}

func TestServerHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.http.Client().Get(env.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestCreateAndGetSession(t *testing.T) {
	env := newTestEnv(t)

	status, res := env.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, status)
	created := decodeData[*game.Session](t, res)
	assert.Len(t, created.Code, 6)
	assert.Equal(t, game.StatusWaiting, created.Status)

	status, res = env.do(t, http.MethodGet, "/api/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, decodeData[*game.Session](t, res).ID)

	status, res = env.do(t, http.MethodGet, "/api/codes/"+strings.ToLower(created.Code), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, decodeData[*game.Session](t, res).ID)

	status, res = env.do(t, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, res.Success)
	assert.Equal(t, "not_found", res.Code)
	assert.NotEmpty(t, res.Error)
}

func TestListSessions(t *testing.T) {
	env := newTestEnv(t)
	env.seated(t, "Ann")
	env.seated(t, "Ben", "Cat")

	status, res := env.do(t, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, status)
	summaries := decodeData[[]store.SessionSummary](t, res)
	require.Len(t, summaries, 2)

	counts := []int{summaries[0].PlayerCount, summaries[1].PlayerCount}
	assert.ElementsMatch(t, []int{1, 2}, counts)
}

func TestAddPlayerValidation(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann")

	tests := []struct {
		name string
		body any
		code string
	}{
		{"empty name", store.PlayerInput{Name: "  ", SeatNumber: 2}, "validation"},
		{"seat taken", store.PlayerInput{Name: "Ben", SeatNumber: 1}, "validation"},
		{"unknown field", `{"name":"Ben","seat":2}`, "validation"},
		{"malformed", `{"name":`, "validation"},
		{"empty body", "", "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, res := env.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/players", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.code, res.Code)
		})
	}
}

func TestHandFlow(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann", "Ben")
	hand := env.openHand(t, s)
	ann, ben := s.Players[0].ID, s.Players[1].ID
	handPath := "/api/sessions/" + s.ID + "/hands/" + hand.ID

	status, res := env.do(t, http.MethodPut, handPath+"/hole-cards",
		`{"playerId":"`+ann+`","holeCards":[{"suit":"spade","rank":"A"},{"suit":"heart","rank":"A"}]}`)
	require.Equal(t, http.StatusOK, status, res.Error)

	status, res = env.do(t, http.MethodPut, handPath+"/hole-cards",
		`{"playerId":"`+ben+`","holeCards":[{"suit":"spades","rank":"K"},{"suit":"heart","rank":"K"}]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", res.Code)

	amount := 100.0
	status, res = env.do(t, http.MethodPost, handPath+"/actions", store.ActionInput{PlayerID: ann, Type: game.Raise, Amount: &amount})
	require.Equal(t, http.StatusCreated, status, res.Error)

	status, res = env.do(t, http.MethodPost, handPath+"/actions", store.ActionInput{PlayerID: ben, Type: game.Check, Amount: &amount})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", res.Code)

	status, res = env.do(t, http.MethodPost, handPath+"/actions", store.ActionInput{PlayerID: ben, Type: game.Call})
	require.Equal(t, http.StatusCreated, status, res.Error)

	status, res = env.do(t, http.MethodPut, handPath,
		`{"communityCards":[{"suit":"diamond","rank":"2"},{"suit":"heart","rank":"7"},{"suit":"spade","rank":"10"}],"currentStreet":"flop","pot":200}`)
	require.Equal(t, http.StatusOK, status, res.Error)

	status, res = env.do(t, http.MethodPut, handPath, `{"currentStreet":"showdown"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, res = env.do(t, http.MethodGet, handPath, nil)
	require.Equal(t, http.StatusOK, status)
	got := decodeData[game.Hand](t, res)
	assert.Equal(t, game.Flop, got.CurrentStreet)
	assert.Len(t, got.CommunityCards, 3)
	assert.Len(t, got.Actions, 2)
	assert.InDelta(t, 200.0, got.Pot, 0.001)

	status, res = env.do(t, http.MethodGet, "/api/sessions/"+s.ID+"/hands", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]game.Hand](t, res), 1)

	status, res = env.do(t, http.MethodGet, "/api/sessions/"+s.ID+"/hands/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", res.Code)
}

func TestCreateHandWhileOpenIsPrecondition(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann", "Ben")
	env.openHand(t, s)

	status, res := env.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/hands",
		CreateHandRequest{PlayerIDs: []string{s.Players[0].ID, s.Players[1].ID}})
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, "precondition_failed", res.Code)
}

func TestIfMatch(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann")
	path := "/api/sessions/" + s.ID + "/players"
	stale := strconv.FormatInt(s.Version-1, 10)

	status, res := env.do(t, http.MethodPost, path, store.PlayerInput{Name: "Ben", SeatNumber: 2}, "If-Match", stale)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", res.Code)

	status, res = env.do(t, http.MethodPost, path, store.PlayerInput{Name: "Ben", SeatNumber: 2}, "If-Match", "not-a-version")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", res.Code)

	current := `"` + strconv.FormatInt(s.Version, 10) + `"`
	status, res = env.do(t, http.MethodPost, path, store.PlayerInput{Name: "Ben", SeatNumber: 2}, "If-Match", current)
	require.Equal(t, http.StatusCreated, status, res.Error)
	assert.Equal(t, s.Version+1, decodeData[*game.Session](t, res).Version)
}

func TestSaveGameState(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann", "Ben")
	hand := env.openHand(t, s)
	idx := 1

	state := game.GameState{
		GamePhase:     game.PhaseRecord{Step: game.StepPlayerIntro, PlayerIndex: &idx, Street: game.Preflop},
		TotalHands:    5,
		CurrentHandID: hand.ID,
	}
	status, res := env.do(t, http.MethodPut, "/api/sessions/"+s.ID+"/game-state", state)
	require.Equal(t, http.StatusOK, status, res.Error)
	saved := decodeData[*game.Session](t, res)
	require.NotNil(t, saved.GameState)
	assert.Equal(t, game.StepPlayerIntro, saved.GameState.GamePhase.Step)
	assert.Equal(t, 5, saved.GameState.TotalHands)

	state.GamePhase = game.PhaseRecord{Step: game.StepLoading}
	status, res = env.do(t, http.MethodPut, "/api/sessions/"+s.ID+"/game-state", state)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", res.Code)
}

func TestDiagnose(t *testing.T) {
	env := newTestEnv(t)

	empty := env.seated(t, "Ann")
	status, res := env.do(t, http.MethodPost, "/api/sessions/"+empty.ID+"/diagnose", nil)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, "precondition_failed", res.Code)

	s := env.seated(t, "Ann", "Ben")
	hand := env.openHand(t, s)
	handPath := "/api/sessions/" + s.ID + "/hands/" + hand.ID
	status, _ = env.do(t, http.MethodPost, handPath+"/actions", store.ActionInput{PlayerID: s.Players[0].ID, Type: game.Fold})
	require.Equal(t, http.StatusCreated, status)
	status, _ = env.do(t, http.MethodPut, handPath, `{"isComplete":true}`)
	require.Equal(t, http.StatusOK, status)

	status, res = env.do(t, http.MethodPost, "/api/sessions/"+s.ID+"/diagnose", nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	diagnosed := decodeData[*game.Session](t, res)
	assert.Equal(t, game.StatusCompleted, diagnosed.Status)
	assert.Len(t, diagnosed.DiagnosisResults, 2)
	require.NotNil(t, diagnosed.GameState)
	assert.Equal(t, game.StepComplete, diagnosed.GameState.GamePhase.Step)
}

func TestPHHExport(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann", "Ben")
	hand := env.openHand(t, s)
	ctx := context.Background()

	_, err := env.svc.AddAction(ctx, s.ID, hand.ID, store.ActionInput{PlayerID: s.Players[1].ID, Type: game.Fold})
	require.NoError(t, err)
	complete := true
	_, err = env.svc.UpdateHand(ctx, s.ID, hand.ID, store.HandUpdate{IsComplete: &complete})
	require.NoError(t, err)

	resp, err := env.http.Client().Get(env.http.URL + "/api/sessions/" + s.ID + "/hands/" + hand.ID + "/phh")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/toml", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), s.Code+"-1.phh")
	assert.Contains(t, string(body), `"d dh p1 ????"`)
	assert.Contains(t, string(body), `"p2 f"`)
	assert.Contains(t, string(body), "_complete = true")

	resp2, err := env.http.Client().Get(env.http.URL + "/api/sessions/" + s.ID + "/phh")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body2, _ := io.ReadAll(resp2.Body)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.True(t, strings.HasPrefix(string(body2), "[1]\n"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.NotFound, http.StatusNotFound},
		{apperr.Validation, http.StatusBadRequest},
		{apperr.PreconditionFailed, http.StatusPreconditionFailed},
		{apperr.Conflict, http.StatusConflict},
		{apperr.TransientIO, http.StatusServiceUnavailable},
		{apperr.Unknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.kind), tt.kind.String())
	}
}

func TestUnknownErrorsAreInternal(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()

	env.srv.writeError(rec, io.ErrUnexpectedEOF)

	var res Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", res.Code)
	assert.Equal(t, "internal error", res.Error)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	ln, err := newLocalListener()
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- env.srv.Serve(ctx, ln) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, WaitForHealthy(waitCtx, "http://"+ln.Addr().String()))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestWaitForHealthyReportsLastFailure(t *testing.T) {
	ln, err := newLocalListener()
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = WaitForHealthy(ctx, "http://"+addr+"/")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "last attempt")
}

func newLocalListener() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

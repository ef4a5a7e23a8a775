package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerstyle/internal/store"
)

func (e *testEnv) dialWatch(t *testing.T, sessionID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws/sessions/" + sessionID
	return websocket.DefaultDialer.Dial(url, nil)
}

func readWatch(t *testing.T, conn *websocket.Conn) WatchMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg WatchMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWatchPushesNewVersions(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := env.dialWatch(t, s.ID)
	require.NoError(t, err)
	defer conn.Close()

	first := readWatch(t, conn)
	require.Equal(t, WatchMessageSession, first.Type)
	assert.Equal(t, s.Version, first.Session.Version)
	assert.Len(t, first.Session.Players, 1)
	assert.Equal(t, 1, env.srv.WatcherCount())

	// No change: a tick must not push a duplicate snapshot.
	env.clock.Advance(time.Second).MustWait(ctx)

	_, err = env.svc.AddPlayer(ctx, s.ID, store.PlayerInput{Name: "Ben", SeatNumber: 2})
	require.NoError(t, err)
	env.clock.Advance(time.Second).MustWait(ctx)

	second := readWatch(t, conn)
	require.Equal(t, WatchMessageSession, second.Type)
	assert.Equal(t, s.Version+1, second.Session.Version)
	assert.Len(t, second.Session.Players, 2)
}

func TestWatchUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, resp, err := env.dialWatch(t, "missing")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStopClosesWatchers(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann")

	conn, _, err := env.dialWatch(t, s.ID)
	require.NoError(t, err)
	defer conn.Close()
	readWatch(t, conn)

	require.NoError(t, env.srv.Stop())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return env.srv.WatcherCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatchRetriesSnapshotDroppedOnFullBuffer(t *testing.T) {
	env := newTestEnv(t)
	s := env.seated(t, "Ann")

	w := newWatcher(context.Background(), nil, s.ID, env.srv)
	defer w.cancel()
	for len(w.send) < cap(w.send) {
		w.send <- &WatchMessage{Type: WatchMessageSession}
	}

	var sent int64
	require.True(t, w.poll(&sent))
	assert.Zero(t, sent, "a dropped snapshot must not count as sent")

	<-w.send
	require.True(t, w.poll(&sent))
	assert.Equal(t, s.Version, sent)

	var last *WatchMessage
	for len(w.send) > 0 {
		last = <-w.send
	}
	require.NotNil(t, last.Session)
	assert.Equal(t, s.Version, last.Session.Version)
}

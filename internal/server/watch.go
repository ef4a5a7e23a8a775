package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/store"
)

// WatchMessageType is the type of a session watch message
type WatchMessageType string

const (
	WatchMessageSession WatchMessageType = "session"
	WatchMessageError   WatchMessageType = "error"
)

// WatchMessage is pushed to session watchers. Snapshots are read-only; the
// tablet still treats them as possibly stale.
type WatchMessage struct {
	Type      WatchMessageType `json:"type"`
	Session   *game.Session    `json:"session,omitempty"`
	Error     string           `json:"error,omitempty"`
	Code      string           `json:"code,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Watchers never send anything but control frames
	maxMessageSize = 512
)

// Watcher pushes a session snapshot to one websocket whenever the session's
// version changes.
type Watcher struct {
	conn         *websocket.Conn
	send         chan *WatchMessage
	sessionID    string
	sessions     *store.Service
	clock        quartz.Clock
	pollInterval time.Duration
	logger       *log.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
	sendMu       sync.Mutex
	closed       bool
}

func newWatcher(parent context.Context, conn *websocket.Conn, sessionID string, s *Server) *Watcher {
	ctx, cancel := context.WithCancel(parent)
	return &Watcher{
		conn:         conn,
		send:         make(chan *WatchMessage, 16),
		sessionID:    sessionID,
		sessions:     s.sessions,
		clock:        s.clock,
		pollInterval: s.pollInterval,
		logger:       s.logger.WithPrefix("watch"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// handleWatch upgrades GET /ws/sessions/{id} to a session watch
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.sessions.GetSession(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	watcher := newWatcher(s.ctx, conn, id, s)
	s.register(watcher)
	watcher.Start()

	go func() {
		<-watcher.ctx.Done()
		s.unregister(watcher)
	}()
}

// Start begins polling and pumping messages
func (w *Watcher) Start() {
	go w.writePump()
	go w.readPump()
	go w.pollLoop()
}

// Close closes the watch
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeSend()
		err = w.conn.Close()
	})
	return err
}

// closeSend lets writePump flush what is queued and send a close frame.
func (w *Watcher) closeSend() {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.send)
	}
}

// push queues msg for writePump and reports whether it was queued.
func (w *Watcher) push(msg *WatchMessage) bool {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if w.closed {
		return false
	}

	select {
	case w.send <- msg:
		return true
	default:
		w.logger.Warn("Watch send buffer full, retrying on next poll", "session", w.sessionID)
		return false
	}
}

// pollLoop pushes the current snapshot, then a new one for every version
// change seen on the poll ticker. A deleted session ends the watch.
func (w *Watcher) pollLoop() {
	ticker := w.clock.NewTicker(w.pollInterval, "watch", "poll")
	defer ticker.Stop()

	var version int64
	if !w.poll(&version) {
		return
	}
	for {
		select {
		case <-ticker.C:
			if !w.poll(&version) {
				return
			}
		case <-w.ctx.Done():
			return
		}
	}
}

// poll pushes the session if its version differs from *sent, and records
// the version only once the snapshot is queued. It returns false when the
// watch should end.
func (w *Watcher) poll(sent *int64) bool {
	session, err := w.sessions.GetSession(w.ctx, w.sessionID)
	if err != nil {
		if w.ctx.Err() != nil {
			return false
		}
		kind := apperr.KindOf(err)
		if kind == apperr.NotFound {
			w.push(&WatchMessage{Type: WatchMessageError, Error: err.Error(), Code: kind.String(), Timestamp: w.clock.Now()})
			w.closeSend()
			return false
		}
		w.logger.Warn("Watch poll failed", "session", w.sessionID, "error", err)
		return true
	}
	if session.Version != *sent && w.push(&WatchMessage{Type: WatchMessageSession, Session: session, Timestamp: w.clock.Now()}) {
		*sent = session.Version
	}
	return true
}

// readPump discards client frames and notices when the peer goes away
func (w *Watcher) readPump() {
	defer func() { _ = w.Close() }() // Ignore close errors during cleanup

	w.conn.SetReadLimit(maxMessageSize)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				w.logger.Error("WebSocket error", "error", err)
			}
			return
		}
	}
}

// writePump handles outgoing messages to the client
func (w *Watcher) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = w.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := w.conn.WriteJSON(message); err != nil {
				w.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

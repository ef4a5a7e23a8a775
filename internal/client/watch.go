package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/server"
)

// watchURL turns the API base URL into the session watch websocket URL.
func (c *Client) watchURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/ws/sessions/" + url.PathEscape(sessionID)
	return u.String(), nil
}

// Watch streams session snapshots pushed by the server to fn until ctx is
// cancelled, the connection drops or the session disappears. Snapshots may
// be stale by the time fn sees them.
func (c *Client) Watch(ctx context.Context, sessionID string, fn func(*game.Session)) error {
	const op = "client.Watch"

	wsURL, err := c.watchURL(sessionID)
	if err != nil {
		return err
	}

	c.logger.Info("Watching session", "url", wsURL)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return apperr.NotFoundf(op, "session %s not found", sessionID)
		}
		return apperr.Transient(op, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close() // Unblocks ReadJSON
	})
	defer stop()

	for {
		var msg server.WatchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return apperr.Transient(op, err)
		}

		switch msg.Type {
		case server.WatchMessageSession:
			if msg.Session != nil {
				fn(msg.Session)
			}
		case server.WatchMessageError:
			kind := apperr.ParseKind(msg.Code)
			if kind == apperr.Unknown {
				kind = apperr.TransientIO
			}
			return &apperr.Error{Kind: kind, Op: op, Msg: msg.Error}
		default:
			c.logger.Debug("Ignoring watch message", "type", msg.Type)
		}
	}
}

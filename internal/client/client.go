// Package client talks to the pokerstyle API server. Client implements the
// phase controller's Backend so a tablet can drive a session remotely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/server"
	"github.com/lox/pokerstyle/internal/store"
)

// Client is an HTTP client for the session API
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			// Diagnosis runs call the generator for every player
			Timeout: 2 * time.Minute,
		},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithPrefix("client")
	return c
}

// BaseURL returns the server URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes the envelope's data into out. Error
// envelopes are mapped back to their apperr kind; transport failures and
// responses the client cannot classify become TransientIO.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if v, ok := store.PinnedVersion(ctx); ok {
		req.Header.Set("If-Match", strconv.FormatInt(v, 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transient(op, err)
	}
	defer resp.Body.Close()

	var env server.Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env); err != nil {
		return apperr.Transient(op, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}

	if !env.Success {
		kind := apperr.ParseKind(env.Code)
		if kind == apperr.Unknown {
			kind = apperr.TransientIO
		}
		c.logger.Debug("Request rejected", "op", op, "status", resp.StatusCode, "code", env.Code, "error", env.Error)
		return &apperr.Error{Kind: kind, Op: op, Msg: env.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.Transient(op, fmt.Errorf("decode data: %w", err))
	}
	return nil
}

func (c *Client) raw(ctx context.Context, op, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env server.Envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return nil, apperr.Transient(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
		}
		kind := apperr.ParseKind(env.Code)
		if kind == apperr.Unknown {
			kind = apperr.TransientIO
		}
		return nil, &apperr.Error{Kind: kind, Op: op, Msg: env.Error}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	return data, nil
}

func sessionPath(id string, parts ...string) string {
	p := "/api/sessions/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// CreateSession creates a new waiting session.
func (c *Client) CreateSession(ctx context.Context) (*game.Session, error) {
	var s game.Session
	if err := c.do(ctx, "client.CreateSession", http.MethodPost, "/api/sessions", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessionSummaries lists sessions, newest first.
func (c *Client) ListSessionSummaries(ctx context.Context) ([]store.SessionSummary, error) {
	var out []store.SessionSummary
	if err := c.do(ctx, "client.ListSessionSummaries", http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSession fetches a session snapshot.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*game.Session, error) {
	var s game.Session
	if err := c.do(ctx, "client.GetSession", http.MethodGet, sessionPath(sessionID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionByCode looks a session up by its join code.
func (c *Client) GetSessionByCode(ctx context.Context, code string) (*game.Session, error) {
	var s game.Session
	if err := c.do(ctx, "client.GetSessionByCode", http.MethodGet, "/api/codes/"+url.PathEscape(code), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AddPlayer seats a player.
func (c *Client) AddPlayer(ctx context.Context, sessionID string, in store.PlayerInput) (*game.Session, error) {
	var s game.Session
	if err := c.do(ctx, "client.AddPlayer", http.MethodPost, sessionPath(sessionID, "players"), in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateHand opens a hand for the given players.
func (c *Client) CreateHand(ctx context.Context, sessionID string, playerIDs []string) (*game.Session, game.Hand, error) {
	var out server.CreateHandResponse
	err := c.do(ctx, "client.CreateHand", http.MethodPost, sessionPath(sessionID, "hands"),
		server.CreateHandRequest{PlayerIDs: playerIDs}, &out)
	if err != nil {
		return nil, game.Hand{}, err
	}
	return out.Session, out.Hand, nil
}

// GetHand fetches one hand.
func (c *Client) GetHand(ctx context.Context, sessionID, handID string) (game.Hand, error) {
	var h game.Hand
	if err := c.do(ctx, "client.GetHand", http.MethodGet, sessionPath(sessionID, "hands", handID), nil, &h); err != nil {
		return game.Hand{}, err
	}
	return h, nil
}

// SetHoleCards records a player's hole cards.
func (c *Client) SetHoleCards(ctx context.Context, sessionID, handID, playerID string, hole []cards.Card) (*game.Session, error) {
	var s game.Session
	err := c.do(ctx, "client.SetHoleCards", http.MethodPut, sessionPath(sessionID, "hands", handID, "hole-cards"),
		server.HoleCardsRequest{PlayerID: playerID, HoleCards: hole}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddAction appends a player action.
func (c *Client) AddAction(ctx context.Context, sessionID, handID string, in store.ActionInput) (*game.Session, error) {
	var s game.Session
	if err := c.do(ctx, "client.AddAction", http.MethodPost, sessionPath(sessionID, "hands", handID, "actions"), in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateHand applies a partial hand update.
func (c *Client) UpdateHand(ctx context.Context, sessionID, handID string, u store.HandUpdate) (*game.Session, error) {
	var s game.Session
	if err := c.do(ctx, "client.UpdateHand", http.MethodPut, sessionPath(sessionID, "hands", handID), u, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveGameState stores the tablet flow state.
func (c *Client) SaveGameState(ctx context.Context, sessionID string, state game.GameState) (*game.Session, error) {
	var s game.Session
	if err := c.do(ctx, "client.SaveGameState", http.MethodPut, sessionPath(sessionID, "game-state"), state, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RunDiagnosis asks the server to diagnose every player.
func (c *Client) RunDiagnosis(ctx context.Context, sessionID string) (*game.Session, error) {
	var s game.Session
	if err := c.do(ctx, "client.RunDiagnosis", http.MethodPost, sessionPath(sessionID, "diagnose"), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// HandPHH downloads one hand in PHH format.
func (c *Client) HandPHH(ctx context.Context, sessionID, handID string) ([]byte, error) {
	return c.raw(ctx, "client.HandPHH", sessionPath(sessionID, "hands", handID, "phh"))
}

// SessionPHH downloads every hand of a session as a PHHS document.
func (c *Client) SessionPHH(ctx context.Context, sessionID string) ([]byte, error) {
	return c.raw(ctx, "client.SessionPHH", sessionPath(sessionID, "phh"))
}

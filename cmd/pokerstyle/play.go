package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/client"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/phase"
	"github.com/lox/pokerstyle/internal/server"
	"github.com/lox/pokerstyle/internal/sessioncode"
	"github.com/lox/pokerstyle/internal/store"
	"github.com/lox/pokerstyle/internal/tui"
)

// healthWait bounds how long play waits for the server to come up.
const healthWait = 10 * time.Second

// PlayCmd runs the tablet UI for one session
type PlayCmd struct {
	Config       string   `short:"c" default:"pokerstyle-tablet.hcl" help:"Path to tablet HCL configuration file"`
	Server       string   `short:"s" help:"Server URL to connect to (overrides config)"`
	Local        bool     `help:"Run without a server, using the store configured in --server-config"`
	ServerConfig string   `default:"pokerstyle-server.hcl" help:"Server HCL configuration used by --local"`
	Session      string   `help:"ID of the session to resume"`
	Code         string   `help:"Join code of the session to resume"`
	Player       []string `short:"p" help:"Create a new session seating these players, in seat order"`
	Target       int      `help:"Number of hands to play"`
	MinHands     int      `help:"Hands needed before an early diagnosis"`
	LogFile      string   `help:"Log file path (overrides config)"`
	NoColor      bool     `help:"Disable colors"`
}

// tabletBackend is what the tablet needs beyond phase.Backend to find or
// set up its session. Both the HTTP client and a local store provide it.
type tabletBackend interface {
	phase.Backend
	CreateSession(ctx context.Context) (*game.Session, error)
	AddPlayer(ctx context.Context, sessionID string, in store.PlayerInput) (*game.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*game.Session, error)
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := client.LoadConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.Server != "" {
		cfg.Server.URL = c.Server
	}
	if c.LogFile != "" {
		cfg.UI.LogFile = c.LogFile
	}
	if c.NoColor {
		cfg.UI.NoColor = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The TUI owns the terminal, so logs go to a file
	logFile, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	logger, err := newLogger(logFile, g, cfg.UI.LogLevel)
	if err != nil {
		return err
	}
	if cfg.UI.NoColor {
		tui.DisableColor()
	}

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	gameCfg := server.DefaultConfig().Game
	var (
		backend tabletBackend
		remote  *client.Client
	)
	if c.Local {
		scfg, err := server.LoadConfig(c.ServerConfig)
		if err != nil {
			return fmt.Errorf("loading server config: %w", err)
		}
		if err := scfg.Validate(); err != nil {
			return fmt.Errorf("invalid server configuration: %w", err)
		}
		sessions, runner, err := openServices(scfg, logger, nil)
		if err != nil {
			return err
		}
		defer func() { _ = sessions.Close() }()
		backend = phase.LocalBackend{Service: sessions, Runner: runner}
		gameCfg = scfg.Game
	} else {
		remote = client.New(cfg.Server.URL,
			client.WithLogger(logger),
			client.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}))
		waitCtx, waitCancel := context.WithTimeout(ctx, healthWait)
		err := server.WaitForHealthy(waitCtx, cfg.Server.URL)
		waitCancel()
		if err != nil {
			return fmt.Errorf("server %s is not reachable: %w", cfg.Server.URL, err)
		}
		backend = remote
	}

	session, err := c.resolveSession(ctx, backend)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s (join code %s)\n", session.ID, session.Code)

	target, minHands := gameCfg.TargetHands, gameCfg.MinHands
	if c.Target > 0 {
		target = c.Target
	}
	if c.MinHands > 0 {
		minHands = c.MinHands
	}

	logger.Info("Starting tablet",
		"session", session.ID,
		"code", session.Code,
		"local", c.Local,
		"server", cfg.Server.URL,
		"target", target)

	ctrl := phase.NewController(backend, session.ID, phase.Config{TargetHands: target, MinHands: minHands}, logger)
	opts := tui.Options{HandCountOptions: gameCfg.HandCountOptions}
	if remote != nil {
		opts.Updates, err = followSession(ctx, remote, cfg, session.ID, logger)
		if err != nil {
			return err
		}
	}

	return tui.Run(ctx, tui.New(ctx, ctrl, logger, opts))
}

// resolveSession finds the session named by the flags or creates a new one.
func (c *PlayCmd) resolveSession(ctx context.Context, backend tabletBackend) (*game.Session, error) {
	switch {
	case c.Session != "":
		return backend.GetSession(ctx, c.Session)
	case c.Code != "":
		if err := sessioncode.Validate(sessioncode.Normalize(c.Code)); err != nil {
			return nil, err
		}
		return backend.GetSessionByCode(ctx, sessioncode.Normalize(c.Code))
	case len(c.Player) < 2:
		return nil, errors.New("pass --session, --code or at least two --player names")
	}

	s, err := backend.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	for i, name := range c.Player {
		s, err = backend.AddPlayer(ctx, s.ID, store.PlayerInput{Name: name, SeatNumber: i + 1})
		if err != nil {
			return nil, fmt.Errorf("seating %s: %w", name, err)
		}
	}
	return s, nil
}

// followSession streams snapshots written by other devices, over the
// websocket watch when enabled and by polling otherwise.
func followSession(ctx context.Context, c *client.Client, cfg *client.Config, sessionID string, logger *log.Logger) (<-chan *game.Session, error) {
	interval, err := cfg.PollInterval()
	if err != nil {
		return nil, err
	}

	if !cfg.Server.Watch {
		poller := client.NewPoller(c, sessionID, interval, quartz.NewReal(), logger)
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Poller stopped", "error", err)
			}
		}()
		return poller.Updates(), nil
	}

	updates := make(chan *game.Session, 1)
	go func() {
		err := c.Watch(ctx, sessionID, func(s *game.Session) {
			select {
			case <-updates:
			default:
			}
			updates <- s
		})
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case apperr.KindOf(err) == apperr.NotFound:
			logger.Error("Session disappeared", "session", sessionID)
		default:
			logger.Warn("Watch stopped", "session", sessionID, "error", err)
		}
	}()
	return updates, nil
}

package diagnosis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/statistics"
)

// SessionStore is the part of the session store the runner writes through.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*game.Session, error)
	SetStatus(ctx context.Context, id string, status game.SessionStatus) (*game.Session, error)
	SetDiagnosisResults(ctx context.Context, id string, results map[string]game.DiagnosisResult) (*game.Session, error)
}

// RunnerConfig tunes a Runner
type RunnerConfig struct {
	// Concurrency bounds parallel generator calls. Defaults to 4.
	Concurrency int
	// Timeout bounds a whole run. Zero means no extra bound.
	Timeout time.Duration
}

// Runner executes the diagnosis pipeline for a session.
type Runner struct {
	store     SessionStore
	generator Generator
	cfg       RunnerConfig
	clock     quartz.Clock
	logger    *log.Logger
}

// NewRunner creates a runner
func NewRunner(store SessionStore, generator Generator, cfg RunnerConfig, clock quartz.Clock, logger *log.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Runner{
		store:     store,
		generator: generator,
		cfg:       cfg,
		clock:     clock,
		logger:    logger.WithPrefix("diagnosis"),
	}
}

// Run diagnoses every player of the session over its completed hands. A
// session with a hand still in play, or with no completed hand, is refused.
// The session is flipped to diagnosing while generator calls are in flight;
// on success all results are written at once and the session completes. If
// generation or the final write fails the previous status is restored.
// Generator failures are returned as TransientIO so the caller can retry.
func (r *Runner) Run(ctx context.Context, sessionID string) (*game.Session, error) {
	const op = "diagnosis.Run"

	session, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(session.Players) == 0 {
		return nil, apperr.Preconditionf(op, "session has no players")
	}
	if open, ok := session.OpenHand(); ok {
		return nil, apperr.Preconditionf(op, "hand %d is still in play", open.HandNumber)
	}
	if session.CompletedHandCount() == 0 {
		return nil, apperr.Preconditionf(op, "session has no completed hands")
	}

	previous := session.Status
	if _, err := r.store.SetStatus(ctx, sessionID, game.StatusDiagnosing); err != nil {
		return nil, err
	}

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := r.clock.Now()
	results, err := r.evaluate(runCtx, session)
	if err != nil {
		r.restore(ctx, sessionID, previous, err)
		return nil, apperr.Transient(op, err)
	}

	updated, err := r.store.SetDiagnosisResults(ctx, sessionID, results)
	if err != nil {
		r.restore(ctx, sessionID, previous, err)
		return nil, err
	}
	r.logger.Info("Diagnosis complete", "session", sessionID, "players", len(results), "elapsed", r.clock.Since(start))
	return updated, nil
}

// restore puts the session back to the status it had before the run.
func (r *Runner) restore(ctx context.Context, sessionID string, previous game.SessionStatus, cause error) {
	r.logger.Error("Diagnosis failed, restoring status", "session", sessionID, "status", previous, "error", cause)
	if _, err := r.store.SetStatus(context.WithoutCancel(ctx), sessionID, previous); err != nil {
		r.logger.Error("Failed to restore session status", "session", sessionID, "error", err)
	}
}

// Evaluate computes results without touching the store.
func (r *Runner) Evaluate(ctx context.Context, session *game.Session) (map[string]game.DiagnosisResult, error) {
	return r.evaluate(ctx, session)
}

func (r *Runner) evaluate(ctx context.Context, session *game.Session) (map[string]game.DiagnosisResult, error) {
	hands := session.CompletedHands()
	results := make(map[string]game.DiagnosisResult, len(session.Players))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, p := range session.Players {
		g.Go(func() error {
			req := BuildRequest(p, hands)
			content, err := r.generator.Generate(gctx, SystemPrompt, UserPrompt(req), req)
			if err != nil {
				return fmt.Errorf("player %s: %w", p.Name, err)
			}
			if content, err = content.normalize(); err != nil {
				return fmt.Errorf("player %s: %w", p.Name, err)
			}
			r.logger.Debug("Generated content", "player", p.ID, "style", req.Style)

			mu.Lock()
			results[p.ID] = game.DiagnosisResult{
				PlayerID:                p.ID,
				PlayerName:              p.Name,
				PokerStyle:              req.Style,
				BusinessType:            req.Archetype.Name,
				BusinessTypeDescription: req.Archetype.Description,
				Axes:                    content.Axes,
				Stats:                   req.Stats,
				Advice:                  content.Advice,
				Strengths:               content.Strengths,
				Weaknesses:              content.Weaknesses,
				CreatedAt:               r.clock.Now().UTC(),
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BuildRequest computes the deterministic part of a player's diagnosis.
func BuildRequest(p game.Player, hands []game.Hand) Request {
	stats := statistics.Compute(p.ID, hands)
	style := Classify(stats)
	return Request{
		PlayerName: p.Name,
		Stats:      stats,
		Style:      style,
		Archetype:  ArchetypeFor(style),
	}
}

package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/sessioncode"
)

// SessionSummary is the admin listing view of a session.
type SessionSummary struct {
	ID             string             `json:"id"`
	Code           string             `json:"code"`
	Status         game.SessionStatus `json:"status"`
	PlayerCount    int                `json:"playerCount"`
	HandCount      int                `json:"handCount"`
	CompletedHands int                `json:"completedHands"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// PlayerInput describes a player joining a session.
type PlayerInput struct {
	Name       string `json:"name"`
	SeatNumber int    `json:"seatNumber"`
}

// CreateSession creates an empty waiting session with a fresh join code.
func (s *Service) CreateSession(ctx context.Context) (*game.Session, error) {
	const op = "store.CreateSession"

	for range maxCodeAttempts {
		session := &game.Session{
			ID:               s.newID(),
			Code:             s.codes.Generate(),
			Players:          []game.Player{},
			Hands:            []game.Hand{},
			Status:           game.StatusWaiting,
			DiagnosisResults: map[string]game.DiagnosisResult{},
			CreatedAt:        s.clock.Now().UTC(),
			Version:          1,
		}
		err := s.repo.Create(ctx, session)
		if err == nil {
			s.logger.Info("Created session", "session", session.ID, "code", session.Code)
			return session.Clone(), nil
		}
		if apperr.KindOf(err) != apperr.Conflict {
			return nil, err
		}
		s.logger.Debug("Session code taken, retrying", "code", session.Code)
	}
	return nil, apperr.Conflictf(op, "could not allocate a free session code")
}

// GetSession returns the session with id.
func (s *Service) GetSession(ctx context.Context, id string) (*game.Session, error) {
	return s.repo.Get(ctx, id)
}

// GetSessionByCode returns the session joined with code. Codes are matched
// case-insensitively.
func (s *Service) GetSessionByCode(ctx context.Context, code string) (*game.Session, error) {
	const op = "store.GetSessionByCode"

	code = sessioncode.Normalize(code)
	if err := sessioncode.Validate(code); err != nil {
		return nil, apperr.Invalidf(op, "%v", err)
	}
	return s.repo.GetByCode(ctx, code)
}

// ListSessionSummaries returns every session, newest first.
func (s *Service) ListSessionSummaries(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, SessionSummary{
			ID:             session.ID,
			Code:           session.Code,
			Status:         session.Status,
			PlayerCount:    len(session.Players),
			HandCount:      len(session.Hands),
			CompletedHands: session.CompletedHandCount(),
			CreatedAt:      session.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AddPlayer seats a new player. Players can only join before the first hand.
func (s *Service) AddPlayer(ctx context.Context, sessionID string, in PlayerInput) (*game.Session, error) {
	const op = "store.AddPlayer"

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalidf(op, "player name is required")
	}
	if in.SeatNumber < 1 {
		return nil, apperr.Invalidf(op, "seat number must be positive, got %d", in.SeatNumber)
	}

	return s.mutate(ctx, op, sessionID, func(session *game.Session) error {
		if session.Status != game.StatusWaiting || len(session.Hands) > 0 {
			return apperr.Preconditionf(op, "session %s is already %s", session.ID, session.Status)
		}
		if session.SeatTaken(in.SeatNumber) {
			return apperr.Invalidf(op, "seat %d is already taken", in.SeatNumber)
		}
		player := game.Player{
			ID:         s.newID(),
			Name:       name,
			SeatNumber: in.SeatNumber,
			JoinedAt:   s.clock.Now().UTC(),
		}
		session.Players = append(session.Players, player)
		sort.SliceStable(session.Players, func(i, j int) bool {
			return session.Players[i].SeatNumber < session.Players[j].SeatNumber
		})
		s.logger.Info("Player joined", "session", session.ID, "player", player.ID, "name", name, "seat", in.SeatNumber)
		return nil
	})
}

// SaveGameState stores the tablet flow state so other devices can follow or
// resume it.
func (s *Service) SaveGameState(ctx context.Context, sessionID string, state game.GameState) (*game.Session, error) {
	const op = "store.SaveGameState"

	if !state.GamePhase.Step.Valid() || state.GamePhase.Step == game.StepLoading {
		return nil, apperr.Invalidf(op, "invalid game phase %q", state.GamePhase.Step)
	}
	if state.GamePhase.Street != "" && !state.GamePhase.Street.Valid() {
		return nil, apperr.Invalidf(op, "invalid street %q", state.GamePhase.Street)
	}
	if state.TotalHands < 0 {
		return nil, apperr.Invalidf(op, "total hands must not be negative")
	}

	return s.mutate(ctx, op, sessionID, func(session *game.Session) error {
		if state.CurrentHandID != "" && session.HandIndex(state.CurrentHandID) < 0 {
			return apperr.NotFoundf(op, "hand %s not found", state.CurrentHandID)
		}
		if session.GameState != nil && sameGameState(*session.GameState, state) {
			return errUnchanged
		}
		gs := state
		session.GameState = &gs
		return nil
	})
}

func sameGameState(a, b game.GameState) bool {
	if a.TotalHands != b.TotalHands || a.CurrentHandID != b.CurrentHandID {
		return false
	}
	pa, pb := a.GamePhase, b.GamePhase
	if pa.Step != pb.Step || pa.Street != pb.Street {
		return false
	}
	if pa.PlayerIndex == nil || pb.PlayerIndex == nil {
		return pa.PlayerIndex == nil && pb.PlayerIndex == nil
	}
	return *pa.PlayerIndex == *pb.PlayerIndex
}

// SetStatus moves the session to status.
func (s *Service) SetStatus(ctx context.Context, sessionID string, status game.SessionStatus) (*game.Session, error) {
	const op = "store.SetStatus"

	if !status.Valid() {
		return nil, apperr.Invalidf(op, "invalid status %q", status)
	}
	return s.mutate(ctx, op, sessionID, func(session *game.Session) error {
		if session.Status == status {
			return errUnchanged
		}
		s.logger.Info("Session status changed", "session", session.ID, "from", session.Status, "to", status)
		session.Status = status
		return nil
	})
}

// SetDiagnosisResults stores the results, completes the session and moves the
// persisted phase to complete.
func (s *Service) SetDiagnosisResults(ctx context.Context, sessionID string, results map[string]game.DiagnosisResult) (*game.Session, error) {
	const op = "store.SetDiagnosisResults"

	return s.mutate(ctx, op, sessionID, func(session *game.Session) error {
		for id := range results {
			if _, ok := session.FindPlayer(id); !ok {
				return apperr.Invalidf(op, "result for unknown player %s", id)
			}
		}
		session.DiagnosisResults = results
		session.Status = game.StatusCompleted
		if session.GameState == nil {
			session.GameState = &game.GameState{}
		}
		session.GameState.GamePhase = game.PhaseRecord{Step: game.StepComplete}
		return nil
	})
}

package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/phh"
	"github.com/lox/pokerstyle/internal/store"
)

// CreateHandRequest is the body of POST /api/sessions/{id}/hands
type CreateHandRequest struct {
	PlayerIDs []string `json:"playerIds"`
}

// CreateHandResponse carries the updated session and the new hand
type CreateHandResponse struct {
	Session *game.Session `json:"session"`
	Hand    game.Hand     `json:"hand"`
}

// HoleCardsRequest is the body of PUT …/hands/{handId}/hole-cards
type HoleCardsRequest struct {
	PlayerID  string       `json:"playerId"`
	HoleCards []cards.Card `json:"holeCards"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.CreateSession(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.sessions.ListSessionSummaries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, summaries)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, session)
}

func (s *Server) handleGetSessionByCode(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.GetSessionByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, session)
}

func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var in store.PlayerInput
	if err := decodeBody(r, "server.AddPlayer", &in); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.sessions.AddPlayer(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, session)
}

func (s *Server) handleSaveGameState(w http.ResponseWriter, r *http.Request) {
	var state game.GameState
	if err := decodeBody(r, "server.SaveGameState", &state); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.sessions.SaveGameState(r.Context(), r.PathValue("id"), state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, session)
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.logger.Info("Diagnosis requested", "session", id)
	session, err := s.runner.Run(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, session)
}

func (s *Server) handleListHands(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	hands := session.Hands
	if hands == nil {
		hands = []game.Hand{}
	}
	s.writeData(w, http.StatusOK, hands)
}

func (s *Server) handleCreateHand(w http.ResponseWriter, r *http.Request) {
	var in CreateHandRequest
	if err := decodeBody(r, "server.CreateHand", &in); err != nil {
		s.writeError(w, err)
		return
	}
	session, hand, err := s.sessions.CreateHand(r.Context(), r.PathValue("id"), in.PlayerIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, CreateHandResponse{Session: session, Hand: hand})
}

func (s *Server) handleGetHand(w http.ResponseWriter, r *http.Request) {
	hand, err := s.sessions.GetHand(r.Context(), r.PathValue("id"), r.PathValue("handId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, hand)
}

func (s *Server) handleUpdateHand(w http.ResponseWriter, r *http.Request) {
	var u store.HandUpdate
	if err := decodeBody(r, "server.UpdateHand", &u); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.sessions.UpdateHand(r.Context(), r.PathValue("id"), r.PathValue("handId"), u)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, session)
}

func (s *Server) handleAddAction(w http.ResponseWriter, r *http.Request) {
	var in store.ActionInput
	if err := decodeBody(r, "server.AddAction", &in); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.sessions.AddAction(r.Context(), r.PathValue("id"), r.PathValue("handId"), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, session)
}

func (s *Server) handleSetHoleCards(w http.ResponseWriter, r *http.Request) {
	var in HoleCardsRequest
	if err := decodeBody(r, "server.SetHoleCards", &in); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.sessions.SetHoleCards(r.Context(), r.PathValue("id"), r.PathValue("handId"), in.PlayerID, in.HoleCards)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, session)
}

func (s *Server) handleHandPHH(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	hand, err := s.sessions.GetHand(r.Context(), session.ID, r.PathValue("handId"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := phh.Encode(&buf, phh.FromHand(session, hand)); err != nil {
		s.writeError(w, fmt.Errorf("encode hand %s: %w", hand.ID, err))
		return
	}
	writeTOML(w, fmt.Sprintf("%s-%d.phh", session.Code, hand.HandNumber), buf.Bytes())
}

func (s *Server) handleSessionPHH(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := phh.EncodeSession(&buf, session); err != nil {
		s.writeError(w, fmt.Errorf("encode session %s: %w", session.ID, err))
		return
	}
	writeTOML(w, session.Code+".phhs", buf.Bytes())
}

func writeTOML(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "application/toml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body) // Ignore write errors, the client is gone
}

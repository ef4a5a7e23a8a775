package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lox/pokerstyle/internal/apperr"
)

// maxBodySize bounds request bodies; a hand update is a few hundred bytes.
const maxBodySize = 64 << 10

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.PreconditionFailed:
		return http.StatusPreconditionFailed
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.TransientIO:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.writeError(w, fmt.Errorf("encode response: %w", err))
		return
	}
	writeEnvelope(w, status, Envelope{Success: true, Data: raw})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	code := kind.String()
	msg := err.Error()
	if kind == apperr.Unknown {
		s.logger.Error("Request failed", "error", err)
		code = "internal"
		msg = "internal error"
	}
	writeEnvelope(w, status, Envelope{Error: msg, Code: code})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env) // Ignore write errors, the client is gone
}

// decodeBody decodes a JSON request body. Unknown fields are rejected so a
// misspelt field never silently becomes a no-op update.
func decodeBody(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalidf(op, "request body is required")
		}
		return apperr.Invalidf(op, "invalid request body: %v", err)
	}
	return nil
}

// ifMatch reads the optional If-Match header as a session version.
func ifMatch(r *http.Request) (int64, bool, error) {
	h := strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	if h == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(h, 10, 64)
	if err != nil || v < 1 {
		return 0, false, apperr.Invalidf("server.ifMatch", "If-Match must be a session version, got %q", h)
	}
	return v, true, nil
}

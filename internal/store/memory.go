package store

import (
	"context"
	"sync"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
)

// MemoryRepository keeps sessions in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
	codes    map[string]string
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*game.Session),
		codes:    make(map[string]string),
	}
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, apperr.NotFoundf("memory.Get", "session %s not found", id)
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) GetByCode(ctx context.Context, code string) (*game.Session, error) {
	r.mu.RLock()
	id, ok := r.codes[code]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFoundf("memory.GetByCode", "no session with code %s", code)
	}
	return r.Get(ctx, id)
}

func (r *MemoryRepository) List(_ context.Context) ([]*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*game.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, s *game.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return apperr.Conflictf("memory.Create", "session %s already exists", s.ID)
	}
	if _, ok := r.codes[s.Code]; ok {
		return apperr.Conflictf("memory.Create", "session code %s is taken", s.Code)
	}
	r.sessions[s.ID] = s.Clone()
	r.codes[s.Code] = s.ID
	return nil
}

func (r *MemoryRepository) Save(_ context.Context, s *game.Session, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[s.ID]
	if !ok {
		return apperr.NotFoundf("memory.Save", "session %s not found", s.ID)
	}
	if current.Version != expected {
		return apperr.Conflictf("memory.Save", "session %s is at version %d, expected %d", s.ID, current.Version, expected)
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *MemoryRepository) Close() error { return nil }

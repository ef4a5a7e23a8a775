package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/fileutil"
	"github.com/lox/pokerstyle/internal/game"
)

// FileRepository stores one JSON document per session in a directory. Writes
// are atomic renames so a reader never sees a partial session.
type FileRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileRepository creates the directory if needed
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *FileRepository) read(op, id string) (*game.Session, error) {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return nil, apperr.NotFoundf(op, "session %s not found", id)
	}
	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFoundf(op, "session %s not found", id)
	}
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	var s game.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.Transient(op, fmt.Errorf("corrupt session file %s: %w", id, err))
	}
	return &s, nil
}

func (r *FileRepository) write(op string, s *game.Session) error {
	if err := fileutil.WriteJSONAtomic(r.path(s.ID), s, 0o644); err != nil {
		return apperr.Transient(op, err)
	}
	return nil
}

func (r *FileRepository) Get(_ context.Context, id string) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read("file.Get", id)
}

func (r *FileRepository) GetByCode(ctx context.Context, code string) (*game.Session, error) {
	sessions, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, apperr.NotFoundf("file.GetByCode", "no session with code %s", code)
}

func (r *FileRepository) List(_ context.Context) ([]*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list()
}

func (r *FileRepository) list() ([]*game.Session, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, apperr.Transient("file.List", err)
	}
	var out []*game.Session
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		s, err := r.read("file.List", strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *FileRepository) Create(_ context.Context, s *game.Session) error {
	const op = "file.Create"

	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.list()
	if err != nil {
		return err
	}
	for _, existing := range sessions {
		if existing.ID == s.ID {
			return apperr.Conflictf(op, "session %s already exists", s.ID)
		}
		if existing.Code == s.Code {
			return apperr.Conflictf(op, "session code %s is taken", s.Code)
		}
	}
	return r.write(op, s)
}

func (r *FileRepository) Save(_ context.Context, s *game.Session, expected int64) error {
	const op = "file.Save"

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read(op, s.ID)
	if err != nil {
		return err
	}
	if current.Version != expected {
		return apperr.Conflictf(op, "session %s is at version %d, expected %d", s.ID, current.Version, expected)
	}
	return r.write(op, s)
}

func (r *FileRepository) Close() error { return nil }

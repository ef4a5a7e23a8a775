package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
)

// SQLiteRepository stores each session as a JSON document in one row, next to
// the indexed columns the store queries on.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path. Use ":memory:"
// for a throwaway database.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one writer keeps the version check and the update in the same serial order
	db.SetMaxOpenConns(1)

	r := &SQLiteRepository{db: db}
	if err := r.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) createTables() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			version INTEGER NOT NULL,
			data TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) scanOne(op string, row *sql.Row, key string) (*game.Session, error) {
	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf(op, "session %s not found", key)
	}
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	return decodeSession(op, data)
}

func decodeSession(op, data string) (*game.Session, error) {
	var s game.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, apperr.Transient(op, fmt.Errorf("corrupt session row: %w", err))
	}
	return &s, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*game.Session, error) {
	row := r.db.QueryRowContext(ctx, "SELECT data FROM sessions WHERE id = ?", id)
	return r.scanOne("sqlite.Get", row, id)
}

func (r *SQLiteRepository) GetByCode(ctx context.Context, code string) (*game.Session, error) {
	row := r.db.QueryRowContext(ctx, "SELECT data FROM sessions WHERE code = ?", code)
	return r.scanOne("sqlite.GetByCode", row, "with code "+code)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*game.Session, error) {
	const op = "sqlite.List"

	rows, err := r.db.QueryContext(ctx, "SELECT data FROM sessions ORDER BY created_at DESC")
	if err != nil {
		return nil, apperr.Transient(op, err)
	}
	defer rows.Close()

	var out []*game.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, apperr.Transient(op, err)
		}
		s, err := decodeSession(op, data)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient(op, err)
	}
	return out, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, s *game.Session) error {
	const op = "sqlite.Create"

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, code, created_at, version, data) VALUES (?, ?, ?, ?, ?)",
		s.ID, s.Code, s.CreatedAt.UnixNano(), s.Version, string(data))

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return apperr.Conflictf(op, "session %s or code %s already exists", s.ID, s.Code)
	}
	if err != nil {
		return apperr.Transient(op, err)
	}
	return nil
}

func (r *SQLiteRepository) Save(ctx context.Context, s *game.Session, expected int64) error {
	const op = "sqlite.Save"

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET version = ?, data = ? WHERE id = ? AND version = ?",
		s.Version, string(data), s.ID, expected)
	if err != nil {
		return apperr.Transient(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Transient(op, err)
	}
	if n == 1 {
		return nil
	}

	var version int64
	err = r.db.QueryRowContext(ctx, "SELECT version FROM sessions WHERE id = ?", s.ID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundf(op, "session %s not found", s.ID)
	}
	if err != nil {
		return apperr.Transient(op, err)
	}
	return apperr.Conflictf(op, "session %s is at version %d, expected %d", s.ID, version, expected)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

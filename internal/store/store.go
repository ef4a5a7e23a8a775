// Package store persists session aggregates and implements the session and
// hand operations on top of a pluggable Repository.
//
// Every write is a read-modify-write of the whole session: the mutation runs
// on a copy, is validated there, and is saved only if the stored version is
// still the one that was read. A rejected write never partially applies.
package store

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokerstyle/internal/apperr"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/sessioncode"
)

// Repository stores whole sessions.
type Repository interface {
	Get(ctx context.Context, id string) (*game.Session, error)
	GetByCode(ctx context.Context, code string) (*game.Session, error)
	List(ctx context.Context) ([]*game.Session, error)
	// Create stores a new session. A taken id or code is a Conflict.
	Create(ctx context.Context, s *game.Session) error
	// Save replaces the stored session if its version still equals expected.
	Save(ctx context.Context, s *game.Session, expected int64) error
	Close() error
}

// maxWriteAttempts bounds retries of unpinned writes that lost a version race.
const maxWriteAttempts = 3

// maxCodeAttempts bounds retries when a generated session code is taken.
const maxCodeAttempts = 10

// errUnchanged tells mutate that the operation was an idempotent repeat.
var errUnchanged = errors.New("unchanged")

type ifVersionKey struct{}

// IfVersion makes writes under ctx conditional on the session still being at
// version v. A mismatch is a Conflict and is not retried.
func IfVersion(ctx context.Context, v int64) context.Context {
	return context.WithValue(ctx, ifVersionKey{}, v)
}

// PinnedVersion returns the version set by IfVersion, if any.
func PinnedVersion(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ifVersionKey{}).(int64)
	return v, ok
}

// Service implements the session store and hand store operations.
type Service struct {
	repo   Repository
	clock  quartz.Clock
	codes  *sessioncode.Generator
	newID  func() string
	logger *log.Logger
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the clock used for timestamps
func WithClock(clock quartz.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithCodeGenerator sets the session code generator
func WithCodeGenerator(g *sessioncode.Generator) Option {
	return func(s *Service) {
		s.codes = g
	}
}

// WithIDFunc sets the id generator
func WithIDFunc(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates a service on top of repo
func NewService(repo Repository, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		clock:  quartz.NewReal(),
		codes:  sessioncode.NewGenerator(nil),
		newID:  sessioncode.NewID,
		logger: logger.WithPrefix("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the underlying repository
func (s *Service) Close() error {
	return s.repo.Close()
}

// mutate loads the session, applies fn to a copy and saves the copy with the
// next version. If fn returns errUnchanged the loaded session is returned
// without a write.
func (s *Service) mutate(ctx context.Context, op, id string, fn func(*game.Session) error) (*game.Session, error) {
	pinned, isPinned := PinnedVersion(ctx)

	for attempt := 1; ; attempt++ {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if isPinned && current.Version != pinned {
			return nil, apperr.Conflictf(op, "session %s is at version %d, not %d", id, current.Version, pinned)
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			if errors.Is(err, errUnchanged) {
				return current, nil
			}
			return nil, err
		}
		next.Version = current.Version + 1

		err = s.repo.Save(ctx, next, current.Version)
		if err == nil {
			s.logger.Debug("Saved session", "op", op, "session", id, "version", next.Version)
			return next, nil
		}
		if apperr.KindOf(err) != apperr.Conflict || isPinned || attempt >= maxWriteAttempts {
			return nil, err
		}
		s.logger.Debug("Version race, retrying", "op", op, "session", id, "attempt", attempt)
	}
}

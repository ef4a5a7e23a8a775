package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokerstyle/internal/game"
)

// SessionFetcher loads a session snapshot.
type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (*game.Session, error)
}

// Poller keeps a session snapshot fresh. Every fetch gets a sequence number
// and its own context; starting a fetch cancels the one before it, and a
// response is only delivered if it is the latest issued and not older than
// the version already held.
type Poller struct {
	fetcher   SessionFetcher
	sessionID string
	interval  time.Duration
	clock     quartz.Clock
	logger    *log.Logger
	updates   chan *game.Session

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	version  int64
	inFlight sync.WaitGroup
}

// NewPoller creates a poller for one session.
func NewPoller(fetcher SessionFetcher, sessionID string, interval time.Duration, clock quartz.Clock, logger *log.Logger) *Poller {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Poller{
		fetcher:   fetcher,
		sessionID: sessionID,
		interval:  interval,
		clock:     clock,
		logger:    logger.WithPrefix("poller"),
		updates:   make(chan *game.Session, 1),
	}
}

// Updates delivers accepted snapshots. Only the newest undelivered snapshot
// is kept.
func (p *Poller) Updates() <-chan *game.Session {
	return p.updates
}

// Observe records a version the caller already holds, e.g. from its own
// write, so older fetches are dropped.
func (p *Poller) Observe(version int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if version > p.version {
		p.version = version
	}
}

// Version returns the newest version seen.
func (p *Poller) Version() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval, "poller")
	defer ticker.Stop()
	defer p.inFlight.Wait()

	p.pollAsync(ctx)
	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			if p.cancel != nil {
				p.cancel()
			}
			p.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			p.pollAsync(ctx)
		}
	}
}

func (p *Poller) pollAsync(ctx context.Context) {
	p.inFlight.Add(1)
	go func() {
		defer p.inFlight.Done()
		_, _ = p.Poll(ctx) // Failures are logged, the next tick retries
	}()
}

// Poll fetches once. It reports whether the fetched snapshot was accepted.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	seq := p.seq
	p.cancel = cancel
	p.mu.Unlock()

	session, err := p.fetcher.GetSession(fetchCtx, p.sessionID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			p.logger.Debug("Fetch superseded", "session", p.sessionID, "seq", seq)
			return false, nil
		}
		p.logger.Warn("Fetch failed", "session", p.sessionID, "seq", seq, "error", err)
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		p.logger.Debug("Dropping stale response", "session", p.sessionID, "seq", seq, "latest", p.seq)
		return false, nil
	}
	if session.Version < p.version {
		p.logger.Debug("Dropping older version", "session", p.sessionID, "version", session.Version, "held", p.version)
		return false, nil
	}
	p.version = session.Version
	p.deliver(session)
	return true, nil
}

// deliver replaces any undelivered snapshot. Caller holds mu.
func (p *Poller) deliver(s *game.Session) {
	select {
	case <-p.updates:
	default:
	}
	p.updates <- s
}

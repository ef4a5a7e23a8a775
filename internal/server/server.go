package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/pokerstyle/internal/diagnosis"
	"github.com/lox/pokerstyle/internal/store"
)

// DefaultPollInterval is how often a session watch checks for a new version.
const DefaultPollInterval = 2 * time.Second

// Server serves the session API and the websocket session watch
type Server struct {
	sessions     *store.Service
	runner       *diagnosis.Runner
	clock        quartz.Clock
	pollInterval time.Duration
	upgrader     websocket.Upgrader
	logger       *log.Logger

	mu       sync.RWMutex
	watchers map[*Watcher]bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// Option configures a Server
type Option func(*Server)

// WithClock sets the clock driving session watch polling.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithPollInterval sets how often session watches poll the store.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewServer creates a new API server
func NewServer(sessions *store.Service, runner *diagnosis.Runner, logger *log.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		sessions:     sessions,
		runner:       runner,
		clock:        quartz.NewReal(),
		pollInterval: DefaultPollInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Tablets are served from anywhere on the local network
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:   logger.WithPrefix("server"),
		watchers: make(map[*Watcher]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler for all routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /api/codes/{code}", s.handleGetSessionByCode)
	mux.HandleFunc("POST /api/sessions/{id}/players", s.conditional(s.handleAddPlayer))
	mux.HandleFunc("PUT /api/sessions/{id}/game-state", s.conditional(s.handleSaveGameState))
	mux.HandleFunc("POST /api/sessions/{id}/diagnose", s.handleDiagnose)
	mux.HandleFunc("GET /api/sessions/{id}/phh", s.handleSessionPHH)

	mux.HandleFunc("GET /api/sessions/{id}/hands", s.handleListHands)
	mux.HandleFunc("POST /api/sessions/{id}/hands", s.conditional(s.handleCreateHand))
	mux.HandleFunc("GET /api/sessions/{id}/hands/{handId}", s.handleGetHand)
	mux.HandleFunc("PUT /api/sessions/{id}/hands/{handId}", s.conditional(s.handleUpdateHand))
	mux.HandleFunc("POST /api/sessions/{id}/hands/{handId}/actions", s.conditional(s.handleAddAction))
	mux.HandleFunc("PUT /api/sessions/{id}/hands/{handId}/hole-cards", s.conditional(s.handleSetHoleCards))
	mux.HandleFunc("GET /api/sessions/{id}/hands/{handId}/phh", s.handleHandPHH)

	mux.HandleFunc("GET /ws/sessions/{id}", s.handleWatch)

	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	_ = s.Stop() // Ignore close errors during shutdown
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Stop closes every session watch
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	watchers := make([]*Watcher, 0, len(s.watchers))
	for w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()

	for _, w := range watchers {
		_ = w.Close() // Ignore close errors during shutdown
	}
	return nil
}

// WatcherCount returns the number of open session watches
func (s *Server) WatcherCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

func (s *Server) register(w *Watcher) {
	s.mu.Lock()
	s.watchers[w] = true
	total := len(s.watchers)
	s.mu.Unlock()
	s.logger.Info("Watcher connected", "session", w.sessionID, "total", total)
}

func (s *Server) unregister(w *Watcher) {
	s.mu.Lock()
	delete(s.watchers, w)
	total := len(s.watchers)
	s.mu.Unlock()
	s.logger.Info("Watcher disconnected", "session", w.sessionID, "total", total)
}

// conditional pins the request's writes to the If-Match version when given.
func (s *Server) conditional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok, err := ifMatch(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if ok {
			r = r.WithContext(store.IfVersion(r.Context(), v))
		}
		next(w, r)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bekarys-dev/championship-system/repositories"
)

const saveTimeout = 5 * time.Second

// Saver debounces session persistence: rapid successive state changes
// within the window collapse into a single write carrying the newest
// snapshot. Persistence is best effort; a failed write is logged and never
// rolls back the in-memory state, which remains the source of truth.
type Saver struct {
	repo   repositories.SessionRepository
	window time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingSave
}

type pendingSave struct {
	timer *time.Timer
	state []byte
}

func NewSaver(repo repositories.SessionRepository, window time.Duration, logger *slog.Logger) *Saver {
	return &Saver{
		repo:    repo,
		window:  window,
		logger:  logger,
		pending: make(map[string]*pendingSave),
	}
}

// Schedule queues a snapshot for the session. If a write is already armed,
// the snapshot simply replaces the queued one and rides the same timer.
func (s *Saver) Schedule(sessionID string, state []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[sessionID]; ok {
		p.state = state
		return
	}
	p := &pendingSave{state: state}
	p.timer = time.AfterFunc(s.window, func() {
		s.flush(sessionID)
	})
	s.pending[sessionID] = p
}

// Flush writes the given snapshot immediately and cancels any armed timer
// for the session. Used when a competition completes, where losing the
// final state to a crash would be more annoying than usual.
func (s *Saver) Flush(sessionID string, state []byte) error {
	s.mu.Lock()
	if p, ok := s.pending[sessionID]; ok {
		p.timer.Stop()
		delete(s.pending, sessionID)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	return s.repo.Save(ctx, nil, sessionID, state)
}

func (s *Saver) flush(sessionID string) {
	s.mu.Lock()
	p, ok := s.pending[sessionID]
	delete(s.pending, sessionID)
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, nil, sessionID, p.state); err != nil {
		s.logger.Warn("debounced session save failed",
			slog.String("session_id", sessionID), slog.Any("error", err))
	}
}

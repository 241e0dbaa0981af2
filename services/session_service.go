package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bekarys-dev/championship-system/brackets"
	"github.com/bekarys-dev/championship-system/models"
	"github.com/bekarys-dev/championship-system/repositories"
	"github.com/bekarys-dev/championship-system/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SessionService applies the admin's discrete state transitions to a season
// session and hands every new state to the hub (immediately) and the saver
// (debounced). The admin is the sole writer; a per-session mutex serializes
// transitions, spectators only ever see broadcast snapshots.
type SessionService interface {
	Create(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Results(ctx context.Context, sessionID string) ([]*models.CompetitionResult, error)

	Register(ctx context.Context, sessionID, name string) (*models.Session, error)
	StartQualification(ctx context.Context, sessionID string) (*models.Session, error)
	SetScore(ctx context.Context, sessionID, participantID string, score float64) (*models.Session, error)
	GenerateBracket(ctx context.Context, sessionID string) (*models.Session, error)
	SetMatchWinner(ctx context.Context, sessionID, matchID, winnerID string) (*models.Session, error)
	ReturnToChampionship(ctx context.Context, sessionID string) (*models.Session, error)
	ResetSeason(ctx context.Context, sessionID string) (*models.Session, error)
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

type sessionService struct {
	sessionRepo repositories.SessionRepository
	resultRepo  repositories.ResultRepository
	hub         *brackets.Hub
	saver       *Saver
	uploader    storage.FileUploader // optional archive target, may be nil
	logger      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewSessionService(
	sessionRepo repositories.SessionRepository,
	resultRepo repositories.ResultRepository,
	hub *brackets.Hub,
	saver *Saver,
	uploader storage.FileUploader,
	logger *slog.Logger,
) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
		hub:         hub,
		saver:       saver,
		uploader:    uploader,
		logger:      logger,
		sessions:    make(map[string]*sessionEntry),
	}
}

func (s *sessionService) Create(ctx context.Context) (*models.Session, error) {
	session := &models.Session{
		ID:        uuid.NewString(),
		Phase:     models.PhaseChampionshipView,
		Standings: []*models.Standing{},
		UpdatedAt: time.Now(),
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal new session: %w", err)
	}
	if err := s.sessionRepo.Save(ctx, nil, session.ID, raw); err != nil {
		return nil, fmt.Errorf("failed to persist new session: %w", err)
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionEntry{session: session}
	s.mu.Unlock()

	s.logger.Info("session created", slog.String("session_id", session.ID))
	snap, _, err := snapshot(session)
	return snap, err
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	entry, err := s.getEntry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	snap, _, err := snapshot(entry.session)
	return snap, err
}

func (s *sessionService) Results(ctx context.Context, sessionID string) ([]*models.CompetitionResult, error) {
	if _, err := s.getEntry(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.resultRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for session %s: %w", sessionID, err)
	}
	results := make([]*models.CompetitionResult, 0, len(rows))
	for _, row := range rows {
		var result models.CompetitionResult
		if err := json.Unmarshal(row.Result, &result); err != nil {
			return nil, fmt.Errorf("corrupt result row %d for session %s: %w", row.ID, sessionID, err)
		}
		results = append(results, &result)
	}
	return results, nil
}

func (s *sessionService) Register(ctx context.Context, sessionID, name string) (*models.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	return s.mutate(ctx, sessionID, func(session *models.Session) (bool, error) {
		// Duplicate names are checked case-insensitively against both the
		// standings and registrations not yet merged into them.
		norm := strings.ToLower(name)
		for _, st := range session.Standings {
			if strings.ToLower(strings.TrimSpace(st.Name)) == norm {
				return false, ErrNameTaken
			}
		}
		for _, st := range session.PendingRegistrations {
			if strings.ToLower(strings.TrimSpace(st.Name)) == norm {
				return false, ErrNameTaken
			}
		}

		standing := &models.Standing{
			ParticipantID: uuid.NewString(),
			Name:          name,
			Points:        []float64{},
		}
		if session.Phase == models.PhaseChampionshipView {
			standing.Pad(session.CompetitionsHeld)
			session.Standings = append(session.Standings, standing)
		} else {
			// A competition is running; the newcomer joins the roster on
			// the next return to the championship view.
			session.PendingRegistrations = append(session.PendingRegistrations, standing)
		}
		return true, nil
	})
}

func (s *sessionService) StartQualification(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.mutate(ctx, sessionID, func(session *models.Session) (bool, error) {
		if session.Phase != models.PhaseChampionshipView {
			return false, ErrInvalidPhase
		}
		qualification := make([]*models.Participant, 0, len(session.Standings))
		for _, st := range session.Standings {
			qualification = append(qualification, &models.Participant{
				ID:   st.ParticipantID,
				Name: st.Name,
			})
		}
		session.Qualification = qualification
		session.Bracket = nil
		session.ThirdPlace = nil
		session.Phase = models.PhaseQualification
		return true, nil
	})
}

func (s *sessionService) SetScore(ctx context.Context, sessionID, participantID string, score float64) (*models.Session, error) {
	return s.mutate(ctx, sessionID, func(session *models.Session) (bool, error) {
		if session.Phase != models.PhaseQualification {
			return false, ErrInvalidPhase
		}
		if score < 0 {
			return false, ErrInvalidScore
		}
		for _, p := range session.Qualification {
			if p.ID == participantID {
				value := score
				p.Score = &value
				return true, nil
			}
		}
		return false, ErrParticipantNotFound
	})
}

func (s *sessionService) GenerateBracket(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.mutate(ctx, sessionID, func(session *models.Session) (bool, error) {
		// Regeneration from the bracket phase discards the previous bracket.
		if session.Phase != models.PhaseQualification && session.Phase != models.PhaseBracket {
			return false, ErrInvalidPhase
		}
		if err := brackets.Build(session); err != nil {
			return false, err
		}
		session.Phase = models.PhaseBracket
		return true, nil
	})
}

func (s *sessionService) SetMatchWinner(ctx context.Context, sessionID, matchID, winnerID string) (*models.Session, error) {
	entry, err := s.getEntry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	if session.Phase != models.PhaseBracket {
		return nil, ErrInvalidPhase
	}

	out, err := brackets.SetWinner(session, matchID, winnerID)
	if err != nil {
		return nil, err
	}
	if !out.Changed {
		// Unknown match id or already-resolved match: a client error, not a
		// fatal one. State is untouched, so nothing is broadcast or saved.
		s.logger.Info("ignored winner assignment",
			slog.String("session_id", sessionID),
			slog.String("match_id", matchID))
		snap, _, err := snapshot(session)
		return snap, err
	}

	var result *models.CompetitionResult
	if out.Finished {
		result, err = brackets.AllocatePoints(session)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate points: %w", err)
		}
		session.Phase = models.PhaseFinished
		s.logger.Info("competition finished",
			slog.String("session_id", sessionID),
			slog.Int("competition", result.Competition),
			slog.String("champion_id", result.ChampionID))
	}

	session.UpdatedAt = time.Now()
	snap, raw, err := snapshot(session)
	if err != nil {
		return nil, err
	}
	s.hub.BroadcastState(sessionID, json.RawMessage(raw))
	if out.Finished {
		s.persistCompletion(sessionID, raw, result)
	} else {
		s.saver.Schedule(sessionID, raw)
	}
	return snap, nil
}

func (s *sessionService) ReturnToChampionship(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.mutate(ctx, sessionID, func(session *models.Session) (bool, error) {
		if session.Phase == models.PhaseChampionshipView {
			return false, ErrInvalidPhase
		}
		mergePendingRegistrations(session)
		session.Qualification = nil
		session.Bracket = nil
		session.ThirdPlace = nil
		session.Phase = models.PhaseChampionshipView
		return true, nil
	})
}

func (s *sessionService) ResetSeason(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.mutate(ctx, sessionID, func(session *models.Session) (bool, error) {
		mergePendingRegistrations(session)
		for _, st := range session.Standings {
			st.Points = []float64{}
		}
		session.CompetitionsHeld = 0
		session.Qualification = nil
		session.Bracket = nil
		session.ThirdPlace = nil
		session.Phase = models.PhaseChampionshipView
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	// The competitions-held counter restarts, so the old result rows would
	// collide with the next season's numbering.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.resultRepo.DeleteBySession(ctx, nil, sessionID); err != nil {
			s.logger.Warn("failed to clear competition results on season reset",
				slog.String("session_id", sessionID), slog.Any("error", err))
		}
	}()
	return session, nil
}

// mutate runs fn on the locked session and, when fn reports a change,
// stamps, broadcasts and schedules persistence of the new state. A failed
// fn leaves the session untouched.
func (s *sessionService) mutate(ctx context.Context, sessionID string, fn func(*models.Session) (bool, error)) (*models.Session, error) {
	entry, err := s.getEntry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	changed, err := fn(entry.session)
	if err != nil {
		return nil, err
	}
	if changed {
		entry.session.UpdatedAt = time.Now()
	}
	snap, raw, err := snapshot(entry.session)
	if err != nil {
		return nil, err
	}
	if changed {
		s.hub.BroadcastState(sessionID, json.RawMessage(raw))
		s.saver.Schedule(sessionID, raw)
	}
	return snap, nil
}

func (s *sessionService) getEntry(ctx context.Context, sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	// Cache miss: recover the session from the store (e.g. after restart).
	raw, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("corrupt state for session %s: %w", sessionID, err)
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persisted state for session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sessionID]; ok {
		return existing, nil
	}
	entry = &sessionEntry{session: &session}
	s.sessions[sessionID] = entry
	return entry, nil
}

// persistCompletion writes the finished state and the result row in
// parallel, then archives the snapshot. All of it is best effort: the
// in-memory state already transitioned and is not rolled back.
func (s *sessionService) persistCompletion(sessionID string, raw []byte, result *models.CompetitionResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to marshal competition result",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return s.saver.Flush(sessionID, raw)
		})
		g.Go(func() error {
			return s.resultRepo.Create(gCtx, nil, &repositories.ResultRow{
				SessionID:   sessionID,
				Competition: result.Competition,
				Result:      payload,
			})
		})
		if err := g.Wait(); err != nil {
			s.logger.Error("failed to persist competition result",
				slog.String("session_id", sessionID),
				slog.Int("competition", result.Competition),
				slog.Any("error", err))
		}

		if s.uploader == nil {
			return
		}
		key := fmt.Sprintf("archives/%s/competition-%d.json", sessionID, result.Competition)
		if _, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(raw)); err != nil {
			s.logger.Warn("failed to archive competition snapshot",
				slog.String("session_id", sessionID),
				slog.String("key", key),
				slog.Any("error", err))
		}
	}()
}

func mergePendingRegistrations(session *models.Session) {
	for _, st := range session.PendingRegistrations {
		st.Pad(session.CompetitionsHeld)
		session.Standings = append(session.Standings, st)
	}
	session.PendingRegistrations = nil
}

// snapshot deep-copies the session through its JSON form. The copy is what
// leaves the lock: handlers and spectators never touch live state.
func snapshot(session *models.Session) (*models.Session, []byte, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal session state: %w", err)
	}
	var copied models.Session
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, nil, fmt.Errorf("failed to copy session state: %w", err)
	}
	return &copied, raw, nil
}

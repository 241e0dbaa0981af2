package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bekarys-dev/championship-system/brackets"
	"github.com/bekarys-dev/championship-system/models"
	"github.com/bekarys-dev/championship-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySessionRepo struct {
	mu     sync.Mutex
	states map[string][]byte
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{states: make(map[string][]byte)}
}

func (r *memorySessionRepo) Save(_ context.Context, _ repositories.SQLExecutor, sessionID string, state []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[sessionID] = append([]byte(nil), state...)
	return nil
}

func (r *memorySessionRepo) Get(_ context.Context, sessionID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[sessionID]
	if !ok {
		return nil, repositories.ErrSessionNotFound
	}
	return append([]byte(nil), state...), nil
}

func (r *memorySessionRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[sessionID]; !ok {
		return repositories.ErrSessionNotFound
	}
	delete(r.states, sessionID)
	return nil
}

func (r *memorySessionRepo) ListIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	return ids, nil
}

type memoryResultRepo struct {
	mu   sync.Mutex
	rows []*repositories.ResultRow
}

func (r *memoryResultRepo) Create(_ context.Context, _ repositories.SQLExecutor, row *repositories.ResultRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.SessionID == row.SessionID && existing.Competition == row.Competition {
			return repositories.ErrResultConflict
		}
	}
	row.ID = len(r.rows) + 1
	r.rows = append(r.rows, row)
	return nil
}

func (r *memoryResultRepo) ListBySession(_ context.Context, sessionID string) ([]*repositories.ResultRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]*repositories.ResultRow, 0)
	for _, row := range r.rows {
		if row.SessionID == sessionID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (r *memoryResultRepo) DeleteBySession(_ context.Context, _ repositories.SQLExecutor, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.SessionID != sessionID {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *memoryResultRepo) count(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.SessionID == sessionID {
			n++
		}
	}
	return n
}

type serviceFixture struct {
	service     SessionService
	sessionRepo *memorySessionRepo
	resultRepo  *memoryResultRepo
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessionRepo := newMemorySessionRepo()
	resultRepo := &memoryResultRepo{}
	hub := brackets.NewHub(logger)
	saver := NewSaver(sessionRepo, time.Millisecond, logger)
	return &serviceFixture{
		service:     NewSessionService(sessionRepo, resultRepo, hub, saver, nil, logger),
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
	}
}

func TestCreateSessionStartsInChampionshipView(t *testing.T) {
	f := newServiceFixture(t)
	session, err := f.service.Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.PhaseChampionshipView, session.Phase)
	assert.Empty(t, session.Standings)
	assert.Equal(t, 0, session.CompetitionsHeld)

	// Новая сессия сохраняется сразу.
	_, err = f.sessionRepo.Get(context.Background(), session.ID)
	require.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	session, err := f.service.Create(ctx)
	require.NoError(t, err)

	_, err = f.service.Register(ctx, session.ID, "  ")
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = f.service.Register(ctx, session.ID, "Alice")
	require.NoError(t, err)

	// Имена сравниваются без учета регистра и пробелов по краям.
	_, err = f.service.Register(ctx, session.ID, " alice ")
	require.ErrorIs(t, err, ErrNameTaken)

	_, err = f.service.Register(ctx, "no-such-session", "Bob")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegisterDuringCompetitionIsDeferred(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	session, err := f.service.Create(ctx)
	require.NoError(t, err)

	_, err = f.service.Register(ctx, session.ID, "Alice")
	require.NoError(t, err)
	_, err = f.service.StartQualification(ctx, session.ID)
	require.NoError(t, err)

	snap, err := f.service.Register(ctx, session.ID, "Bob")
	require.NoError(t, err)
	assert.Len(t, snap.Standings, 1, "newcomer must not join mid-competition")
	require.Len(t, snap.PendingRegistrations, 1)
	assert.Equal(t, "Bob", snap.PendingRegistrations[0].Name)

	// Дубликат проверяется и против отложенных регистраций.
	_, err = f.service.Register(ctx, session.ID, "BOB")
	require.ErrorIs(t, err, ErrNameTaken)

	snap, err = f.service.ReturnToChampionship(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.PendingRegistrations)
	require.Len(t, snap.Standings, 2)
	assert.Equal(t, "Bob", snap.Standings[1].Name)
}

func TestPhaseGuards(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	session, err := f.service.Create(ctx)
	require.NoError(t, err)

	_, err = f.service.SetScore(ctx, session.ID, "someone", 10)
	require.ErrorIs(t, err, ErrInvalidPhase)

	_, err = f.service.GenerateBracket(ctx, session.ID)
	require.ErrorIs(t, err, ErrInvalidPhase)

	_, err = f.service.SetMatchWinner(ctx, session.ID, "match", "someone")
	require.ErrorIs(t, err, ErrInvalidPhase)

	_, err = f.service.ReturnToChampionship(ctx, session.ID)
	require.ErrorIs(t, err, ErrInvalidPhase)

	_, err = f.service.StartQualification(ctx, session.ID)
	require.NoError(t, err)
	_, err = f.service.StartQualification(ctx, session.ID)
	require.ErrorIs(t, err, ErrInvalidPhase)
}

func TestSetScoreValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	session, err := f.service.Create(ctx)
	require.NoError(t, err)
	_, err = f.service.Register(ctx, session.ID, "Alice")
	require.NoError(t, err)
	snap, err := f.service.StartQualification(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, snap.Qualification, 1)
	aliceID := snap.Qualification[0].ID

	_, err = f.service.SetScore(ctx, session.ID, aliceID, -1)
	require.ErrorIs(t, err, ErrInvalidScore)

	_, err = f.service.SetScore(ctx, session.ID, "unknown", 10)
	require.ErrorIs(t, err, ErrParticipantNotFound)

	snap, err = f.service.SetScore(ctx, session.ID, aliceID, 42.5)
	require.NoError(t, err)
	require.NotNil(t, snap.Qualification[0].Score)
	assert.Equal(t, 42.5, *snap.Qualification[0].Score)
}

func TestFullCompetitionFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	session, err := f.service.Create(ctx)
	require.NoError(t, err)
	id := session.ID

	names := []string{"Alice", "Bob", "Carol", "Dave"}
	for _, name := range names {
		_, err = f.service.Register(ctx, id, name)
		require.NoError(t, err)
	}

	snap, err := f.service.StartQualification(ctx, id)
	require.NoError(t, err)
	require.Len(t, snap.Qualification, 4)

	byName := make(map[string]string, 4)
	for _, p := range snap.Qualification {
		byName[p.Name] = p.ID
	}
	for i, name := range names {
		_, err = f.service.SetScore(ctx, id, byName[name], float64(40-10*i))
		require.NoError(t, err)
	}

	snap, err = f.service.GenerateBracket(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseBracket, snap.Phase)
	require.NotNil(t, snap.Bracket)
	require.Len(t, snap.Bracket.Rounds, 2)

	// Полуфиналы: Alice vs Dave, Bob vs Carol.
	semis := snap.Bracket.Rounds[0]
	snap, err = f.service.SetMatchWinner(ctx, id, semis[0].ID, byName["Alice"])
	require.NoError(t, err)
	snap, err = f.service.SetMatchWinner(ctx, id, semis[1].ID, byName["Bob"])
	require.NoError(t, err)
	require.NotNil(t, snap.ThirdPlace)

	finalID := snap.Bracket.Rounds[1][0].ID
	snap, err = f.service.SetMatchWinner(ctx, id, finalID, byName["Alice"])
	require.NoError(t, err)
	assert.Equal(t, models.PhaseBracket, snap.Phase, "third place still open")

	snap, err = f.service.SetMatchWinner(ctx, id, snap.ThirdPlace.ID, byName["Carol"])
	require.NoError(t, err)
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.Equal(t, 1, snap.CompetitionsHeld)

	// Итоговая таблица: 112 / 98 / 84 / 70.
	require.Len(t, snap.Standings, 4)
	assert.Equal(t, "Alice", snap.Standings[0].Name)
	assert.Equal(t, 112.0, snap.Standings[0].Total())
	assert.Equal(t, "Dave", snap.Standings[3].Name)
	assert.Equal(t, 70.0, snap.Standings[3].Total())

	// Запись результата идет в фоне.
	require.Eventually(t, func() bool {
		return f.resultRepo.count(id) == 1
	}, time.Second, 5*time.Millisecond)

	results, err := f.service.Results(ctx, id)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Competition)
	assert.Equal(t, byName["Alice"], results[0].ChampionID)
	assert.Equal(t, byName["Carol"], results[0].ThirdID)

	snap, err = f.service.ReturnToChampionship(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseChampionshipView, snap.Phase)
	assert.Nil(t, snap.Bracket)
	assert.Nil(t, snap.ThirdPlace)
	assert.Empty(t, snap.Qualification)
	assert.Equal(t, 1, snap.CompetitionsHeld, "season totals survive the return")
}

func TestSetMatchWinnerIgnoredNoOpKeepsState(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	session, err := f.service.Create(ctx)
	require.NoError(t, err)
	id := session.ID

	for _, name := range []string{"Alice", "Bob"} {
		_, err = f.service.Register(ctx, id, name)
		require.NoError(t, err)
	}
	snap, err := f.service.StartQualification(ctx, id)
	require.NoError(t, err)
	for i, p := range snap.Qualification {
		_, err = f.service.SetScore(ctx, id, p.ID, float64(20-10*i))
		require.NoError(t, err)
	}
	snap, err = f.service.GenerateBracket(ctx, id)
	require.NoError(t, err)

	before := snap.UpdatedAt
	snap, err = f.service.SetMatchWinner(ctx, id, "unknown-match", snap.Qualification[0].ID)
	require.NoError(t, err)
	assert.True(t, snap.UpdatedAt.Equal(before), "ignored no-op must not stamp the session")
}

func TestResetSeason(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	session, err := f.service.Create(ctx)
	require.NoError(t, err)
	id := session.ID

	for _, name := range []string{"Alice", "Bob"} {
		_, err = f.service.Register(ctx, id, name)
		require.NoError(t, err)
	}
	snap, err := f.service.StartQualification(ctx, id)
	require.NoError(t, err)
	for i, p := range snap.Qualification {
		_, err = f.service.SetScore(ctx, id, p.ID, float64(20-10*i))
		require.NoError(t, err)
	}
	snap, err = f.service.GenerateBracket(ctx, id)
	require.NoError(t, err)
	finalID := snap.Bracket.Rounds[0][0].ID
	snap, err = f.service.SetMatchWinner(ctx, id, finalID, snap.Qualification[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.PhaseFinished, snap.Phase)

	require.Eventually(t, func() bool {
		return f.resultRepo.count(id) == 1
	}, time.Second, 5*time.Millisecond)

	snap, err = f.service.ResetSeason(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseChampionshipView, snap.Phase)
	assert.Equal(t, 0, snap.CompetitionsHeld)
	require.Len(t, snap.Standings, 2, "roster survives the reset")
	for _, st := range snap.Standings {
		assert.Empty(t, st.Points)
	}

	// Строки результатов прошлого сезона удаляются в фоне.
	require.Eventually(t, func() bool {
		return f.resultRepo.count(id) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSessionRecoveredFromStore(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	session, err := f.service.Create(ctx)
	require.NoError(t, err)
	_, err = f.service.Register(ctx, session.ID, "Alice")
	require.NoError(t, err)

	// Дождаться отложенной записи.
	require.Eventually(t, func() bool {
		raw, err := f.sessionRepo.Get(ctx, session.ID)
		return err == nil && bytes.Contains(raw, []byte("Alice"))
	}, time.Second, 5*time.Millisecond)

	// Новый экземпляр сервиса поверх того же стора: как после рестарта.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rebuilt := NewSessionService(
		f.sessionRepo, f.resultRepo, brackets.NewHub(logger),
		NewSaver(f.sessionRepo, time.Millisecond, logger), nil, logger,
	)

	recovered, err := rebuilt.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, recovered.ID)
	require.Len(t, recovered.Standings, 1)
	assert.Equal(t, "Alice", recovered.Standings[0].Name)

	_, err = rebuilt.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

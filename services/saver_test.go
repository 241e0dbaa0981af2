package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bekarys-dev/championship-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRepo struct {
	mu    sync.Mutex
	saves []string
	last  map[string][]byte
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{last: make(map[string][]byte)}
}

func (r *recordingRepo) Save(_ context.Context, _ repositories.SQLExecutor, sessionID string, state []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, sessionID)
	r.last[sessionID] = append([]byte(nil), state...)
	return nil
}

func (r *recordingRepo) Get(context.Context, string) ([]byte, error) {
	return nil, repositories.ErrSessionNotFound
}

func (r *recordingRepo) Delete(context.Context, string) error { return nil }

func (r *recordingRepo) ListIDs(context.Context) ([]string, error) { return nil, nil }

func (r *recordingRepo) saveCount(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range r.saves {
		if id == sessionID {
			n++
		}
	}
	return n
}

func (r *recordingRepo) lastState(sessionID string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last[sessionID]
}

func TestSaverCollapsesRapidSchedules(t *testing.T) {
	repo := newRecordingRepo()
	saver := NewSaver(repo, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Несколько изменений внутри окна дают одну запись с последним
	// состоянием.
	saver.Schedule("s1", []byte("v1"))
	saver.Schedule("s1", []byte("v2"))
	saver.Schedule("s1", []byte("v3"))

	require.Eventually(t, func() bool {
		return repo.saveCount("s1") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("v3"), repo.lastState("s1"))

	// Окно закрыто; новое изменение взводит новый таймер.
	saver.Schedule("s1", []byte("v4"))
	require.Eventually(t, func() bool {
		return repo.saveCount("s1") == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("v4"), repo.lastState("s1"))
}

func TestSaverFlushWritesImmediatelyAndCancelsTimer(t *testing.T) {
	repo := newRecordingRepo()
	saver := NewSaver(repo, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	saver.Schedule("s1", []byte("queued"))
	require.NoError(t, saver.Flush("s1", []byte("final")))

	assert.Equal(t, 1, repo.saveCount("s1"))
	assert.Equal(t, []byte("final"), repo.lastState("s1"))

	// Отмененный таймер больше не срабатывает.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, repo.saveCount("s1"))
}

func TestSaverKeepsSessionsIndependent(t *testing.T) {
	repo := newRecordingRepo()
	saver := NewSaver(repo, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	saver.Schedule("a", []byte("state-a"))
	saver.Schedule("b", []byte("state-b"))

	require.Eventually(t, func() bool {
		return repo.saveCount("a") == 1 && repo.saveCount("b") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("state-a"), repo.lastState("a"))
	assert.Equal(t, []byte("state-b"), repo.lastState("b"))
}

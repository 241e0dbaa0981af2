package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrResultNotFound = errors.New("competition result not found")
	ErrResultConflict = errors.New("competition result already recorded")
	ErrResultSession  = errors.New("competition result session conflict or invalid")
)

// ResultRow is one completed competition: the result breakdown as stored
// JSON plus bookkeeping columns.
type ResultRow struct {
	ID          int       `json:"id"`
	SessionID   string    `json:"session_id"`
	Competition int       `json:"competition"`
	Result      []byte    `json:"result"`
	CreatedAt   time.Time `json:"created_at"`
}

// ResultRepository is an append-only log of completed competitions.
type ResultRepository interface {
	Create(ctx context.Context, exec SQLExecutor, row *ResultRow) error
	ListBySession(ctx context.Context, sessionID string) ([]*ResultRow, error)
	DeleteBySession(ctx context.Context, exec SQLExecutor, sessionID string) error
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresResultRepository) Create(ctx context.Context, exec SQLExecutor, row *ResultRow) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO competition_results (session_id, competition, result, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	err := executor.QueryRowContext(ctx, query,
		row.SessionID, row.Competition, row.Result, row.CreatedAt,
	).Scan(&row.ID)
	return r.handleResultError(err)
}

func (r *postgresResultRepository) ListBySession(ctx context.Context, sessionID string) ([]*ResultRow, error) {
	query := `
		SELECT id, session_id, competition, result, created_at
		FROM competition_results
		WHERE session_id = $1
		ORDER BY competition ASC`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	results := make([]*ResultRow, 0)
	for rows.Next() {
		var row ResultRow
		if err := rows.Scan(&row.ID, &row.SessionID, &row.Competition, &row.Result, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		results = append(results, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *postgresResultRepository) DeleteBySession(ctx context.Context, exec SQLExecutor, sessionID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM competition_results WHERE session_id = $1`, sessionID)
	return err
}

func (r *postgresResultRepository) handleResultError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "competition_results_session_id_fkey":
			return ErrResultSession
		case "competition_results_session_id_competition_key":
			return ErrResultConflict
		}
	}
	return err
}

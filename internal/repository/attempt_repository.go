package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepgrid/testprep-backend/internal/model"
)

// AttemptSummary is the history-list projection of an attempt.
type AttemptSummary struct {
	ID         uuid.UUID          `json:"id"`
	PaperID    string             `json:"paper_id"`
	Status     model.RecordStatus `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	EndedAt    *time.Time         `json:"ended_at,omitempty"`
	FinalScore *float64           `json:"final_score,omitempty"`
}

// AttemptRepository handles attempt record data access. The live session is
// authoritative while an attempt runs; rows here are checkpoint mirrors
// until submission finalizes them.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a started attempt and fills in the generated id.
func (r *AttemptRepository) Create(ctx context.Context, a *model.AttemptRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (user_id, paper_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at`,
		a.UserID, a.PaperID, model.RecordStatusStarted,
	).Scan(&a.ID, &a.StartedAt)
}

// GetByID retrieves a full attempt record.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AttemptRecord, error) {
	a := &model.AttemptRecord{}
	var answers, times []byte

	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, paper_id, status, started_at, ended_at,
		        answers, times, summary, final_score
		 FROM attempts
		 WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.PaperID, &a.Status, &a.StartedAt, &a.EndedAt,
		&answers, &times, &a.Summary, &a.FinalScore)
	if err != nil {
		return nil, err
	}

	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	if len(times) > 0 {
		if err := json.Unmarshal(times, &a.Times); err != nil {
			return nil, fmt.Errorf("decode times: %w", err)
		}
	}
	return a, nil
}

// ListByUser retrieves a user's attempts, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID int) ([]AttemptSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, paper_id, status, started_at, ended_at, final_score
		 FROM attempts
		 WHERE user_id = $1
		 ORDER BY started_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptSummary
	for rows.Next() {
		var s AttemptSummary
		if err := rows.Scan(&s.ID, &s.PaperID, &s.Status, &s.StartedAt, &s.EndedAt, &s.FinalScore); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListCompletedScores returns final scores of completed attempts in
// chronological order, for the score trend view. An optional paperID
// filters to one paper.
func (r *AttemptRepository) ListCompletedScores(ctx context.Context, userID int, paperID string) ([]AttemptSummary, error) {
	query := `SELECT id, paper_id, status, started_at, ended_at, final_score
	          FROM attempts
	          WHERE user_id = $1 AND status = 'completed' AND final_score IS NOT NULL`
	args := []any{userID}
	if paperID != "" {
		args = append(args, paperID)
		query += fmt.Sprintf(" AND paper_id = $%d", len(args))
	}
	query += " ORDER BY started_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptSummary
	for rows.Next() {
		var s AttemptSummary
		if err := rows.Scan(&s.ID, &s.PaperID, &s.Status, &s.StartedAt, &s.EndedAt, &s.FinalScore); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveProgress overwrites the answer/time mirrors of a still-running
// attempt. Completed attempts are left untouched.
func (r *AttemptRepository) SaveProgress(ctx context.Context, id uuid.UUID, answers map[string]model.UserAnswer, times map[string]int) error {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	timesJSON, err := json.Marshal(times)
	if err != nil {
		return fmt.Errorf("encode times: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE attempts
		 SET answers = $1, times = $2, updated_at = NOW()
		 WHERE id = $3 AND status = 'started'`,
		answersJSON, timesJSON, id)
	return err
}

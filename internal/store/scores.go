package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scores is the office scoreboard.
type Scores struct {
	Chats      int64     `json:"chats"`
	Dispatches int64     `json:"dispatches"`
	Streak     int64     `json:"streak"`
	BestStreak int64     `json:"best_streak"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Interaction is one finished conversation or dispatch.
type Interaction struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Kind      string    `json:"kind"`
	WorkerA   string    `json:"worker_a"`
	WorkerB   string    `json:"worker_b"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	KindChat     = "chat"
	KindDispatch = "dispatch"
)

// RecordInteraction stores a finished interaction and bumps the matching
// counter in one transaction.
func (s *Store) RecordInteraction(ctx context.Context, kind, sessionID, a, b string) error {
	var column string
	switch kind {
	case KindChat:
		column = "chats"
	case KindDispatch:
		column = "dispatches"
	default:
		return fmt.Errorf("record interaction: unknown kind %q", kind)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO interactions (id, session_id, kind, worker_a, worker_b)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), sessionID, kind, a, b,
	); err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE scores SET `+column+` = `+column+` + 1, updated_at = now()
		WHERE id = 1`,
	); err != nil {
		return fmt.Errorf("bump %s: %w", column, err)
	}
	return tx.Commit(ctx)
}

// RecordPoll extends the healthy streak, or resets it when any worker is in
// error.
func (s *Store) RecordPoll(ctx context.Context, healthy bool) (int64, error) {
	var streak int64
	err := s.db.QueryRow(ctx, `
		UPDATE scores SET
			streak = CASE WHEN $1 THEN streak + 1 ELSE 0 END,
			best_streak = GREATEST(best_streak, CASE WHEN $1 THEN streak + 1 ELSE 0 END),
			updated_at = now()
		WHERE id = 1
		RETURNING streak`, healthy,
	).Scan(&streak)
	if err != nil {
		return 0, fmt.Errorf("record poll: %w", err)
	}
	return streak, nil
}

// Scores returns the scoreboard.
func (s *Store) Scores(ctx context.Context) (*Scores, error) {
	var sc Scores
	err := s.db.QueryRow(ctx, `
		SELECT chats, dispatches, streak, best_streak, updated_at
		FROM scores WHERE id = 1`,
	).Scan(&sc.Chats, &sc.Dispatches, &sc.Streak, &sc.BestStreak, &sc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get scores: %w", err)
	}
	return &sc, nil
}

// RecentInteractions returns the latest interactions, newest first.
func (s *Store) RecentInteractions(ctx context.Context, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, kind, worker_a, worker_b, created_at
		FROM interactions
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var in Interaction
		if err := rows.Scan(&in.ID, &in.SessionID, &in.Kind, &in.WorkerA, &in.WorkerB, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

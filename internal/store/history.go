package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StatusChange is one observed status transition of a worker.
type StatusChange struct {
	WorkerID  string    `json:"worker_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordStatus appends a status transition.
func (s *Store) RecordStatus(ctx context.Context, workerID, status string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO status_changes (id, worker_id, status)
		VALUES ($1, $2, $3)`,
		uuid.NewString(), workerID, status,
	)
	if err != nil {
		return fmt.Errorf("record status %s: %w", workerID, err)
	}
	return nil
}

// StatusHistory returns a worker's latest transitions, newest first.
func (s *Store) StatusHistory(ctx context.Context, workerID string, limit int) ([]StatusChange, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT worker_id, status, created_at
		FROM status_changes
		WHERE worker_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, workerID, limit)
	if err != nil {
		return nil, fmt.Errorf("status history %s: %w", workerID, err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.WorkerID, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scribe/internal/phase"
)

// ClaimNextPending atomically transitions the oldest pending job to running
// and returns it. It returns nil when the queue has no pending work. The
// status guard on the UPDATE keeps concurrent claimers from stealing the
// same row; a lost race reports as no work.
func (s *Store) ClaimNextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		StatusPending,
	)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("next pending job: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, phase = ?, started_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusRunning,
		phase.Initializing.Label(),
		now,
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return s.GetByID(ctx, id)
}

// ResetStuckRunning returns jobs left in the running state by an earlier
// process back to pending so they are picked up again.
func (s *Store) ResetStuckRunning(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, phase = NULL, started_at = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

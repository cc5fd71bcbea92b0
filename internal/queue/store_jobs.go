package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enqueue inserts a new pending job for an uploaded file.
func (s *Store) Enqueue(ctx context.Context, sourcePath, originalName, model, lang string) (*Job, error) {
	if sourcePath == "" {
		return nil, errors.New("source path is empty")
	}
	if originalName == "" {
		return nil, errors.New("original name is empty")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, source_path, original_name, display_title, model, language,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		sourcePath,
		originalName,
		DeriveTitle(originalName),
		model,
		lang,
		StatusPending,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	files, err := encodeResultFiles(job.ResultFiles)
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET source_path = ?, original_name = ?, display_title = ?, model = ?,
             language = ?, status = ?, phase = ?, error_kind = ?, error_message = ?,
             exit_code = ?, output_dir = ?, result_files = ?,
             media_duration_seconds = ?, elapsed_seconds = ?, speed_factor = ?,
             updated_at = ?, started_at = ?, finished_at = ?
         WHERE id = ?`,
		job.SourcePath,
		job.OriginalName,
		nullableString(job.DisplayTitle),
		job.Model,
		job.Language,
		job.Status,
		nullableString(job.Phase),
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		job.ExitCode,
		nullableString(job.OutputDir),
		nullableString(files),
		job.MediaDuration.Seconds(),
		job.Elapsed.Seconds(),
		job.SpeedFactor,
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdatePhase records worker progress for a running job without touching the
// rest of the row.
func (s *Store) UpdatePhase(ctx context.Context, id, phase string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET phase = ?, updated_at = ? WHERE id = ?`,
		phase,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Recent returns the newest jobs first, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

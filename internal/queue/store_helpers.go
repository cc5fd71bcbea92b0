package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, source_path, original_name, display_title, model, language, status, phase, error_kind, error_message, exit_code, output_dir, result_files, media_duration_seconds, elapsed_seconds, speed_factor, created_at, updated_at, started_at, finished_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		sourcePath   string
		originalName string
		displayTitle sql.NullString
		model        string
		lang         string
		statusStr    string
		phase        sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		exitCode     sql.NullInt64
		outputDir    sql.NullString
		resultFiles  sql.NullString
		mediaSeconds sql.NullFloat64
		elapsed      sql.NullFloat64
		speedFactor  sql.NullFloat64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&originalName,
		&displayTitle,
		&model,
		&lang,
		&statusStr,
		&phase,
		&errorKind,
		&errorMessage,
		&exitCode,
		&outputDir,
		&resultFiles,
		&mediaSeconds,
		&elapsed,
		&speedFactor,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		SourcePath:    sourcePath,
		OriginalName:  originalName,
		DisplayTitle:  displayTitle.String,
		Model:         model,
		Language:      lang,
		Status:        Status(statusStr),
		Phase:         phase.String,
		ErrorKind:     errorKind.String,
		ErrorMessage:  errorMessage.String,
		ExitCode:      int(exitCode.Int64),
		OutputDir:     outputDir.String,
		MediaDuration: secondsToDuration(mediaSeconds.Float64),
		Elapsed:       secondsToDuration(elapsed.Float64),
		SpeedFactor:   speedFactor.Float64,
	}

	if resultFiles.Valid && resultFiles.String != "" {
		files, err := decodeResultFiles(resultFiles.String)
		if err != nil {
			return nil, err
		}
		job.ResultFiles = files
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}

func encodeResultFiles(files []string) (string, error) {
	if len(files) == 0 {
		return "", nil
	}
	data, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("marshal result files: %w", err)
	}
	return string(data), nil
}

func decodeResultFiles(value string) ([]string, error) {
	var files []string
	if err := json.Unmarshal([]byte(value), &files); err != nil {
		return nil, fmt.Errorf("unmarshal result files: %w", err)
	}
	return files, nil
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

package server

import (
	"time"

	"scribe/internal/language"
	"scribe/internal/queue"
	"scribe/internal/readiness"
)

// jobView is the wire shape of a job, shared by the JSON API and the
// websocket stream. Durations are seconds so browser code never parses
// Go duration strings.
type jobView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Title          string     `json:"title"`
	Model          string     `json:"model"`
	Language       string     `json:"language"`
	LanguageName   string     `json:"language_name"`
	Status         string     `json:"status"`
	Phase          string     `json:"phase,omitempty"`
	ErrorKind      string     `json:"error_kind,omitempty"`
	Error          string     `json:"error,omitempty"`
	ExitCode       int        `json:"exit_code"`
	Files          []string   `json:"files,omitempty"`
	MediaSeconds   float64    `json:"media_seconds,omitempty"`
	ElapsedSeconds float64    `json:"elapsed_seconds,omitempty"`
	SpeedFactor    float64    `json:"speed_factor,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

func snapshotJob(job *queue.Job) jobView {
	return jobView{
		ID:             job.ID,
		Name:           job.OriginalName,
		Title:          job.DisplayTitle,
		Model:          job.Model,
		Language:       job.Language,
		LanguageName:   language.DisplayName(job.Language),
		Status:         string(job.Status),
		Phase:          job.Phase,
		ErrorKind:      job.ErrorKind,
		Error:          job.ErrorMessage,
		ExitCode:       job.ExitCode,
		Files:          job.ResultFiles,
		MediaSeconds:   job.MediaDuration.Seconds(),
		ElapsedSeconds: job.Elapsed.Seconds(),
		SpeedFactor:    job.SpeedFactor,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		StartedAt:      job.StartedAt,
		FinishedAt:     job.FinishedAt,
	}
}

// fileView describes one downloadable result artifact.
type fileView struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	URL  string `json:"url"`
}

// checkView is one readiness probe outcome for /api/system.
type checkView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Hard   bool   `json:"hard"`
	Detail string `json:"detail,omitempty"`
}

// systemView is the /api/system payload: effective worker settings, the
// readiness probe outcomes, and queue counts.
type systemView struct {
	Device      string              `json:"device"`
	Model       string              `json:"model"`
	Language    string              `json:"language"`
	WorkerImage string              `json:"worker_image"`
	Diarization bool                `json:"diarization"`
	Ready       bool                `json:"ready"`
	Checks      []checkView         `json:"checks"`
	Jobs        queue.HealthSummary `json:"jobs"`
}

func snapshotChecks(report readiness.Report) []checkView {
	checks := make([]checkView, 0, len(report.Checks))
	for _, check := range report.Checks {
		checks = append(checks, checkView{
			Name:   check.Name,
			Passed: check.Passed,
			Hard:   check.Hard,
			Detail: check.Detail,
		})
	}
	return checks
}

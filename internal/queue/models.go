package queue

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusSucceeded,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status reflects a finished job.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job represents one uploaded file persisted in SQLite. A job is keyed by a
// UUID assigned at enqueue time; rows never change identity across status
// transitions.
type Job struct {
	ID            string
	SourcePath    string
	OriginalName  string
	DisplayTitle  string
	Model         string
	Language      string
	Status        Status
	Phase         string
	ErrorKind     string
	ErrorMessage  string
	ExitCode      int
	OutputDir     string
	ResultFiles   []string
	MediaDuration time.Duration
	Elapsed       time.Duration
	SpeedFactor   float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// SetSucceeded marks the job complete with the worker's measurements.
func (j *Job) SetSucceeded(outputDir string, files []string, elapsed, media time.Duration, speed float64) {
	now := time.Now().UTC()
	j.Status = StatusSucceeded
	j.OutputDir = outputDir
	j.ResultFiles = files
	j.Elapsed = elapsed
	j.MediaDuration = media
	j.SpeedFactor = speed
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.ExitCode = 0
	j.FinishedAt = &now
}

// SetFailed marks the job failed with the classified error.
func (j *Job) SetFailed(kind, message string, exitCode int, elapsed time.Duration) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.ErrorKind = kind
	j.ErrorMessage = message
	j.ExitCode = exitCode
	j.Elapsed = elapsed
	j.FinishedAt = &now
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// DeriveTitle builds a human-readable title from an uploaded file name.
func DeriveTitle(name string) string {
	if name == "" {
		return "Untitled"
	}
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled"
	}
	return cases.Title(language.Und).String(title)
}

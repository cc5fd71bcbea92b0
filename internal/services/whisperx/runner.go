package whisperx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/phase"
	"scribe/internal/services"
	"scribe/internal/services/docker"
	"scribe/internal/workspace"
)

// excerptLines bounds the diagnostic excerpt kept for failed jobs.
const excerptLines = 10

// Update is a live supervision event. Advanced is true when the phase moved
// forward; ticks with Advanced false arrive at the poll cadence so a display
// can animate while the worker is quiet.
type Update struct {
	JobID    string
	Phase    phase.Phase
	Advanced bool
}

// Result captures one job's outcome. Err is nil on success; failed jobs
// carry an error tagged with a services sentinel so callers can tell launch,
// runtime, and timeout failures apart without string matching.
type Result struct {
	Request       Request
	Phase         phase.Phase
	ExitCode      int
	Elapsed       time.Duration
	MediaDuration time.Duration
	SpeedFactor   float64
	OutputFiles   []string
	Excerpt       []string
	Err           error
}

// Succeeded reports whether the job completed cleanly.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// FailureKind returns the short failure label for reports, empty on success.
func (r Result) FailureKind() string {
	if r.Err == nil {
		return ""
	}
	return services.Kind(r.Err)
}

// DurationProber reports a media file's play length. Probing is optional;
// jobs run fine without it, they just lose the speed-factor statistic.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Option configures the runner.
type Option func(*Runner)

// WithProgress registers a callback for live supervision updates.
func WithProgress(fn func(Update)) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithProber injects a media duration prober.
func WithProber(p DurationProber) Option {
	return func(r *Runner) {
		r.prober = p
	}
}

// WithUser overrides the uid:gid the container runs as (primarily for tests).
func WithUser(user string) Option {
	return func(r *Runner) {
		if user != "" {
			r.user = user
		}
	}
}

// WithTimeout overrides the configured per-job wall clock limit.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout >= 0 {
			r.timeout = timeout
		}
	}
}

// Runner executes transcription jobs through the containerized worker.
type Runner struct {
	cfg      *config.Config
	client   *docker.Client
	prober   DurationProber
	logger   *slog.Logger
	progress func(Update)
	user     string
	timeout  time.Duration
}

// NewRunner constructs a job runner on top of a docker client.
func NewRunner(cfg *config.Config, client *docker.Client, logger *slog.Logger, opts ...Option) *Runner {
	if client == nil {
		client = docker.New(cfg.DockerBinary())
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := &Runner{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		user:    fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		timeout: cfg.JobTimeout(),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

type streamLine struct {
	stream docker.Stream
	text   string
}

type runOutcome struct {
	code int
	err  error
}

// Run supervises one job from launch to exit. Job-level failures land on
// the Result and never propagate as errors; the returned error is non-nil
// only when ctx itself was canceled, which aborts the caller's loop.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if req.JobID == "" {
		req.JobID = workspace.JobBase(req.InputPath)
	}
	res := Result{Request: req, Phase: phase.Initializing, ExitCode: -1}
	ctx = services.WithJobID(ctx, req.JobID)
	ctx = services.WithComponent(ctx, "whisperx")
	logger := logging.WithContext(ctx, r.logger)

	if strings.TrimSpace(req.InputPath) == "" || strings.TrimSpace(req.OutputDir) == "" {
		res.Err = services.Wrap(services.ErrValidation, "whisperx", "run", "input path and output dir required", nil)
		return res, nil
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		res.Err = services.Wrap(services.ErrValidation, "whisperx", "run", "input file not accessible", err)
		return res, nil
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		res.Err = services.Wrap(services.ErrRuntime, "whisperx", "run", "create job output dir", err)
		return res, nil
	}

	if req.MediaDuration > 0 {
		res.MediaDuration = req.MediaDuration
	} else if r.prober != nil {
		if duration, err := r.prober.Duration(ctx, req.InputPath); err == nil && duration > 0 {
			res.MediaDuration = duration
		}
	}

	spec := BuildRunSpec(r.cfg, req, r.user)
	logger.Info("starting worker",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("input", req.InputPath),
		logging.String("output_dir", req.OutputDir),
		logging.String("image", spec.Image),
	)

	runCtx := ctx
	timeout := r.timeout
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lines := make(chan streamLine, 128)
	done := make(chan runOutcome, 1)
	go func() {
		code, err := r.client.Run(runCtx, spec, func(stream docker.Stream, line string) {
			lines <- streamLine{stream: stream, text: line}
		})
		done <- runOutcome{code: code, err: err}
	}()

	tail := newTailBuffer(excerptLines)
	ticker := time.NewTicker(r.cfg.PollInterval())
	defer ticker.Stop()

	current := phase.Initializing
	r.report(req.JobID, current, true)
	started := time.Now()

	var out runOutcome
supervise:
	for {
		select {
		case line := <-lines:
			current = r.observe(req.JobID, logger, tail, current, line)
		case <-ticker.C:
			r.report(req.JobID, current, false)
		case out = <-done:
			break supervise
		}
	}
	// The executor finished, so every pending line is already buffered.
	for {
		select {
		case line := <-lines:
			current = r.observe(req.JobID, logger, tail, current, line)
		default:
			return r.finish(ctx, runCtx, req, logger, res, current, tail, out, time.Since(started))
		}
	}
}

func (r *Runner) finish(ctx, runCtx context.Context, req Request, logger *slog.Logger, res Result, current phase.Phase, tail *tailBuffer, out runOutcome, elapsed time.Duration) (Result, error) {
	res.Elapsed = elapsed
	res.ExitCode = out.code
	res.Phase = current

	switch {
	case ctx.Err() != nil:
		res.Err = services.Wrap(services.ErrRuntime, "whisperx", "run", "interrupted", ctx.Err())
		logger.Warn("job interrupted", logging.String(logging.FieldEventType, "job_interrupted"))
		return res, ctx.Err()
	case runCtx.Err() == context.DeadlineExceeded:
		res.Excerpt = tail.Lines()
		res.Err = services.Wrap(services.ErrTimeout, "whisperx", "run", fmt.Sprintf("job exceeded %s and was killed", r.timeout), nil)
	case out.err != nil:
		res.Excerpt = tail.Lines()
		res.Err = out.err
	case out.code != 0:
		res.Excerpt = tail.Lines()
		res.Err = services.Wrap(services.ErrRuntime, "whisperx", "run", fmt.Sprintf("worker exited with code %d", out.code), nil)
	default:
		if current < phase.Finalizing {
			current = phase.Finalizing
			res.Phase = current
			r.report(req.JobID, current, true)
		}
		res.OutputFiles = listOutputFiles(req.OutputDir)
		if res.MediaDuration > 0 && res.Elapsed > 0 {
			res.SpeedFactor = res.MediaDuration.Seconds() / res.Elapsed.Seconds()
		}
		logger.Info("job complete",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String(logging.FieldPhase, current.String()),
			logging.String("elapsed", res.Elapsed.Round(time.Millisecond).String()),
			logging.Int("output_files", len(res.OutputFiles)),
		)
		return res, nil
	}

	logger.Error("job failed",
		logging.String(logging.FieldEventType, "job_failure"),
		logging.String(logging.FieldPhase, current.String()),
		logging.String("failure_kind", res.FailureKind()),
		logging.Int("exit_code", res.ExitCode),
		logging.Error(res.Err),
	)
	return res, nil
}

func (r *Runner) observe(jobID string, logger *slog.Logger, tail *tailBuffer, current phase.Phase, line streamLine) phase.Phase {
	trimmed := strings.TrimSpace(line.text)
	if trimmed == "" {
		return current
	}
	if line.stream == docker.Stderr {
		tail.Add(trimmed)
	}
	next := phase.Classify(current, trimmed)
	if next != current {
		logger.Debug("phase advanced", logging.String(logging.FieldPhase, next.String()))
		r.report(jobID, next, true)
	}
	return next
}

func (r *Runner) report(jobID string, ph phase.Phase, advanced bool) {
	if r.progress == nil {
		return
	}
	r.progress(Update{JobID: jobID, Phase: ph, Advanced: advanced})
}

// listOutputFiles returns the worker's output file names, sorted.
func listOutputFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names
}

// tailBuffer keeps the most recent diagnostic lines for failure excerpts.
type tailBuffer struct {
	limit int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Add(line string) {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
}

func (b *tailBuffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

package batch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/results"
	"scribe/internal/services"
	"scribe/internal/services/whisperx"
	"scribe/internal/workspace"
)

// mediaExtensions are the input types handed to the worker. Video containers
// are included; the worker extracts their audio track itself.
var mediaExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".aac":  {},
	".wma":  {},
	".mp4":  {},
	".mkv":  {},
	".avi":  {},
}

// IsMediaFile reports whether the path carries a recognized media extension.
func IsMediaFile(path string) bool {
	_, ok := mediaExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ListMediaFiles walks root recursively and returns every media file in
// lexicographic order, which fixes the processing order of a batch.
func ListMediaFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsMediaFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "batch", "list", "scan input directory", err)
	}
	sort.Strings(files)
	return files, nil
}

// JobRunner executes a single transcription job.
type JobRunner interface {
	Run(ctx context.Context, req whisperx.Request) (whisperx.Result, error)
}

// Events receives batch lifecycle callbacks for display. All methods are
// invoked from the coordinator's goroutine, in order.
type Events interface {
	BatchStarted(total int)
	JobStarted(index, total int, req whisperx.Request, size int64)
	JobFinished(index, total int, res whisperx.Result)
}

type noopEvents struct{}

func (noopEvents) BatchStarted(int)                             {}
func (noopEvents) JobStarted(int, int, whisperx.Request, int64) {}
func (noopEvents) JobFinished(int, int, whisperx.Result)        {}

// Summary aggregates one batch run. Speed factors stay per-job on the
// results; averaging them across files of different lengths would mislead.
type Summary struct {
	Attempted  int
	Succeeded  int
	Failed     int
	Elapsed    time.Duration
	Results    []whisperx.Result
	ReportPath string
}

// MeanPerFile returns the average wall clock spent per attempted file.
func (s Summary) MeanPerFile() time.Duration {
	if s.Attempted == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Attempted)
}

// Option configures the coordinator.
type Option func(*Coordinator)

// WithEvents registers display callbacks.
func WithEvents(events Events) Option {
	return func(c *Coordinator) {
		if events != nil {
			c.events = events
		}
	}
}

// WithNotifier registers a push notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(c *Coordinator) {
		if notifier != nil {
			c.notifier = notifier
		}
	}
}

// WithProber injects a media duration prober used for the per-file announce
// line and the speed factor statistic.
func WithProber(prober whisperx.DurationProber) Option {
	return func(c *Coordinator) {
		c.prober = prober
	}
}

// Coordinator drives media files through the job runner one at a time.
// Sequential execution is deliberate: jobs saturate the GPU (or all CPU
// cores), so interleaving them would only slow everything down.
type Coordinator struct {
	cfg      *config.Config
	ws       *workspace.Workspace
	runner   JobRunner
	logger   *slog.Logger
	events   Events
	notifier notifications.Service
	prober   whisperx.DurationProber
}

// New constructs a batch coordinator.
func New(cfg *config.Config, ws *workspace.Workspace, runner JobRunner, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	coord := &Coordinator{
		cfg:      cfg,
		ws:       ws,
		runner:   runner,
		logger:   logger.With(logging.String(logging.FieldComponent, "batch")),
		events:   noopEvents{},
		notifier: notifications.NewService(cfg),
	}
	for _, opt := range opts {
		opt(coord)
	}
	return coord
}

// RunDirectory transcribes every media file under dir.
func (c *Coordinator) RunDirectory(ctx context.Context, dir string) (Summary, error) {
	files, err := ListMediaFiles(dir)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, services.Wrap(services.ErrValidation, "batch", "list", "no media files found in "+dir, nil)
	}
	return c.RunFiles(ctx, files)
}

// RunFiles transcribes the given files in order. One file's failure never
// aborts the batch; the returned error is non-nil only when ctx was
// canceled, and the summary then covers the jobs that did run.
func (c *Coordinator) RunFiles(ctx context.Context, files []string) (Summary, error) {
	summary := Summary{Attempted: len(files)}
	total := len(files)
	started := time.Now()

	c.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("files", total),
	)
	c.events.BatchStarted(total)
	if err := c.notifier.NotifyBatchStarted(ctx, total); err != nil {
		c.logger.Debug("batch start notification failed", logging.Error(err))
	}

	for i, path := range files {
		if ctx.Err() != nil {
			summary.Attempted = len(summary.Results)
			summary.Elapsed = time.Since(started)
			return summary, ctx.Err()
		}

		req := whisperx.Request{
			InputPath: path,
			OutputDir: c.ws.JobOutputDir(path),
		}
		if c.prober != nil {
			if duration, err := c.prober.Duration(ctx, path); err == nil {
				req.MediaDuration = duration
			}
		}
		c.events.JobStarted(i+1, total, req, fileSize(path))

		res, err := c.runner.Run(ctx, req)
		summary.Results = append(summary.Results, res)
		if res.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		if err != nil {
			summary.Attempted = len(summary.Results)
			summary.Elapsed = time.Since(started)
			return summary, err
		}
		c.events.JobFinished(i+1, total, res)
		if !res.Succeeded() {
			if nerr := c.notifier.NotifyJobFailed(ctx, filepath.Base(path), res.FailureKind()); nerr != nil {
				c.logger.Debug("job failure notification failed", logging.Error(nerr))
			}
		}
	}

	summary.Elapsed = time.Since(started)
	summary.ReportPath = c.writeArtifacts(summary.Results)

	c.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.String("elapsed", summary.Elapsed.Round(time.Second).String()),
	)
	if err := c.notifier.NotifyBatchCompleted(ctx, summary.Succeeded, summary.Failed, summary.Elapsed); err != nil {
		c.logger.Debug("batch completion notification failed", logging.Error(err))
	}
	return summary, nil
}

// writeArtifacts collects the worker payloads of successful jobs into the
// consolidated batch report and the aggregate transcript. Extraction errors
// only cost the affected file its report entry; the job itself stays
// succeeded because its own output files are on disk.
func (c *Coordinator) writeArtifacts(jobs []whisperx.Result) string {
	reports := make([]results.FileReport, 0, len(jobs))
	for _, res := range jobs {
		if !res.Succeeded() {
			continue
		}
		report, err := whisperx.LoadReport(res.Request.OutputDir, res.Request.InputPath)
		if err != nil {
			c.logger.Warn("skipping report entry",
				logging.String(logging.FieldJobID, res.Request.JobID),
				logging.Error(err),
			)
			continue
		}
		reports = append(reports, report)
	}

	reportPath, err := results.WriteBatchReport(c.ws.OutputDir, reports)
	if err != nil {
		c.logger.Warn("write batch report", logging.Error(err))
		return ""
	}
	if _, err := results.WriteAggregateTranscript(c.ws.OutputDir, reports); err != nil {
		c.logger.Warn("write aggregate transcript", logging.Error(err))
	}
	return reportPath
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

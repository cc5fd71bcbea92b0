package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/notifications"
	"scribe/internal/queue"
	"scribe/internal/readiness"
	"scribe/internal/services/docker"
	"scribe/internal/services/whisperx"
	"scribe/internal/workspace"
)

const (
	// claimInterval is how often the worker re-checks an idle queue.
	claimInterval = time.Second
	// shutdownGrace bounds the HTTP drain when the daemon stops.
	shutdownGrace = 5 * time.Second
	// storeWriteTimeout bounds queue writes made outside a request, such
	// as phase updates and terminal transitions during shutdown.
	storeWriteTimeout = 5 * time.Second
)

// JobRunner executes one transcription job. *whisperx.Runner satisfies
// it; tests substitute stubs.
type JobRunner interface {
	Run(ctx context.Context, req whisperx.Request) (whisperx.Result, error)
}

// Option configures the server.
type Option func(*Server)

// WithRunner replaces the job runner.
func WithRunner(runner JobRunner) Option {
	return func(s *Server) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// WithChecker replaces the readiness checker backing /api/system.
func WithChecker(checker *readiness.Checker) Option {
	return func(s *Server) {
		if checker != nil {
			s.checker = checker
		}
	}
}

// WithNotifier replaces the push notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Server) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithClaimInterval overrides the queue poll cadence (tests).
func WithClaimInterval(interval time.Duration) Option {
	return func(s *Server) {
		if interval > 0 {
			s.claimEvery = interval
		}
	}
}

// Server is the scribed web daemon: the HTTP surface, the websocket hub,
// and the single background worker that drains the job queue.
type Server struct {
	cfg        *config.Config
	store      *queue.Store
	ws         *workspace.Workspace
	runner     JobRunner
	checker    *readiness.Checker
	notifier   notifications.Service
	logger     *slog.Logger
	echo       *echo.Echo
	hub        *hub
	lock       *flock.Flock
	lockPath   string
	claimEvery time.Duration
}

// New wires the daemon together. The default runner talks to the
// configured container binary; tests replace it through WithRunner.
// The workspace directories, including the uploads inbox, are created
// here so the first upload never races directory creation.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("server requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	ws, err := workspace.New(cfg, cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	if err := ws.Ensure(); err != nil {
		return nil, err
	}

	lockPath := filepath.Join(filepath.Dir(store.Path()), "scribed.lock")
	s := &Server{
		cfg:        cfg,
		store:      store,
		ws:         ws,
		notifier:   notifications.NewService(cfg),
		logger:     logging.NewComponentLogger(logger, "server"),
		hub:        newHub(),
		lock:       flock.New(lockPath),
		lockPath:   lockPath,
		claimEvery: claimInterval,
	}

	client := docker.New(cfg.DockerBinary())
	s.runner = whisperx.NewRunner(cfg, client, logger,
		whisperx.WithProgress(s.onProgress),
		whisperx.WithProber(ffprobe.New(cfg.FFprobeBinary())),
	)
	s.checker = readiness.New(cfg, client)

	for _, opt := range opts {
		opt(s)
	}

	s.echo = s.buildEcho()
	return s, nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogMethod:  true,
		LogURI:     true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("http request",
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	e.GET("/", s.handleIndex)
	e.POST("/api/upload", s.handleUpload)
	e.GET("/api/jobs", s.handleListJobs)
	e.GET("/api/jobs/:id", s.handleGetJob)
	e.GET("/api/jobs/:id/files", s.handleJobFiles)
	e.GET("/download/:id/:name", s.handleDownload)
	e.GET("/ws/jobs/:id", s.handleJobSocket)
	e.GET("/api/system", s.handleSystem)
	e.GET("/healthz", s.handleHealth)
	return e
}

// Run acquires the single-instance lock, starts the HTTP listener and the
// queue worker, and blocks until ctx is canceled or the listener fails.
// A clean signal-initiated stop drains in-flight requests, waits for the
// worker, and returns nil.
func (s *Server) Run(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another scribed instance is already running (lock %s)", s.lockPath)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("release daemon lock", logging.Error(err))
		}
	}()

	// Rows left running by a previous crash would otherwise be stuck
	// forever; nothing else can be mid-flight while the lock is held.
	if n, err := s.store.ResetStuckRunning(ctx); err != nil {
		s.logger.Warn("requeue interrupted jobs", logging.Error(err))
	} else if n > 0 {
		s.logger.Info("requeued interrupted jobs", logging.Int64("jobs", n))
	}

	report := s.checker.Run(ctx)
	for _, warning := range report.Warnings() {
		s.logger.Warn("readiness warning",
			logging.String("check", warning.Name),
			logging.String("detail", warning.Detail),
		)
	}
	if err := report.Err(); err != nil {
		// The daemon stays up so uploads queue; jobs will fail with
		// classified errors until the environment is fixed.
		s.logger.Warn("environment not ready", logging.Error(err))
	}

	workCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.workQueue(workCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.echo.Start(s.cfg.ServerBind)
	}()

	s.logger.Info("scribed listening",
		logging.String("bind", s.cfg.ServerBind),
		logging.String("lock", s.lockPath),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", logging.Error(err))
		}
	case err := <-serveErr:
		stopWorker()
		wg.Wait()
		s.hub.closeAll()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	stopWorker()
	wg.Wait()
	s.hub.closeAll()
	s.logger.Info("scribed stopped")
	return nil
}

// onProgress persists phase advances and pushes fresh snapshots to the
// websocket subscribers. Poll ticks without movement are dropped; the
// stored row already says everything there is to say.
func (s *Server) onProgress(update whisperx.Update) {
	if !update.Advanced {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer cancel()
	if err := s.store.UpdatePhase(ctx, update.JobID, update.Phase.Label()); err != nil {
		s.logger.Warn("persist phase",
			logging.String(logging.FieldJobID, update.JobID),
			logging.Error(err),
		)
		return
	}
	s.publishSnapshot(ctx, update.JobID)
}

// publishSnapshot re-reads the job and pushes it to subscribers, keeping
// the stream consistent with what a parallel GET would return.
func (s *Server) publishSnapshot(ctx context.Context, jobID string) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil || job == nil {
		return
	}
	s.hub.publish(jobID, snapshotJob(job))
}

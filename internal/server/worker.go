package server

import (
	"context"
	"time"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/whisperx"
)

// workQueue drains the job queue until ctx is canceled. Jobs run strictly
// one at a time; a worker saturates the GPU (or all CPU cores) on its own,
// so there is nothing to gain from a second one. An idle queue is
// re-checked at the claim interval.
func (s *Server) workQueue(ctx context.Context) {
	for {
		job, err := s.store.ClaimNextPending(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("claim pending job", logging.Error(err))
		case job != nil:
			s.hub.publish(job.ID, snapshotJob(job))
			s.runJob(ctx, job)
			if ctx.Err() != nil {
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.claimEvery):
		}
	}
}

// runJob supervises one claimed job and persists its terminal state. The
// final write runs on its own context so an interrupt still lands the row
// before the daemon exits.
func (s *Server) runJob(ctx context.Context, job *queue.Job) {
	req := whisperx.Request{
		JobID:     job.ID,
		InputPath: job.SourcePath,
		OutputDir: s.ws.JobOutputDir(job.SourcePath),
		Model:     job.Model,
		Language:  job.Language,
	}

	res, runErr := s.runner.Run(ctx, req)

	writeCtx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer cancel()

	if runErr != nil && ctx.Err() != nil {
		// Daemon is stopping; hand the killed job back to the queue so
		// the next run picks it up instead of recording a false failure.
		if _, err := s.store.ResetStuckRunning(writeCtx); err != nil {
			s.logger.Warn("requeue interrupted job",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
		}
		return
	}

	if res.Succeeded() && runErr == nil {
		job.SetSucceeded(req.OutputDir, res.OutputFiles, res.Elapsed, res.MediaDuration, res.SpeedFactor)
	} else {
		err := res.Err
		if err == nil {
			err = runErr
		}
		job.SetFailed(services.Kind(err), err.Error(), res.ExitCode, res.Elapsed)
	}

	if err := s.store.Update(writeCtx, job); err != nil {
		s.logger.Error("persist job outcome",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
	s.hub.publish(job.ID, snapshotJob(job))

	if job.Status == queue.StatusFailed {
		if err := s.notifier.NotifyJobFailed(writeCtx, job.OriginalName, job.ErrorKind); err != nil {
			s.logger.Debug("job failure notification failed", logging.Error(err))
		}
	}
}

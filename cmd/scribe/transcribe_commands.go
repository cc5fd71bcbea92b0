package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scribe/internal/batch"
	"scribe/internal/logging"
	"scribe/internal/media/ffprobe"
	"scribe/internal/readiness"
	"scribe/internal/reporter"
	"scribe/internal/services/docker"
	"scribe/internal/services/whisperx"
	"scribe/internal/workspace"
)

func newFileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>...",
		Short: "Transcribe one or more media files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]string, 0, len(args))
			for _, arg := range args {
				absPath, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
				info, err := os.Stat(absPath)
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("file does not exist: %s", absPath)
					}
					return fmt.Errorf("inspect file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory (use `scribe dir`)", absPath)
				}
				if !batch.IsMediaFile(absPath) {
					return fmt.Errorf("unsupported file type %q", filepath.Ext(absPath))
				}
				files = append(files, absPath)
			}
			return runBatch(ctx, cmd, "", files)
		},
	}
}

func newDirCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dir <path>",
		Short: "Transcribe every media file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("directory does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect directory: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory (use `scribe file`)", absPath)
			}
			return runBatch(ctx, cmd, absPath, nil)
		},
	}
}

// runBatch is the shared pipeline behind `file` and `dir`: readiness gate,
// workspace setup, then the sequential batch with live progress. A hard
// readiness failure stops before any job starts; per-job failures surface
// through the summary and the exit code, never mid-batch.
func runBatch(ctx *commandContext, cmd *cobra.Command, inputDir string, files []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning, logging.String(logging.FieldComponent, "config"))
	}

	signalCtx := ctx.signalContext()
	rep := reporter.New(cmd.OutOrStdout())

	client := docker.New(cfg.DockerBinary())
	report := readiness.New(cfg, client).Run(signalCtx)
	rep.ReadinessReport(report)
	if err := report.Err(); err != nil {
		return err
	}

	ws, err := workspace.New(cfg, inputDir)
	if err != nil {
		return err
	}
	if err := ws.Ensure(); err != nil {
		return err
	}

	prober := ffprobe.New(cfg.FFprobeBinary())
	runner := whisperx.NewRunner(cfg, client, logger,
		whisperx.WithProgress(rep.Handle),
		whisperx.WithProber(prober),
	)
	coord := batch.New(cfg, ws, runner, logger,
		batch.WithEvents(rep),
		batch.WithProber(prober),
	)

	var summary batch.Summary
	var runErr error
	if inputDir != "" {
		summary, runErr = coord.RunDirectory(signalCtx, inputDir)
	} else {
		summary, runErr = coord.RunFiles(signalCtx, files)
	}
	// The summary covers completed jobs even when the run was interrupted.
	rep.Summary(summary)
	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Attempted)
	}
	return nil
}

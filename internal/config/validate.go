package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks invariants that normalize guarantees for loaded configs.
// It exists for configs built in code, where nothing has run normalize.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return errors.New("BATCH_SIZE must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.New("CHUNK_SIZE must be positive")
	}
	if c.Device != "cuda" && c.Device != "cpu" {
		return fmt.Errorf("DEVICE must be cuda or cpu, got %q", c.Device)
	}
	if c.JobTimeoutMinutes < 0 {
		return errors.New("JOB_TIMEOUT_MINUTES must not be negative")
	}
	if c.PollIntervalMS < minPollIntervalMS {
		return fmt.Errorf("POLL_INTERVAL_MS must be at least %d", minPollIntervalMS)
	}
	if strings.TrimSpace(c.WorkerImage) == "" {
		return errors.New("WORKER_IMAGE must be set")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("OUTPUT_DIR must be set")
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		return errors.New("CACHE_DIR must be set")
	}
	if strings.TrimSpace(c.ServerBind) == "" {
		return errors.New("SERVER_BIND must be set")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

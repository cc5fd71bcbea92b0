package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// PlaceholderToken is the HF_TOKEN value written to new config files. The
	// readiness checker and the invocation builder both treat it as absent.
	PlaceholderToken = "your_token_here"

	defaultWhisperModel      = "large-v3"
	defaultLanguage          = "ru"
	defaultBatchSize         = 16
	defaultDevice            = "cuda"
	defaultComputeType       = "float16"
	defaultVADMethod         = "pyannote"
	defaultChunkSize         = 30
	defaultWorkerImage       = "ghcr.io/jim60105/whisperx:latest"
	defaultJobTimeoutMinutes = 0
	defaultPollIntervalMS    = 100
	defaultOutputDir         = "results"
	defaultUploadDir         = "~/.local/share/scribe/uploads"
	defaultDatabasePath      = "~/.local/share/scribe/jobs.db"
	defaultServerBind        = "127.0.0.1:8316"
	defaultMaxUploadMB       = 500
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"

	minPollIntervalMS = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		HFToken:            "",
		WhisperModel:       defaultWhisperModel,
		Language:           defaultLanguage,
		BatchSize:          defaultBatchSize,
		Device:             defaultDevice,
		ComputeType:        defaultComputeType,
		DiarizationEnabled: true,
		MinSpeakers:        "",
		MaxSpeakers:        "",
		VADMethod:          defaultVADMethod,
		ChunkSize:          defaultChunkSize,
		WorkerImage:        defaultWorkerImage,
		JobTimeoutMinutes:  defaultJobTimeoutMinutes,
		PollIntervalMS:     defaultPollIntervalMS,
		OutputDir:          defaultOutputDir,
		CacheDir:           defaultCacheDir(),
		UploadDir:          defaultUploadDir,
		DatabasePath:       defaultDatabasePath,
		ServerBind:         defaultServerBind,
		MaxUploadMB:        defaultMaxUploadMB,
		NtfyTopic:          "",
		LogLevel:           defaultLogLevel,
		LogFormat:          defaultLogFormat,
		Extra:              map[string]string{},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "scribe", "models")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/scribe/models"
	}
	return filepath.Join(home, ".cache", "scribe", "models")
}

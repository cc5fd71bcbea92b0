package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/config"
)

func TestLoadMissingFileWritesSampleAndUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")

	cfg, resolved, created, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, path)
	}
	if !created {
		t.Fatal("expected Load to create the config file")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file on disk: %v", err)
	}

	if cfg.WhisperModel != "large-v3" {
		t.Fatalf("unexpected model: %q", cfg.WhisperModel)
	}
	if cfg.Language != "ru" {
		t.Fatalf("unexpected language: %q", cfg.Language)
	}
	if cfg.BatchSize != 16 {
		t.Fatalf("unexpected batch size: %d", cfg.BatchSize)
	}
	if cfg.Device != "cuda" {
		t.Fatalf("unexpected device: %q", cfg.Device)
	}
	if !cfg.DiarizationEnabled {
		t.Fatal("expected diarization enabled by default")
	}
	if cfg.WorkerImage != "ghcr.io/jim60105/whisperx:latest" {
		t.Fatalf("unexpected worker image: %q", cfg.WorkerImage)
	}
	if cfg.ServerBind != "127.0.0.1:8316" {
		t.Fatalf("unexpected server bind: %q", cfg.ServerBind)
	}
	if !filepath.IsAbs(cfg.OutputDir) {
		t.Fatalf("expected expanded output dir, got %q", cfg.OutputDir)
	}
	if !filepath.IsAbs(cfg.CacheDir) {
		t.Fatalf("expected expanded cache dir, got %q", cfg.CacheDir)
	}

	// The written sample must itself load cleanly with zero warnings.
	cfg2, _, createdAgain, err := config.Load(path)
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if createdAgain {
		t.Fatal("second Load should not recreate the file")
	}
	if len(cfg2.Warnings()) != 0 {
		t.Fatalf("sample config produced warnings: %v", cfg2.Warnings())
	}
	if cfg2.HFToken != config.PlaceholderToken {
		t.Fatalf("expected placeholder token from sample, got %q", cfg2.HFToken)
	}
	if cfg2.TokenUsable() {
		t.Fatal("placeholder token must not count as usable")
	}
}

func TestLoadCorruptFileRewritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	if err := os.WriteFile(path, []byte("this line has no separator\n"), 0o644); err != nil {
		t.Fatalf("write corrupt config: %v", err)
	}

	cfg, _, created, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !created {
		t.Fatal("expected corrupt file to be replaced")
	}
	if cfg.WhisperModel != "large-v3" {
		t.Fatalf("expected defaults after corrupt file, got model %q", cfg.WhisperModel)
	}
	if len(cfg.Warnings()) == 0 {
		t.Fatal("expected a warning about the unreadable file")
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rewritten config: %v", err)
	}
	if !strings.Contains(string(contents), "HF_TOKEN="+config.PlaceholderToken) {
		t.Fatalf("rewritten config missing placeholder token: %s", contents)
	}
}

func TestLoadPartialFileKeepsDefaultsForUnsetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	body := strings.Join([]string{
		"WHISPER_MODEL=small",
		"LANGUAGE=EN",
		"BATCH_SIZE=4",
		"ENABLE_DIARIZATION=false",
		"MIN_SPEAKERS=2",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.WhisperModel != "small" {
		t.Fatalf("unexpected model: %q", cfg.WhisperModel)
	}
	if cfg.Language != "en" {
		t.Fatalf("expected lowercased language, got %q", cfg.Language)
	}
	if cfg.BatchSize != 4 {
		t.Fatalf("unexpected batch size: %d", cfg.BatchSize)
	}
	if cfg.DiarizationEnabled {
		t.Fatal("expected diarization disabled")
	}
	if cfg.MinSpeakers != "2" {
		t.Fatalf("unexpected min speakers: %q", cfg.MinSpeakers)
	}
	if cfg.MaxSpeakers != "" {
		t.Fatalf("expected empty max speakers, got %q", cfg.MaxSpeakers)
	}
	if cfg.ComputeType != "float16" {
		t.Fatalf("expected default compute type, got %q", cfg.ComputeType)
	}
	if cfg.VADMethod != "pyannote" {
		t.Fatalf("expected default VAD method, got %q", cfg.VADMethod)
	}
	if len(cfg.Warnings()) != 0 {
		t.Fatalf("unexpected warnings: %v", cfg.Warnings())
	}
}

func TestLoadPreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	if err := os.WriteFile(path, []byte("CUSTOM_SETTING=keep me\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Extra["CUSTOM_SETTING"]; got != "keep me" {
		t.Fatalf("unknown key not preserved: %q", got)
	}
}

func TestLoadBadValuesWarnAndFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.env")
	body := strings.Join([]string{
		"BATCH_SIZE=lots",
		"DEVICE=tpu",
		"COMPUTE_TYPE=float8",
		"POLL_INTERVAL_MS=1",
		"MIN_SPEAKERS=-3",
		"MAX_SPEAKERS=two",
		"ENABLE_DIARIZATION=maybe",
		"JOB_TIMEOUT_MINUTES=-5",
		"LOG_LEVEL=loud",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BatchSize != 16 {
		t.Fatalf("expected default batch size, got %d", cfg.BatchSize)
	}
	if cfg.Device != "cuda" {
		t.Fatalf("expected default device, got %q", cfg.Device)
	}
	if cfg.ComputeType != "float16" {
		t.Fatalf("expected default compute type, got %q", cfg.ComputeType)
	}
	if cfg.PollIntervalMS != 10 {
		t.Fatalf("expected poll interval floor, got %d", cfg.PollIntervalMS)
	}
	if cfg.MinSpeakers != "" || cfg.MaxSpeakers != "" {
		t.Fatalf("expected invalid speaker bounds cleared, got %q/%q", cfg.MinSpeakers, cfg.MaxSpeakers)
	}
	if !cfg.DiarizationEnabled {
		t.Fatal("expected diarization default retained for bad boolean")
	}
	if cfg.JobTimeoutMinutes != 0 {
		t.Fatalf("expected negative timeout disabled, got %d", cfg.JobTimeoutMinutes)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level, got %q", cfg.LogLevel)
	}
	if len(cfg.Warnings()) < 8 {
		t.Fatalf("expected a warning per bad value, got %d: %v", len(cfg.Warnings()), cfg.Warnings())
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.env")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	for _, key := range []string{"HF_TOKEN", "WHISPER_MODEL", "WORKER_IMAGE", "SERVER_BIND", "NTFY_TOPIC"} {
		if !strings.Contains(string(contents), key+"=") {
			t.Fatalf("sample config missing %s: %s", key, contents)
		}
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := config.Default()
	if cfg.JobTimeout() != 0 {
		t.Fatalf("expected no timeout by default, got %v", cfg.JobTimeout())
	}
	cfg.JobTimeoutMinutes = 90
	if got := cfg.JobTimeout().Minutes(); got != 90 {
		t.Fatalf("unexpected timeout: %v minutes", got)
	}
	cfg.PollIntervalMS = 3
	if got := cfg.PollInterval().Milliseconds(); got != 10 {
		t.Fatalf("expected poll floor of 10ms, got %dms", got)
	}
	cfg.MaxUploadMB = 2
	if got := cfg.MaxUploadBytes(); got != 2<<20 {
		t.Fatalf("unexpected upload cap: %d", got)
	}
}

func TestDiarizationActive(t *testing.T) {
	cfg := config.Default()
	cfg.HFToken = config.PlaceholderToken
	if cfg.DiarizationActive() {
		t.Fatal("placeholder token must not activate diarization")
	}
	cfg.HFToken = "hf_real_token"
	if !cfg.DiarizationActive() {
		t.Fatal("expected diarization active with real token")
	}
	cfg.DiarizationEnabled = false
	if cfg.DiarizationActive() {
		t.Fatal("expected diarization inactive when disabled")
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	cfg.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero batch size")
	}
}

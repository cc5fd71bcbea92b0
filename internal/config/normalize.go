package config

import (
	"fmt"
	"strconv"
	"strings"

	"scribe/internal/language"
)

// apply copies recognized keys from the parsed file into typed fields.
// Unknown keys land in Extra untouched. Values that fail to parse leave the
// default in place and record a warning; apply never fails.
func (c *Config) apply(values map[string]string) {
	for key, raw := range values {
		value := strings.TrimSpace(raw)
		switch key {
		case "HF_TOKEN":
			c.HFToken = value
		case "WHISPER_MODEL":
			c.setString(&c.WhisperModel, value)
		case "LANGUAGE":
			c.setString(&c.Language, value)
		case "BATCH_SIZE":
			c.setInt(&c.BatchSize, key, value)
		case "DEVICE":
			c.setString(&c.Device, value)
		case "COMPUTE_TYPE":
			c.setString(&c.ComputeType, value)
		case "ENABLE_DIARIZATION":
			c.setBool(&c.DiarizationEnabled, key, value)
		case "MIN_SPEAKERS":
			c.MinSpeakers = value
		case "MAX_SPEAKERS":
			c.MaxSpeakers = value
		case "VAD_METHOD":
			c.setString(&c.VADMethod, value)
		case "CHUNK_SIZE":
			c.setInt(&c.ChunkSize, key, value)
		case "WORKER_IMAGE":
			c.setString(&c.WorkerImage, value)
		case "JOB_TIMEOUT_MINUTES":
			c.setInt(&c.JobTimeoutMinutes, key, value)
		case "POLL_INTERVAL_MS":
			c.setInt(&c.PollIntervalMS, key, value)
		case "OUTPUT_DIR":
			c.setString(&c.OutputDir, value)
		case "CACHE_DIR":
			c.setString(&c.CacheDir, value)
		case "UPLOAD_DIR":
			c.setString(&c.UploadDir, value)
		case "DATABASE_PATH":
			c.setString(&c.DatabasePath, value)
		case "SERVER_BIND":
			c.setString(&c.ServerBind, value)
		case "MAX_UPLOAD_MB":
			c.setInt(&c.MaxUploadMB, key, value)
		case "NTFY_TOPIC":
			c.NtfyTopic = value
		case "LOG_LEVEL":
			c.setString(&c.LogLevel, value)
		case "LOG_FORMAT":
			c.setString(&c.LogFormat, value)
		case "LOG_DIR":
			c.LogDir = value
		default:
			if c.Extra == nil {
				c.Extra = map[string]string{}
			}
			c.Extra[key] = raw
		}
	}
}

// setString assigns value unless it is empty, so an empty line in the file
// means "use the default" rather than "use the empty string".
func (c *Config) setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (c *Config) setInt(dst *int, key, value string) {
	if value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.warnf("%s: %q is not a number, using %d", key, value, *dst)
		return
	}
	*dst = parsed
}

func (c *Config) setBool(dst *bool, key, value string) {
	if value == "" {
		return
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		*dst = true
	case "false", "0", "no", "off":
		*dst = false
	default:
		c.warnf("%s: %q is not a boolean, using %t", key, value, *dst)
	}
}

func (c *Config) normalize() error {
	c.normalizeWorker()
	c.normalizeExecution()
	c.normalizeServer()
	c.normalizeLogging()
	return c.normalizePaths()
}

func (c *Config) normalizeWorker() {
	c.HFToken = strings.TrimSpace(c.HFToken)

	raw := strings.TrimSpace(c.Language)
	if raw == "" {
		c.Language = defaultLanguage
	} else if mapped := language.Normalize(raw); mapped != "" {
		c.Language = mapped
	} else {
		c.warnf("LANGUAGE: %q is not a recognized language code, using %s", raw, defaultLanguage)
		c.Language = defaultLanguage
	}

	c.Device = strings.ToLower(strings.TrimSpace(c.Device))
	switch c.Device {
	case "cuda", "cpu":
	default:
		c.warnf("DEVICE: %q is not cuda or cpu, using %s", c.Device, defaultDevice)
		c.Device = defaultDevice
	}

	c.ComputeType = strings.ToLower(strings.TrimSpace(c.ComputeType))
	switch c.ComputeType {
	case "float16", "int8", "float32":
	default:
		c.warnf("COMPUTE_TYPE: %q is not float16, int8 or float32, using %s", c.ComputeType, defaultComputeType)
		c.ComputeType = defaultComputeType
	}

	c.VADMethod = strings.ToLower(strings.TrimSpace(c.VADMethod))
	switch c.VADMethod {
	case "pyannote", "silero":
	default:
		c.warnf("VAD_METHOD: %q is not pyannote or silero, using %s", c.VADMethod, defaultVADMethod)
		c.VADMethod = defaultVADMethod
	}

	if c.BatchSize <= 0 {
		c.warnf("BATCH_SIZE: %d is not positive, using %d", c.BatchSize, defaultBatchSize)
		c.BatchSize = defaultBatchSize
	}
	if c.ChunkSize <= 0 {
		c.warnf("CHUNK_SIZE: %d is not positive, using %d", c.ChunkSize, defaultChunkSize)
		c.ChunkSize = defaultChunkSize
	}

	c.MinSpeakers = c.normalizeSpeakerBound("MIN_SPEAKERS", c.MinSpeakers)
	c.MaxSpeakers = c.normalizeSpeakerBound("MAX_SPEAKERS", c.MaxSpeakers)

	if strings.TrimSpace(c.WorkerImage) == "" {
		c.WorkerImage = defaultWorkerImage
	}
}

// normalizeSpeakerBound keeps speaker hints as strings: empty means
// unconstrained, anything else must be a positive integer.
func (c *Config) normalizeSpeakerBound(key, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		c.warnf("%s: %q is not a positive integer, ignoring it", key, value)
		return ""
	}
	return value
}

func (c *Config) normalizeExecution() {
	if c.JobTimeoutMinutes < 0 {
		c.warnf("JOB_TIMEOUT_MINUTES: %d is negative, disabling the timeout", c.JobTimeoutMinutes)
		c.JobTimeoutMinutes = 0
	}
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = defaultPollIntervalMS
	} else if c.PollIntervalMS < minPollIntervalMS {
		c.warnf("POLL_INTERVAL_MS: %d is below the %dms floor, using %d", c.PollIntervalMS, minPollIntervalMS, minPollIntervalMS)
		c.PollIntervalMS = minPollIntervalMS
	}
}

func (c *Config) normalizeServer() {
	c.ServerBind = strings.TrimSpace(c.ServerBind)
	if c.ServerBind == "" {
		c.ServerBind = defaultServerBind
	}
	if c.MaxUploadMB <= 0 {
		c.warnf("MAX_UPLOAD_MB: %d is not positive, using %d", c.MaxUploadMB, defaultMaxUploadMB)
		c.MaxUploadMB = defaultMaxUploadMB
	}
	c.NtfyTopic = strings.TrimSpace(c.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	case "":
		c.LogLevel = defaultLogLevel
	default:
		c.warnf("LOG_LEVEL: %q is not debug, info, warn or error, using %s", c.LogLevel, defaultLogLevel)
		c.LogLevel = defaultLogLevel
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "console", "json":
	case "":
		c.LogFormat = defaultLogFormat
	default:
		c.warnf("LOG_FORMAT: %q is not console or json, using %s", c.LogFormat, defaultLogFormat)
		c.LogFormat = defaultLogFormat
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.OutputDir, err = expandPath(c.OutputDir); err != nil {
		return fmt.Errorf("OUTPUT_DIR: %w", err)
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.CacheDir, err = expandPath(c.CacheDir); err != nil {
		return fmt.Errorf("CACHE_DIR: %w", err)
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		c.UploadDir = defaultUploadDir
	}
	if c.UploadDir, err = expandPath(c.UploadDir); err != nil {
		return fmt.Errorf("UPLOAD_DIR: %w", err)
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		c.DatabasePath = defaultDatabasePath
	}
	if c.DatabasePath, err = expandPath(c.DatabasePath); err != nil {
		return fmt.Errorf("DATABASE_PATH: %w", err)
	}
	if strings.TrimSpace(c.LogDir) != "" {
		if c.LogDir, err = expandPath(c.LogDir); err != nil {
			return fmt.Errorf("LOG_DIR: %w", err)
		}
	} else {
		c.LogDir = ""
	}
	return nil
}

package config

import "strconv"

// Listing returns the resolved configuration as ordered key/value pairs,
// matching the key order of the sample file. Unknown keys from Extra are
// not included.
func (c *Config) Listing() [][2]string {
	return [][2]string{
		{"HF_TOKEN", c.HFToken},
		{"WHISPER_MODEL", c.WhisperModel},
		{"LANGUAGE", c.Language},
		{"BATCH_SIZE", strconv.Itoa(c.BatchSize)},
		{"DEVICE", c.Device},
		{"COMPUTE_TYPE", c.ComputeType},
		{"ENABLE_DIARIZATION", strconv.FormatBool(c.DiarizationEnabled)},
		{"MIN_SPEAKERS", c.MinSpeakers},
		{"MAX_SPEAKERS", c.MaxSpeakers},
		{"VAD_METHOD", c.VADMethod},
		{"CHUNK_SIZE", strconv.Itoa(c.ChunkSize)},
		{"WORKER_IMAGE", c.WorkerImage},
		{"JOB_TIMEOUT_MINUTES", strconv.Itoa(c.JobTimeoutMinutes)},
		{"POLL_INTERVAL_MS", strconv.Itoa(c.PollIntervalMS)},
		{"OUTPUT_DIR", c.OutputDir},
		{"CACHE_DIR", c.CacheDir},
		{"SERVER_BIND", c.ServerBind},
		{"UPLOAD_DIR", c.UploadDir},
		{"DATABASE_PATH", c.DatabasePath},
		{"MAX_UPLOAD_MB", strconv.Itoa(c.MaxUploadMB)},
		{"NTFY_TOPIC", c.NtfyTopic},
		{"LOG_LEVEL", c.LogLevel},
		{"LOG_FORMAT", c.LogFormat},
		{"LOG_DIR", c.LogDir},
	}
}

package whisperx

import (
	"path/filepath"
	"strconv"
	"time"

	"scribe/internal/config"
	"scribe/internal/services/docker"
)

// Guest paths shared by every worker container. The cache mount is what
// makes jobs reproducible across hosts: model and credential lookups inside
// the container always resolve to the same mounted volume, so nothing is
// re-downloaded per job.
const (
	guestAudioDir   = "/audio"
	guestResultsDir = "/results"
	guestModelsDir  = "/models"
	guestWorkdir    = "/app"
)

// Request names one transcription job: a host input file and the host
// directory that receives the worker's output. Model and Language override
// the configured defaults when set; the web queue carries per-upload
// choices through them. MediaDuration, when already measured by the caller,
// saves the runner its own probe.
type Request struct {
	JobID         string
	InputPath     string
	OutputDir     string
	Model         string
	Language      string
	MediaDuration time.Duration
}

// BuildRunSpec derives the container invocation for one job as a pure
// function of the configuration and the request. user is the uid:gid the
// container runs as, so result files land owned by the invoking account.
func BuildRunSpec(cfg *config.Config, req Request, user string) docker.RunSpec {
	model := req.Model
	if model == "" {
		model = cfg.WhisperModel
	}
	language := req.Language
	if language == "" {
		language = cfg.Language
	}

	env := []string{
		"HOME=" + guestModelsDir,
		"HF_HOME=" + guestModelsDir + "/.cache/huggingface",
		"XDG_CACHE_HOME=" + guestModelsDir + "/.cache",
		"TORCH_HOME=" + guestModelsDir + "/.cache/torch",
	}
	if cfg.TokenUsable() {
		env = append(env, "HF_TOKEN="+cfg.HFToken)
	}

	command := []string{
		"whisperx",
		"--output_dir", guestResultsDir,
		"--model", model,
	}
	// "auto" means let the worker detect the language per file.
	if language != "auto" {
		command = append(command, "--language", language)
	}
	command = append(command,
		"--batch_size", strconv.Itoa(cfg.BatchSize),
		"--device", cfg.Device,
		"--compute_type", cfg.ComputeType,
		"--output_format", "all",
		"--verbose", "False",
	)
	if cfg.DiarizationActive() {
		command = append(command, "--diarize", "--hf_token", cfg.HFToken)
		if cfg.MinSpeakers != "" {
			command = append(command, "--min_speakers", cfg.MinSpeakers)
		}
		if cfg.MaxSpeakers != "" {
			command = append(command, "--max_speakers", cfg.MaxSpeakers)
		}
	}
	command = append(command, guestAudioDir+"/"+filepath.Base(req.InputPath))

	return docker.RunSpec{
		GPUs: cfg.Device == "cuda",
		User: user,
		Mounts: []docker.Mount{
			{Host: filepath.Dir(req.InputPath), Guest: guestAudioDir, ReadOnly: true},
			{Host: req.OutputDir, Guest: guestResultsDir},
			{Host: cfg.CacheDir, Guest: guestModelsDir},
		},
		Workdir: guestWorkdir,
		Env:     env,
		Image:   cfg.WorkerImage,
		Command: command,
	}
}

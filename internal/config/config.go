package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

//go:embed sample_config.env
var sampleConfig string

// Config encapsulates all configuration values for Scribe.
//
// Settings by subsystem:
//   - Worker: model, language, batch size, device, compute type,
//     diarization flag and speaker bounds, VAD method, chunk size,
//     worker image, HF_TOKEN credential
//   - Execution: job timeout, progress poll interval
//   - Paths: output root, model cache, upload dir, job database
//   - Server: bind address, upload size cap
//   - Notifications: ntfy topic
//   - Logging: level, format, optional log directory
//
// Unknown keys found in the file are kept in Extra verbatim so a
// rewrite does not silently drop operator additions.
type Config struct {
	HFToken            string
	WhisperModel       string
	Language           string
	BatchSize          int
	Device             string
	ComputeType        string
	DiarizationEnabled bool
	MinSpeakers        string
	MaxSpeakers        string
	VADMethod          string
	ChunkSize          int
	WorkerImage        string

	JobTimeoutMinutes int
	PollIntervalMS    int

	OutputDir    string
	CacheDir     string
	UploadDir    string
	DatabasePath string

	ServerBind  string
	MaxUploadMB int

	NtfyTopic string

	LogLevel  string
	LogFormat string
	LogDir    string

	Extra map[string]string

	warnings []string
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.env")
}

// Load locates and parses a configuration file. A missing or unreadable file
// is replaced with the documented sample and the built-in defaults are used
// for the current call; Load never fails because of file contents. The
// returned config has all path fields expanded and all values normalized,
// with recoverable problems recorded as warnings. The boolean result reports
// whether Load wrote a fresh config file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	created := false
	if !exists {
		if err := CreateSample(resolvedPath); err != nil {
			cfg.warnf("could not write default config to %s: %v", resolvedPath, err)
		} else {
			created = true
		}
	} else {
		values, err := readValues(resolvedPath)
		if err != nil {
			cfg.warnf("config file %s is unreadable (%v); rewriting it with defaults", resolvedPath, err)
			if werr := CreateSample(resolvedPath); werr == nil {
				created = true
			}
		} else {
			cfg.apply(values)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, created, nil
}

func readValues(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return godotenv.Parse(file)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("config.env")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CreateSample writes the documented sample configuration to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Warnings returns the recoverable problems recorded while loading and
// normalizing, in the order they were found.
func (c *Config) Warnings() []string {
	return c.warnings
}

func (c *Config) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// JobTimeout returns the per-job wall clock limit. Zero means unlimited.
func (c *Config) JobTimeout() time.Duration {
	if c.JobTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(c.JobTimeoutMinutes) * time.Minute
}

// PollInterval returns the progress poll cadence used while supervising a
// worker process.
func (c *Config) PollInterval() time.Duration {
	ms := c.PollIntervalMS
	if ms < minPollIntervalMS {
		ms = minPollIntervalMS
	}
	return time.Duration(ms) * time.Millisecond
}

// MaxUploadBytes returns the upload size cap enforced by the web daemon.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// TokenUsable reports whether HF_TOKEN holds a real credential. The sample
// placeholder counts as absent.
func (c *Config) TokenUsable() bool {
	token := strings.TrimSpace(c.HFToken)
	return token != "" && token != PlaceholderToken
}

// DiarizationActive reports whether jobs will actually run with diarization:
// the feature must be enabled and a usable credential present.
func (c *Config) DiarizationActive() bool {
	return c.DiarizationEnabled && c.TokenUsable()
}

// DockerBinary returns the container runtime executable name.
func (c *Config) DockerBinary() string {
	return "docker"
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

package readiness

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/services"
	"scribe/internal/services/docker"
)

// Probe timeouts. Every probe is bounded so a wedged Docker daemon cannot
// stall startup indefinitely.
const (
	versionTimeout = 5 * time.Second
	gpuTimeout     = 15 * time.Second
	imageTimeout   = 10 * time.Second
)

// markerName is the throwaway file used to prove the model cache is writable.
const markerName = ".scribe-write-check"

// Check reports the outcome of a single readiness probe. Hard checks gate
// job execution; soft checks only warn.
type Check struct {
	Name   string
	Passed bool
	Hard   bool
	Detail string
}

// Report collects probe outcomes in execution order.
type Report struct {
	Checks []Check
}

// Ready reports whether every hard check passed.
func (r Report) Ready() bool {
	for _, check := range r.Checks {
		if check.Hard && !check.Passed {
			return false
		}
	}
	return true
}

// Err returns an error naming the failed hard checks, nil when ready.
func (r Report) Err() error {
	var failed []string
	for _, check := range r.Checks {
		if check.Hard && !check.Passed {
			failed = append(failed, check.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrReadiness, "readiness", "", "failed checks: "+strings.Join(failed, ", "), nil)
}

// Warnings returns the soft checks that did not pass.
func (r Report) Warnings() []Check {
	var out []Check
	for _, check := range r.Checks {
		if !check.Hard && !check.Passed {
			out = append(out, check)
		}
	}
	return out
}

// Option configures a Checker.
type Option func(*Checker)

// WithLookPath replaces binary resolution, primarily for tests.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *Checker) {
		if fn != nil {
			c.lookPath = fn
		}
	}
}

// Checker runs the environment probes that must pass before jobs start.
type Checker struct {
	cfg      *config.Config
	client   *docker.Client
	lookPath func(string) (string, error)
}

// New constructs a Checker. A nil client builds one from the configured
// docker binary.
func New(cfg *config.Config, client *docker.Client, opts ...Option) *Checker {
	if client == nil {
		client = docker.New(cfg.DockerBinary())
	}
	checker := &Checker{cfg: cfg, client: client, lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(checker)
	}
	return checker
}

// Run executes every applicable probe in order and returns the full report.
// A cuda configuration whose GPU probe fails is downgraded to cpu so the
// batch can still run; the downgrade surfaces as a soft warning rather than
// a failure.
func (c *Checker) Run(ctx context.Context) Report {
	var report Report

	report.Checks = append(report.Checks, c.checkDaemon(ctx))
	if c.cfg.Device == "cuda" {
		report.Checks = append(report.Checks, c.checkGPU(ctx))
	}
	report.Checks = append(report.Checks, c.checkImage(ctx))
	if c.cfg.DiarizationEnabled {
		report.Checks = append(report.Checks, c.checkCredential())
	}
	report.Checks = append(report.Checks, c.checkFFprobe())
	report.Checks = append(report.Checks, c.checkCache())

	return report
}

func (c *Checker) checkDaemon(ctx context.Context) Check {
	const name = "Docker daemon"

	checkCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	version, err := c.client.Version(checkCtx)
	if err != nil {
		return Check{Name: name, Hard: true, Detail: fmt.Sprintf("docker unavailable (%v)", err)}
	}
	return Check{Name: name, Hard: true, Passed: true, Detail: version}
}

func (c *Checker) checkGPU(ctx context.Context) Check {
	const name = "GPU access"

	checkCtx, cancel := context.WithTimeout(ctx, gpuTimeout)
	defer cancel()

	gpu, err := c.client.GPUName(checkCtx)
	if err != nil {
		c.cfg.Device = "cpu"
		return Check{Name: name, Detail: fmt.Sprintf("GPU not visible from containers (%v); falling back to cpu", err)}
	}
	return Check{Name: name, Passed: true, Detail: gpu}
}

func (c *Checker) checkImage(ctx context.Context) Check {
	const name = "Worker image"

	checkCtx, cancel := context.WithTimeout(ctx, imageTimeout)
	defer cancel()

	if err := c.client.ImagePresent(checkCtx, c.cfg.WorkerImage); err != nil {
		detail := fmt.Sprintf("%s not found locally; run `docker pull %s`", c.cfg.WorkerImage, c.cfg.WorkerImage)
		return Check{Name: name, Hard: true, Detail: detail}
	}
	return Check{Name: name, Hard: true, Passed: true, Detail: c.cfg.WorkerImage}
}

func (c *Checker) checkCredential() Check {
	const name = "Diarization credential"

	if !c.cfg.TokenUsable() {
		return Check{Name: name, Hard: true, Detail: "HF_TOKEN is unset or still the sample placeholder"}
	}
	return Check{Name: name, Hard: true, Passed: true, Detail: "token configured"}
}

func (c *Checker) checkFFprobe() Check {
	const name = "ffprobe"

	path, err := c.lookPath(c.cfg.FFprobeBinary())
	if err != nil {
		return Check{Name: name, Detail: fmt.Sprintf("binary %q not found; media duration and speed factors will be skipped", c.cfg.FFprobeBinary())}
	}
	return Check{Name: name, Passed: true, Detail: path}
}

func (c *Checker) checkCache() Check {
	const name = "Model cache"

	dir := c.cfg.CacheDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: name, Hard: true, Detail: fmt.Sprintf("%s (error: create: %v)", dir, err)}
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Check{Name: name, Hard: true, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", dir, err)}
	}

	marker := filepath.Join(dir, markerName)
	if err := os.WriteFile(marker, []byte("ok"), 0o644); err != nil {
		return Check{Name: name, Hard: true, Detail: fmt.Sprintf("%s (error: write: %v)", dir, err)}
	}
	if err := os.Remove(marker); err != nil {
		return Check{Name: name, Hard: true, Detail: fmt.Sprintf("%s (error: cleanup: %v)", dir, err)}
	}
	return Check{Name: name, Hard: true, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", dir)}
}

package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// probeTimeout bounds a single probe so a wedged ffprobe cannot stall a batch.
const probeTimeout = 15 * time.Second

type runFunc func(ctx context.Context, binary string, args []string) ([]byte, error)

// Option configures a Prober.
type Option func(*Prober)

// WithRunner replaces the process launcher, primarily for tests.
func WithRunner(run runFunc) Option {
	return func(p *Prober) {
		if run != nil {
			p.run = run
		}
	}
}

// Prober reads media metadata through the ffprobe binary.
type Prober struct {
	binary string
	run    runFunc
}

// New constructs a Prober for the given binary name or path.
func New(binary string, opts ...Option) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	prober := &Prober{binary: binary, run: runCommand}
	for _, opt := range opts {
		opt(prober)
	}
	return prober
}

// Duration returns the container play length. A probe failure is reported as
// an error rather than a zero duration so callers can decide whether the
// statistic matters to them.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("ffprobe duration: empty path")
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", path,
	}
	output, err := p.run(ctx, p.binary, args)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: parse %q: %w", strings.TrimSpace(string(output)), err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("ffprobe duration: non-positive duration %v", seconds)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func runCommand(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return output, nil
}

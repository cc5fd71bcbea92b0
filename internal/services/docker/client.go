// Package docker wraps the Docker CLI: environment probes used by readiness
// checks and supervised `docker run` execution for worker containers.
package docker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"scribe/internal/services"
)

// gpuProbeImage is the CUDA base image used to verify that containers can
// see the GPU before any job is attempted.
const gpuProbeImage = "nvidia/cuda:12.4.1-base-ubuntu22.04"

// Stream identifies which pipe produced an output line.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// Executor abstracts command execution for testability. Run streams every
// output line to onLine as it is scanned and returns the process exit code.
// A start failure returns -1 and an error tagged services.ErrLaunch; a
// process that ran and exited non-zero returns its code with a nil error.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(Stream, string)) (int, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps Docker CLI interactions.
type Client struct {
	binary string
	exec   Executor
}

// New constructs a Docker client for the named binary.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "docker"
	}
	client := &Client{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Run executes `docker run` for the given spec, forwarding output lines.
func (c *Client) Run(ctx context.Context, spec RunSpec, onLine func(Stream, string)) (int, error) {
	return c.exec.Run(ctx, c.binary, spec.Args(), onLine)
}

// Version reports the Docker client version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, code, err := c.capture(ctx, []string{"--version"})
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", services.Wrap(services.ErrReadiness, "docker", "version", fmt.Sprintf("exit code %d", code), nil)
	}
	version := strings.TrimSpace(out)
	if version == "" {
		return "", services.Wrap(services.ErrReadiness, "docker", "version", "no output", nil)
	}
	return version, nil
}

// GPUName probes GPU visibility from inside a container and returns the
// device name reported by nvidia-smi. An empty result counts as a failed
// probe even when the command exits cleanly.
func (c *Client) GPUName(ctx context.Context) (string, error) {
	spec := RunSpec{
		GPUs:    true,
		Image:   gpuProbeImage,
		Command: []string{"nvidia-smi", "--query-gpu=name", "--format=csv,noheader"},
	}
	out, code, err := c.capture(ctx, spec.Args())
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", services.Wrap(services.ErrReadiness, "docker", "gpu probe", fmt.Sprintf("exit code %d", code), nil)
	}
	name := firstLine(out)
	if name == "" {
		return "", services.Wrap(services.ErrReadiness, "docker", "gpu probe", "nvidia-smi reported no devices", nil)
	}
	return name, nil
}

// ImagePresent checks that the worker image exists in the local image store.
func (c *Client) ImagePresent(ctx context.Context, image string) error {
	_, code, err := c.capture(ctx, []string{"image", "inspect", image})
	if err != nil {
		return err
	}
	if code != 0 {
		return services.Wrap(services.ErrReadiness, "docker", "image inspect", fmt.Sprintf("image %s not found locally", image), nil)
	}
	return nil
}

// capture runs the binary with args and collects stdout into a single
// string. Stderr is discarded; probe callers only need the exit code.
func (c *Client) capture(ctx context.Context, args []string) (string, int, error) {
	var mu sync.Mutex
	var buf strings.Builder
	code, err := c.exec.Run(ctx, c.binary, args, func(stream Stream, line string) {
		if stream != Stdout {
			return
		}
		mu.Lock()
		buf.WriteString(line)
		buf.WriteByte('\n')
		mu.Unlock()
	})
	if err != nil {
		return "", code, err
	}
	return buf.String(), code, nil
}

func firstLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(Stream, string)) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, services.Wrap(services.ErrLaunch, "docker", "", "stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, services.Wrap(services.ErrLaunch, "docker", "", "stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, services.Wrap(services.ErrLaunch, "docker", "", "start "+binary, err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, stream Stream) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		scanner.Split(scanProgressLines)
		for scanner.Scan() {
			if onLine != nil {
				onLine(stream, scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, Stdout)
	go scan(stderr, Stderr)

	wg.Wait()
	waitErr := cmd.Wait()

	if scanErr != nil {
		return -1, fmt.Errorf("scan output: %w", scanErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("wait command: %w", waitErr)
	}
	return 0, nil
}

// maxLineBytes bounds a single scanned token. Worker progress bars can run
// long between line breaks.
const maxLineBytes = 1024 * 1024

// scanProgressLines splits on \n or bare \r so progress bars that redraw a
// line with carriage returns still surface as they happen.
func scanProgressLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"scribe/internal/batch"
	"scribe/internal/phase"
	"scribe/internal/readiness"
	"scribe/internal/services/whisperx"
)

// spinnerFrames cycle once per supervision tick while the worker is busy.
var spinnerFrames = []string{"⠇", "⠏", "⠋", "⠙", "⠸", "⠴", "⠦", "⠇"}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"

	eraseLine = "\r\x1b[2K"
)

// StepLabel renders a phase with its position in the four worker steps.
// Initializing and Finalizing sit outside the numbered sequence.
func StepLabel(ph phase.Phase) string {
	if ph >= phase.DetectingSpeech && ph <= phase.Diarizing {
		return fmt.Sprintf("%d/4 %s", int(ph), ph.Label())
	}
	return ph.Label()
}

// Option configures the reporter.
type Option func(*Reporter)

// WithInteractive forces live progress redrawing on or off. By default the
// reporter redraws only when the writer is a terminal.
func WithInteractive(on bool) Option {
	return func(r *Reporter) {
		r.interactive = on
	}
}

// Reporter renders batch progress for humans: an announce block per job, a
// spinner line while the worker runs, and a result block when it exits. It
// implements batch.Events and the job runner's progress callback.
type Reporter struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	frame       int
	status      string
	active      bool
}

// New constructs a reporter writing to out (os.Stdout when nil).
func New(out io.Writer, opts ...Option) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	rep := &Reporter{out: out, interactive: isTerminal(out)}
	for _, opt := range opts {
		opt(rep)
	}
	return rep
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Handle consumes one supervision update. Phase advances print (or redraw)
// the status; plain ticks only animate the spinner on terminals.
func (r *Reporter) Handle(update whisperx.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if update.Advanced {
		r.status = StepLabel(update.Phase)
		if !r.interactive {
			fmt.Fprintf(r.out, "   %s\n", r.status)
			return
		}
	} else if !r.interactive || !r.active {
		return
	}

	r.frame = (r.frame + 1) % len(spinnerFrames)
	r.active = true
	fmt.Fprintf(r.out, "%s   %s %s", eraseLine, spinnerFrames[r.frame], r.status)
}

// BatchStarted announces the discovered file count.
func (r *Reporter) BatchStarted(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	noun := "files"
	if total == 1 {
		noun = "file"
	}
	fmt.Fprintln(r.out, r.colorize(fmt.Sprintf("Found %d media %s", total, noun), ansiCyan))
}

// JobStarted announces the next file before the worker launches.
func (r *Reporter) JobStarted(index, total int, req whisperx.Request, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()

	fmt.Fprintf(r.out, "\n=== File %d/%d ===\n", index, total)
	fmt.Fprintln(r.out, r.colorize("Processing: "+filepath.Base(req.InputPath), ansiCyan))
	if size > 0 {
		fmt.Fprintf(r.out, "   Size: %.1f MB\n", float64(size)/(1024*1024))
	}
	if req.MediaDuration > 0 {
		fmt.Fprintf(r.out, "   Duration: %s\n", formatClock(req.MediaDuration))
	}
	fmt.Fprintf(r.out, "   Output: %s\n", req.OutputDir)
	r.status = StepLabel(phase.Initializing)
}

// JobFinished renders one job's outcome.
func (r *Reporter) JobFinished(index, total int, res whisperx.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()

	if res.Succeeded() {
		fmt.Fprintln(r.out, r.colorize("Completed in "+formatClock(res.Elapsed), ansiGreen))
		if res.SpeedFactor > 0 {
			fmt.Fprintf(r.out, "   Speed: %.1fx realtime\n", res.SpeedFactor)
		}
		if len(res.OutputFiles) > 0 {
			fmt.Fprintf(r.out, "   Files: %d\n", len(res.OutputFiles))
			for _, name := range res.OutputFiles {
				fmt.Fprintf(r.out, "      - %s\n", name)
			}
		}
		return
	}

	fmt.Fprintln(r.out, r.colorize(fmt.Sprintf("Failed (%s): %v", res.FailureKind(), res.Err), ansiRed))
	if len(res.Excerpt) > 0 {
		fmt.Fprintln(r.out, "   Last worker output:")
		for _, line := range res.Excerpt {
			fmt.Fprintf(r.out, "      %s\n", line)
		}
	}
}

// Summary renders the end-of-batch table and totals.
func (r *Reporter) Summary(sum batch.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()

	rows := make([][]string, 0, len(sum.Results))
	for _, res := range sum.Results {
		status := r.colorize("ok", ansiGreen)
		if !res.Succeeded() {
			status = r.colorize(res.FailureKind(), ansiRed)
		}
		speed := ""
		if res.SpeedFactor > 0 {
			speed = fmt.Sprintf("%.1fx", res.SpeedFactor)
		}
		rows = append(rows, []string{
			filepath.Base(res.Request.InputPath),
			status,
			formatClock(res.Elapsed),
			speed,
		})
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, renderTable(
		[]string{"File", "Status", "Elapsed", "Speed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))

	result := fmt.Sprintf("Processed %d files: %d succeeded, %d failed", sum.Attempted, sum.Succeeded, sum.Failed)
	if sum.Failed > 0 {
		fmt.Fprintln(r.out, r.colorize(result, ansiYellow))
	} else {
		fmt.Fprintln(r.out, r.colorize(result, ansiGreen))
	}
	fmt.Fprintf(r.out, "Total time: %s (mean %s per file)\n", formatClock(sum.Elapsed), formatClock(sum.MeanPerFile()))
	if sum.ReportPath != "" {
		fmt.Fprintf(r.out, "Report: %s\n", sum.ReportPath)
	}
}

// ReadinessReport renders the probe table plus a verdict line.
func (r *Reporter) ReadinessReport(report readiness.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([][]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		status := r.colorize("OK", ansiGreen)
		if !check.Passed {
			if check.Hard {
				status = r.colorize("FAIL", ansiRed)
			} else {
				status = r.colorize("WARN", ansiYellow)
			}
		}
		rows = append(rows, []string{check.Name, status, check.Detail})
	}

	fmt.Fprintln(r.out, renderTable(
		[]string{"Check", "Status", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))

	if report.Ready() {
		fmt.Fprintln(r.out, r.colorize("System ready.", ansiGreen))
	} else {
		fmt.Fprintln(r.out, r.colorize("System not ready.", ansiRed))
	}
}

func (r *Reporter) clearLocked() {
	if r.active {
		fmt.Fprint(r.out, eraseLine)
		r.active = false
	}
}

func (r *Reporter) colorize(s, color string) string {
	if !r.interactive || color == "" {
		return s
	}
	return color + s + ansiReset
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := d.Seconds()
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	total := int(seconds)
	hours, rem := total/3600, total%3600
	minutes, secs := rem/60, rem%60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	}
	return fmt.Sprintf("%dm %ds", minutes, secs)
}

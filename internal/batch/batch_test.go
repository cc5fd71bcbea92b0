package batch_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/batch"
	"scribe/internal/config"
	"scribe/internal/phase"
	"scribe/internal/results"
	"scribe/internal/services"
	"scribe/internal/services/whisperx"
	"scribe/internal/testsupport"
	"scribe/internal/workspace"
)

// stubRunner simulates the job runner: it fabricates worker payloads for
// successful jobs so report extraction has something to read.
type stubRunner struct {
	t        *testing.T
	fail     map[string]bool
	cancel   context.CancelFunc
	cancelOn string
	runs     []string
}

func (s *stubRunner) Run(ctx context.Context, req whisperx.Request) (whisperx.Result, error) {
	name := filepath.Base(req.InputPath)
	s.runs = append(s.runs, name)

	res := whisperx.Result{Request: req, Elapsed: 50 * time.Millisecond}
	if res.Request.JobID == "" {
		res.Request.JobID = workspace.JobBase(req.InputPath)
	}

	if s.cancelOn == name && s.cancel != nil {
		s.cancel()
		res.Err = services.Wrap(services.ErrRuntime, "whisperx", "run", "interrupted", ctx.Err())
		return res, ctx.Err()
	}
	if s.fail[name] {
		res.Phase = phase.Transcribing
		res.ExitCode = 1
		res.Excerpt = []string{"CUDA out of memory"}
		res.Err = services.Wrap(services.ErrRuntime, "whisperx", "run", "worker exited with code 1", nil)
		return res, nil
	}

	res.Phase = phase.Finalizing
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		s.t.Fatalf("mkdir output: %v", err)
	}
	stem := workspace.JobBase(req.InputPath)
	payload := fmt.Sprintf(`{"segments":[{"start":0,"end":1.5,"text":"transcript of %s"}],"language":"en"}`, stem)
	testsupport.WriteWorkerJSON(s.t, req.OutputDir, stem, payload)
	res.OutputFiles = []string{stem + ".json"}
	return res, nil
}

type eventLog struct {
	entries []string
}

func (e *eventLog) BatchStarted(total int) {
	e.entries = append(e.entries, fmt.Sprintf("batch:%d", total))
}

func (e *eventLog) JobStarted(index, total int, req whisperx.Request, size int64) {
	e.entries = append(e.entries, fmt.Sprintf("start:%d/%d:%s", index, total, filepath.Base(req.InputPath)))
}

func (e *eventLog) JobFinished(index, total int, res whisperx.Result) {
	state := "ok"
	if !res.Succeeded() {
		state = res.FailureKind()
	}
	e.entries = append(e.entries, fmt.Sprintf("finish:%d/%d:%s", index, total, state))
}

type recordingNotifier struct {
	started   []int
	completed []string
	failed    []string
}

func (r *recordingNotifier) NotifyBatchStarted(ctx context.Context, count int) error {
	r.started = append(r.started, count)
	return nil
}

func (r *recordingNotifier) NotifyBatchCompleted(ctx context.Context, succeeded, failed int, duration time.Duration) error {
	r.completed = append(r.completed, fmt.Sprintf("%d/%d", succeeded, failed))
	return nil
}

func (r *recordingNotifier) NotifyJobFailed(ctx context.Context, name, kind string) error {
	r.failed = append(r.failed, name+":"+kind)
	return nil
}

func (r *recordingNotifier) TestNotification(ctx context.Context) error { return nil }

func newBatchFixture(t *testing.T) (*config.Config, *workspace.Workspace, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	inputDir := t.TempDir()
	ws, err := workspace.New(cfg, inputDir)
	if err != nil {
		t.Fatalf("workspace.New: %v", err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatalf("workspace.Ensure: %v", err)
	}
	return cfg, ws, inputDir
}

func TestListMediaFiles(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMedia(t, root, "b.mp3")
	testsupport.WriteMedia(t, root, "a.WAV")
	testsupport.WriteMedia(t, filepath.Join(root, "nested"), "c.mkv")
	testsupport.WriteFile(t, filepath.Join(root, "notes.txt"), 10)
	testsupport.WriteFile(t, filepath.Join(root, "nested", "README.md"), 10)

	files, err := batch.ListMediaFiles(root)
	if err != nil {
		t.Fatalf("ListMediaFiles: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.WAV"),
		filepath.Join(root, "b.mp3"),
		filepath.Join(root, "nested", "c.mkv"),
	}
	if len(files) != len(want) {
		t.Fatalf("unexpected files: %q", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("file %d = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestListMediaFilesMissingRoot(t *testing.T) {
	_, err := batch.ListMediaFiles(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunFilesIsolatesFailures(t *testing.T) {
	cfg, ws, inputDir := newBatchFixture(t)
	one := testsupport.WriteMedia(t, inputDir, "one.mp3")
	two := testsupport.WriteMedia(t, inputDir, "two.mp3")
	three := testsupport.WriteMedia(t, inputDir, "three.mp3")

	runner := &stubRunner{t: t, fail: map[string]bool{"two.mp3": true}}
	events := &eventLog{}
	coord := batch.New(cfg, ws, runner, nil, batch.WithEvents(events))

	summary, err := coord.RunFiles(context.Background(), []string{one, two, three})
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if summary.Attempted != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("expected all results recorded, got %d", len(summary.Results))
	}
	if summary.MeanPerFile() <= 0 {
		t.Fatalf("expected positive mean, got %v", summary.MeanPerFile())
	}
	if summary.ReportPath == "" {
		t.Fatal("expected report path")
	}

	data, err := os.ReadFile(summary.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var reports []results.FileReport
	if err := json.Unmarshal(data, &reports); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("report should carry only successes, got %d entries", len(reports))
	}

	aggregate, err := os.ReadFile(filepath.Join(ws.OutputDir, results.AggregateTranscriptName))
	if err != nil {
		t.Fatalf("read aggregate transcript: %v", err)
	}
	if len(aggregate) == 0 {
		t.Fatal("aggregate transcript should not be empty")
	}

	wantEvents := []string{
		"batch:3",
		"start:1/3:one.mp3",
		"finish:1/3:ok",
		"start:2/3:two.mp3",
		"finish:2/3:runtime",
		"start:3/3:three.mp3",
		"finish:3/3:ok",
	}
	if len(events.entries) != len(wantEvents) {
		t.Fatalf("unexpected events: %q", events.entries)
	}
	for i := range wantEvents {
		if events.entries[i] != wantEvents[i] {
			t.Fatalf("event %d = %q, want %q", i, events.entries[i], wantEvents[i])
		}
	}
}

func TestRunFilesStopsOnCancellation(t *testing.T) {
	cfg, ws, inputDir := newBatchFixture(t)
	one := testsupport.WriteMedia(t, inputDir, "one.mp3")
	two := testsupport.WriteMedia(t, inputDir, "two.mp3")
	three := testsupport.WriteMedia(t, inputDir, "three.mp3")

	ctx, cancel := context.WithCancel(context.Background())
	runner := &stubRunner{t: t, cancel: cancel, cancelOn: "two.mp3"}
	coord := batch.New(cfg, ws, runner, nil)

	summary, err := coord.RunFiles(ctx, []string{one, two, three})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(runner.runs) != 2 {
		t.Fatalf("third job must not start after cancellation, ran %q", runner.runs)
	}
	if summary.Attempted != 2 {
		t.Fatalf("partial summary should count started jobs, got %+v", summary)
	}
}

func TestRunDirectoryRequiresMedia(t *testing.T) {
	cfg, ws, _ := newBatchFixture(t)
	coord := batch.New(cfg, ws, &stubRunner{t: t}, nil)

	_, err := coord.RunDirectory(context.Background(), t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty dir, got %v", err)
	}
}

func TestRunDirectoryProcessesInSortedOrder(t *testing.T) {
	cfg, ws, inputDir := newBatchFixture(t)
	testsupport.WriteMedia(t, inputDir, "zeta.mp3")
	testsupport.WriteMedia(t, inputDir, "alpha.mp3")

	runner := &stubRunner{t: t}
	coord := batch.New(cfg, ws, runner, nil)

	if _, err := coord.RunDirectory(context.Background(), inputDir); err != nil {
		t.Fatalf("RunDirectory: %v", err)
	}
	if len(runner.runs) != 2 || runner.runs[0] != "alpha.mp3" || runner.runs[1] != "zeta.mp3" {
		t.Fatalf("unexpected order: %q", runner.runs)
	}
}

func TestRunFilesNotifies(t *testing.T) {
	cfg, ws, inputDir := newBatchFixture(t)
	one := testsupport.WriteMedia(t, inputDir, "one.mp3")
	two := testsupport.WriteMedia(t, inputDir, "two.mp3")

	notifier := &recordingNotifier{}
	runner := &stubRunner{t: t, fail: map[string]bool{"two.mp3": true}}
	coord := batch.New(cfg, ws, runner, nil, batch.WithNotifier(notifier))

	if _, err := coord.RunFiles(context.Background(), []string{one, two}); err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if len(notifier.started) != 1 || notifier.started[0] != 2 {
		t.Fatalf("expected batch start notification, got %+v", notifier.started)
	}
	if len(notifier.failed) != 1 || notifier.failed[0] != "two.mp3:runtime" {
		t.Fatalf("expected job failure notification, got %+v", notifier.failed)
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != "1/1" {
		t.Fatalf("expected completion notification, got %+v", notifier.completed)
	}
}

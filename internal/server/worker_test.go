package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"scribe/internal/phase"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/whisperx"
	"scribe/internal/testsupport"
)

// stubRunner satisfies JobRunner without touching docker. The default
// outcome is a quick success; tests override it per job.
type stubRunner struct {
	mu        sync.Mutex
	active    int
	maxActive int
	reqs      []whisperx.Request
	outcome   func(req whisperx.Request) whisperx.Result
}

func (r *stubRunner) Run(ctx context.Context, req whisperx.Request) (whisperx.Result, error) {
	r.mu.Lock()
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.reqs = append(r.reqs, req)
	outcome := r.outcome
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.active--
	r.mu.Unlock()

	if ctx.Err() != nil {
		res := whisperx.Result{Request: req, ExitCode: -1}
		res.Err = services.Wrap(services.ErrRuntime, "whisperx", "run", "interrupted", ctx.Err())
		return res, ctx.Err()
	}
	if outcome != nil {
		res := outcome(req)
		res.Request = req
		return res, nil
	}
	return whisperx.Result{
		Request:       req,
		Phase:         phase.Finalizing,
		Elapsed:       2 * time.Second,
		MediaDuration: time.Minute,
		SpeedFactor:   30,
		OutputFiles:   []string{"out.srt", "out.txt"},
	}, nil
}

func (r *stubRunner) requests() []whisperx.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]whisperx.Request, len(r.reqs))
	copy(cp, r.reqs)
	return cp
}

// recordingNotifier captures failure notifications for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	failed [][2]string
}

func (n *recordingNotifier) NotifyBatchStarted(context.Context, int) error { return nil }

func (n *recordingNotifier) NotifyBatchCompleted(context.Context, int, int, time.Duration) error {
	return nil
}

func (n *recordingNotifier) NotifyJobFailed(_ context.Context, name, kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, [2]string{name, kind})
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestRunJobPersistsSuccess(t *testing.T) {
	stub := &stubRunner{}
	srv, store, _ := newTestServer(t, WithRunner(stub))
	testsupport.EnqueueJob(t, store, "/media/town_hall.mp3", "town_hall.mp3")

	claimed, err := store.ClaimNextPending(context.Background())
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	srv.runJob(context.Background(), claimed)

	job, err := store.GetByID(context.Background(), claimed.ID)
	if err != nil || job == nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.Status != queue.StatusSucceeded {
		t.Fatalf("status = %q, want succeeded (error %q)", job.Status, job.ErrorMessage)
	}
	if job.OutputDir != srv.ws.JobOutputDir("/media/town_hall.mp3") {
		t.Fatalf("output dir = %q", job.OutputDir)
	}
	if len(job.ResultFiles) != 2 || job.ResultFiles[0] != "out.srt" {
		t.Fatalf("result files = %v", job.ResultFiles)
	}
	if job.SpeedFactor != 30 || job.Elapsed != 2*time.Second || job.MediaDuration != time.Minute {
		t.Fatalf("statistics not persisted: %+v", job)
	}
	if job.FinishedAt == nil {
		t.Fatal("finished timestamp missing")
	}

	reqs := stub.requests()
	if len(reqs) != 1 {
		t.Fatalf("runner saw %d requests, want 1", len(reqs))
	}
	if reqs[0].JobID != claimed.ID || reqs[0].Model != "base" || reqs[0].Language != "en" {
		t.Fatalf("unexpected request: %+v", reqs[0])
	}
}

func TestRunJobRecordsClassifiedFailure(t *testing.T) {
	stub := &stubRunner{
		outcome: func(req whisperx.Request) whisperx.Result {
			return whisperx.Result{
				Phase:    phase.Transcribing,
				ExitCode: -1,
				Elapsed:  time.Minute,
				Err:      services.Wrap(services.ErrTimeout, "whisperx", "run", "job exceeded 1m0s and was killed", nil),
			}
		},
	}
	notifier := &recordingNotifier{}
	srv, store, _ := newTestServer(t, WithRunner(stub), WithNotifier(notifier))
	testsupport.EnqueueJob(t, store, "/media/marathon.mp3", "marathon.mp3")

	claimed, err := store.ClaimNextPending(context.Background())
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	srv.runJob(context.Background(), claimed)

	job, err := store.GetByID(context.Background(), claimed.ID)
	if err != nil || job == nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.Status != queue.StatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
	if job.ErrorKind != "timeout" || job.ExitCode != -1 {
		t.Fatalf("classification = %q/%d", job.ErrorKind, job.ExitCode)
	}
	if job.ErrorMessage == "" {
		t.Fatal("error message missing")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.failed) != 1 || notifier.failed[0][0] != "marathon.mp3" || notifier.failed[0][1] != "timeout" {
		t.Fatalf("unexpected notifications: %v", notifier.failed)
	}
}

func TestRunJobRequeuesOnInterrupt(t *testing.T) {
	stub := &stubRunner{}
	srv, store, _ := newTestServer(t, WithRunner(stub))
	testsupport.EnqueueJob(t, store, "/media/cut_short.mp3", "cut_short.mp3")

	claimed, err := store.ClaimNextPending(context.Background())
	if err != nil || claimed == nil {
		t.Fatalf("claim: %v %v", claimed, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv.runJob(ctx, claimed)

	job, err := store.GetByID(context.Background(), claimed.ID)
	if err != nil || job == nil {
		t.Fatalf("reload job: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("status = %q, want pending after interrupt", job.Status)
	}
	if job.StartedAt != nil {
		t.Fatal("interrupted job should look unclaimed again")
	}
}

func TestWorkQueueDrainsJobsInOrder(t *testing.T) {
	stub := &stubRunner{}
	srv, store, _ := newTestServer(t, WithRunner(stub), WithClaimInterval(10*time.Millisecond))
	first := testsupport.EnqueueJob(t, store, "/media/part_one.mp3", "part_one.mp3")
	second := testsupport.EnqueueJob(t, store, "/media/part_two.mp3", "part_two.mp3")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.workQueue(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		a, err := store.GetByID(context.Background(), first.ID)
		if err != nil {
			cancel()
			t.Fatalf("reload first: %v", err)
		}
		b, err := store.GetByID(context.Background(), second.ID)
		if err != nil {
			cancel()
			t.Fatalf("reload second: %v", err)
		}
		if a.IsTerminal() && b.IsTerminal() {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("jobs did not finish: %s %s", a.Status, b.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	reqs := stub.requests()
	if len(reqs) != 2 {
		t.Fatalf("runner saw %d requests, want 2", len(reqs))
	}
	if reqs[0].JobID != first.ID || reqs[1].JobID != second.ID {
		t.Fatalf("jobs ran out of order: %+v", reqs)
	}

	stub.mu.Lock()
	maxActive := stub.maxActive
	stub.mu.Unlock()
	if maxActive != 1 {
		t.Fatalf("jobs overlapped: max active = %d", maxActive)
	}
}

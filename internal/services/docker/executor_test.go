package docker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/services"
)

func TestCommandExecutorStreamsBothPipes(t *testing.T) {
	var mu sync.Mutex
	var stdout, stderr []string

	code, err := commandExecutor{}.Run(context.Background(), "sh",
		[]string{"-c", `printf 'one\ntwo\rthree\n'; echo diag >&2; exit 3`},
		func(stream Stream, line string) {
			if line == "" {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if stream == Stdout {
				stdout = append(stdout, line)
			} else {
				stderr = append(stderr, line)
			}
		})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if code != 3 {
		t.Fatalf("unexpected exit code: %d", code)
	}

	joined := strings.Join(stdout, "|")
	for _, want := range []string{"one", "two", "three"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("stdout missing %q (carriage returns should split lines): %q", want, joined)
		}
	}
	if len(stderr) != 1 || stderr[0] != "diag" {
		t.Fatalf("unexpected stderr lines: %q", stderr)
	}
}

func TestCommandExecutorLaunchFailure(t *testing.T) {
	code, err := commandExecutor{}.Run(context.Background(), "/nonexistent/scribe-test-binary", nil, nil)
	if err == nil {
		t.Fatal("expected launch error")
	}
	if code != -1 {
		t.Fatalf("unexpected exit code: %d", code)
	}
	if services.Kind(err) != "launch" {
		t.Fatalf("expected launch kind, got %q (%v)", services.Kind(err), err)
	}
	if !errors.Is(err, services.ErrLaunch) {
		t.Fatalf("error not tagged as launch failure: %v", err)
	}
}

func TestCommandExecutorKilledOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	code, err := commandExecutor{}.Run(ctx, "sh", []string{"-c", "sleep 30"}, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if code == 0 {
		t.Fatal("expected non-zero exit code for killed process")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("process was not killed promptly: %v", elapsed)
	}
}

func TestScanProgressLines(t *testing.T) {
	advance, token, err := scanProgressLines([]byte("abc\rdef\n"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if advance != 4 || string(token) != "abc" {
		t.Fatalf("unexpected split: advance=%d token=%q", advance, token)
	}

	advance, token, err = scanProgressLines([]byte("tail"), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if advance != 4 || string(token) != "tail" {
		t.Fatalf("unexpected EOF handling: advance=%d token=%q", advance, token)
	}

	advance, token, err = scanProgressLines([]byte("partial"), false)
	if err != nil || advance != 0 || token != nil {
		t.Fatalf("expected request for more data, got advance=%d token=%q err=%v", advance, token, err)
	}
}

package ffprobe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDurationParsesSeconds(t *testing.T) {
	var gotBinary string
	var gotArgs []string
	prober := New("ffprobe", WithRunner(func(ctx context.Context, binary string, args []string) ([]byte, error) {
		gotBinary = binary
		gotArgs = args
		return []byte("123.456000\n"), nil
	}))

	duration, err := prober.Duration(context.Background(), "/library/talk.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	want := time.Duration(123.456 * float64(time.Second))
	if duration != want {
		t.Fatalf("duration = %v, want %v", duration, want)
	}
	if gotBinary != "ffprobe" {
		t.Fatalf("unexpected binary: %q", gotBinary)
	}
	expected := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", "/library/talk.mp3",
	}
	if len(gotArgs) != len(expected) {
		t.Fatalf("unexpected args: %q", gotArgs)
	}
	for i := range expected {
		if gotArgs[i] != expected[i] {
			t.Fatalf("arg %d = %q, want %q", i, gotArgs[i], expected[i])
		}
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	prober := New("", WithRunner(func(ctx context.Context, binary string, args []string) ([]byte, error) {
		return []byte("N/A"), nil
	}))
	if _, err := prober.Duration(context.Background(), "/library/talk.mp3"); err == nil {
		t.Fatal("expected parse error for N/A output")
	}
}

func TestDurationRejectsNonPositive(t *testing.T) {
	prober := New("ffprobe", WithRunner(func(ctx context.Context, binary string, args []string) ([]byte, error) {
		return []byte("0.000000"), nil
	}))
	if _, err := prober.Duration(context.Background(), "/library/talk.mp3"); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestDurationPropagatesProbeFailure(t *testing.T) {
	probeErr := errors.New("no such file")
	prober := New("ffprobe", WithRunner(func(ctx context.Context, binary string, args []string) ([]byte, error) {
		return nil, probeErr
	}))
	if _, err := prober.Duration(context.Background(), "/library/talk.mp3"); !errors.Is(err, probeErr) {
		t.Fatalf("expected wrapped probe error, got %v", err)
	}
}

func TestDurationRequiresPath(t *testing.T) {
	prober := New("ffprobe", WithRunner(func(ctx context.Context, binary string, args []string) ([]byte, error) {
		t.Fatal("runner must not be invoked for empty path")
		return nil, nil
	}))
	if _, err := prober.Duration(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDurationBoundsProbeTime(t *testing.T) {
	prober := New("ffprobe", WithRunner(func(ctx context.Context, binary string, args []string) ([]byte, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("probe context must carry a deadline")
		}
		if remaining := time.Until(deadline); remaining > probeTimeout {
			t.Fatalf("deadline too far out: %v", remaining)
		}
		return []byte("1.0"), nil
	}))
	if _, err := prober.Duration(context.Background(), "/library/talk.mp3"); err != nil {
		t.Fatalf("Duration: %v", err)
	}
}

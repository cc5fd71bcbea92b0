package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/testsupport"
	"scribe/internal/workspace"
)

func TestEnsureCreatesDirectoriesIdempotently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	inputDir := filepath.Join(t.TempDir(), "audio")

	ws, err := workspace.New(cfg, inputDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	for _, dir := range []string{ws.InputDir, ws.OutputDir, ws.CacheDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", dir)
		}
	}

	marker := filepath.Join(ws.OutputDir, "existing.txt")
	if err := os.WriteFile(marker, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatalf("second Ensure returned error: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("Ensure must not remove existing content: %v", err)
	}
}

func TestEnsureSkipsInputDirWhenUnset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ws, err := workspace.New(cfg, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if ws.InputDir != "" {
		t.Fatalf("expected empty input dir, got %q", ws.InputDir)
	}
	if err := ws.Ensure(); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
}

func TestJobOutputDirUsesFileStem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ws, err := workspace.New(cfg, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	got := ws.JobOutputDir("/media/audio/interview.part1.mp3")
	want := filepath.Join(cfg.OutputDir, "interview.part1")
	if got != want {
		t.Fatalf("JobOutputDir = %q, want %q", got, want)
	}
	if workspace.JobBase("lecture.wav") != "lecture" {
		t.Fatalf("unexpected stem: %q", workspace.JobBase("lecture.wav"))
	}
}

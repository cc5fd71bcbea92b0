package whisperx_test

import (
	"path/filepath"
	"testing"

	"scribe/internal/services/whisperx"
	"scribe/internal/testsupport"
)

func TestLoadReport(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteWorkerJSON(t, dir, "interview", `{
		"segments": [
			{"start": 0.0, "end": 2.5, "text": " Добрый день. ", "speaker": "SPEAKER_00"},
			{"start": 2.5, "end": 4.0, "text": "Здравствуйте!", "speaker": "SPEAKER_01"},
			{"start": 4.0, "end": 4.2, "text": "   "}
		],
		"language": "ru"
	}`)

	report, err := whisperx.LoadReport(dir, "/library/interview.mp3")
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if report.File != "interview.mp3" {
		t.Fatalf("unexpected file name: %q", report.File)
	}
	if report.Language != "ru" {
		t.Fatalf("unexpected language: %q", report.Language)
	}
	if report.Text != "Добрый день. Здравствуйте!" {
		t.Fatalf("joined text mismatch: %q", report.Text)
	}
	if len(report.Segments) != 3 {
		t.Fatalf("expected all segments kept, got %d", len(report.Segments))
	}
	if report.Segments[0].Speaker != "SPEAKER_00" {
		t.Fatalf("speaker lost: %+v", report.Segments[0])
	}
	if report.Segments[0].Text != "Добрый день." {
		t.Fatalf("segment text should be trimmed: %q", report.Segments[0].Text)
	}
}

func TestLoadReportMissingPayload(t *testing.T) {
	dir := t.TempDir()
	if _, err := whisperx.LoadReport(dir, filepath.Join(dir, "ghost.mp3")); err == nil {
		t.Fatal("expected error for missing payload")
	}
}

func TestLoadReportRejectsCorruptPayload(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteWorkerJSON(t, dir, "garbled", `{"segments": [`)

	if _, err := whisperx.LoadReport(dir, "garbled.mp3"); err == nil {
		t.Fatal("expected error for corrupt payload")
	}
}

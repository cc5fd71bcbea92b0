// Package results renders and persists the artifacts a run leaves behind:
// the consolidated batch report, the plain-text transcript digest, and
// SubRip output derived from worker segments.
package results

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Segment is one timed span of recognized speech. Speaker is empty when the
// job ran without diarization.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// FileReport aggregates one input file's transcription.
type FileReport struct {
	File     string    `json:"file"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// BatchReportName is the consolidated JSON report written after a batch.
const BatchReportName = "transcription_report.json"

// AggregateTranscriptName is the plain-text digest written after a batch.
const AggregateTranscriptName = "all_transcripts.txt"

// WriteBatchReport writes the consolidated JSON report for a batch into dir.
func WriteBatchReport(dir string, reports []FileReport) (string, error) {
	if reports == nil {
		reports = []FileReport{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode batch report: %w", err)
	}
	path := filepath.Join(dir, BatchReportName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write batch report: %w", err)
	}
	return path, nil
}

// WriteAggregateTranscript writes the digest of every transcript into dir,
// one section per file.
func WriteAggregateTranscript(dir string, reports []FileReport) (string, error) {
	var b strings.Builder
	for _, report := range reports {
		fmt.Fprintf(&b, "=== %s ===\n", report.File)
		b.WriteString(strings.TrimSpace(report.Text))
		b.WriteString("\n\n")
	}
	path := filepath.Join(dir, AggregateTranscriptName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write aggregate transcript: %w", err)
	}
	return path, nil
}

// WriteSRT renders segments as SubRip: sequential indices from 1,
// HH:MM:SS,mmm time ranges, and a [speaker] prefix when one is known.
func WriteSRT(w io.Writer, segments []Segment) error {
	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if seg.Speaker != "" {
			text = "[" + seg.Speaker + "] " + text
		}
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimestamp(seg.Start), FormatTimestamp(seg.End), text); err != nil {
			return fmt.Errorf("write srt entry %d: %w", i+1, err)
		}
	}
	return nil
}

// FormatTimestamp renders seconds as the SubRip HH:MM:SS,mmm form.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	millis := totalMillis % 1000
	totalSecs := totalMillis / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", totalSecs/3600, (totalSecs/60)%60, totalSecs%60, millis)
}

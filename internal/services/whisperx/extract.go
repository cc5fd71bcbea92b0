package whisperx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/results"
	"scribe/internal/workspace"
)

// payload mirrors the JSON document the worker writes alongside its other
// output formats.
type payload struct {
	Segments []payloadSegment `json:"segments"`
	Language string           `json:"language"`
}

type payloadSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// LoadReport parses the worker's JSON payload for one finished job and
// flattens it into a file report: trimmed segments plus the joined full
// text.
func LoadReport(outputDir, inputPath string) (results.FileReport, error) {
	report := results.FileReport{File: filepath.Base(inputPath)}

	path := filepath.Join(outputDir, workspace.JobBase(inputPath)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("read worker payload: %w", err)
	}
	var doc payload
	if err := json.Unmarshal(data, &doc); err != nil {
		return report, fmt.Errorf("parse worker payload %s: %w", filepath.Base(path), err)
	}

	report.Language = doc.Language
	report.Segments = make([]results.Segment, 0, len(doc.Segments))
	var text strings.Builder
	for _, seg := range doc.Segments {
		trimmed := strings.TrimSpace(seg.Text)
		report.Segments = append(report.Segments, results.Segment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    trimmed,
			Speaker: seg.Speaker,
		})
		if trimmed == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(trimmed)
	}
	report.Text = text.String()
	return report, nil
}

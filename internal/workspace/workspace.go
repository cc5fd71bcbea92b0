// Package workspace prepares the directories a transcription run needs.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/config"
)

// Workspace holds the resolved directories for one run: where input files
// live, where per-job result directories are created, and the shared model
// cache mounted into every worker container.
type Workspace struct {
	InputDir  string
	OutputDir string
	CacheDir  string
}

// New resolves a workspace from the configuration. inputDir may be empty
// for runs that name explicit files instead of scanning a directory.
func New(cfg *config.Config, inputDir string) (*Workspace, error) {
	ws := &Workspace{
		OutputDir: cfg.OutputDir,
		CacheDir:  cfg.CacheDir,
	}
	if strings.TrimSpace(inputDir) != "" {
		expanded, err := config.ExpandPath(inputDir)
		if err != nil {
			return nil, fmt.Errorf("resolve input directory: %w", err)
		}
		ws.InputDir = expanded
	}
	return ws, nil
}

// Ensure creates the workspace directories. It is idempotent and never
// removes or truncates existing content.
func (w *Workspace) Ensure() error {
	dirs := []string{w.OutputDir, w.CacheDir}
	if w.InputDir != "" {
		dirs = append(dirs, w.InputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobOutputDir returns the per-job result directory for an input file,
// named after the file's base name without extension.
func (w *Workspace) JobOutputDir(inputPath string) string {
	return filepath.Join(w.OutputDir, JobBase(inputPath))
}

// JobBase returns the stem used to name a job's artifacts.
func JobBase(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

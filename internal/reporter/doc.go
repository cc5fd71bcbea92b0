// Package reporter renders batch progress for terminals: per-job announce
// blocks, a spinner line driven by supervision updates, result blocks, and
// the readiness and summary tables. Redrawing and color are enabled only
// when the output is a TTY; otherwise phase advances print as plain lines.
package reporter

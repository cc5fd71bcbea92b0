// Package ffprobe measures media play length through the ffprobe binary.
//
// This package has no scribe-specific dependencies and could be extracted
// as a standalone library.
//
// The Prober satisfies whisperx.DurationProber; batch statistics use the
// measured duration to compute per-job speed factors.
package ffprobe

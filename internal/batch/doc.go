// Package batch coordinates transcription runs over directories and file
// lists: sequential job execution, per-file failure isolation, run totals,
// and the consolidated report artifacts written after every batch.
package batch

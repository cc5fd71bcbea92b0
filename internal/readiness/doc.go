// Package readiness probes the execution environment before any job runs:
// the Docker daemon, GPU visibility, the worker image, the diarization
// credential, ffprobe, and the model cache.
//
// Hard check failures block job execution. Soft failures, including the
// GPU probe, degrade gracefully: a cuda configuration without a visible
// GPU is downgraded to cpu with a warning.
package readiness

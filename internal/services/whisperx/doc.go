// Package whisperx runs transcription jobs through the containerized
// WhisperX worker.
//
// A job is one input file. The runner derives the container invocation from
// the configuration, supervises the process while classifying its output
// into phases, enforces the optional wall-clock timeout, and collects
// whatever the worker left in the job's output directory. Per-job failures
// are recorded on the Result with a bounded excerpt of the worker's last
// diagnostic lines; they never abort the caller's loop.
package whisperx

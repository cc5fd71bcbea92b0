// Package main hosts the scribe CLI entrypoint and command graph.
//
// The Cobra-based command tree covers environment checks, single-file and
// directory transcription runs, configuration scaffolding, and running the
// web daemon in the foreground. Configuration resolution, signal handling,
// and logger construction are centralized in the shared command context so
// subcommands stay declarative; the actual work lives in the internal
// packages.
package main

// Package queue persists transcription jobs in SQLite for the web daemon.
//
// The Store manages the database connection, schema initialization, status
// transitions, and the claim used by the daemon's worker loop to pull the
// oldest pending job. Jobs are keyed by UUID and capture everything the
// status API serves: phase, error classification, timing, speed factor, and
// result file names.
//
// The database is treated as transient storage for in-flight and recently
// finished jobs rather than a long-term archive. Schema changes bump the
// version in schema.go; users delete the database to adopt the new schema.
package queue

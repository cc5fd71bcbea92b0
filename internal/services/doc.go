// Package services defines shared utilities consumed by the job runner and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs and component names for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (launch vs runtime vs timeout) consistent between the
//     batch driver and the web daemon.
//
// Use these helpers when wiring new orchestration logic so operational
// behaviour (error handling, observability) stays uniform across components.
package services

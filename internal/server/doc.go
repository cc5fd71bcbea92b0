// Package server is the scribed web daemon: an upload page, a JSON job
// API, and a websocket progress stream in front of the sqlite queue.
//
// Uploads land in the configured inputs directory and become pending
// jobs. A single background worker claims the oldest pending job, runs
// it through the containerized worker, and persists every phase and
// status transition, so any number of clients can watch the same job
// without sharing process state. A flock-based lock file keeps a second
// daemon from draining the same queue.
package server

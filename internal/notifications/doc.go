// Package notifications delivers batch and job events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.env and gracefully degrades to a no-op when notifications are
// disabled. Batch code depends only on the Service interface, so alternative
// transports slot in without touching callers.
package notifications

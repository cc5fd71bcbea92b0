// Package config loads, normalizes, and defaults Scribe configuration data.
//
// Settings live in a KEY=VALUE file with #-comments. A missing or unreadable
// file is rewritten from the embedded documented sample and never fails the
// load: every recognized key has a built-in default, so callers always get a
// complete Config. Values that fail to parse keep their defaults and surface
// as warnings instead of errors. Unknown keys are preserved in Extra.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical enum values, and the poll-interval floor.
package config

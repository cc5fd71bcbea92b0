// Package language provides unified language code normalization and mapping.
//
// All language-related conversions (ISO 639-1, ISO 639-2, display names,
// upload form options) are consolidated here so the config loader, the web
// daemon, and the CLI agree on what a language code means.
package language

// Package logging provides structured logging utilities for calassist.
//
// It centralizes slog attribute naming so log output stays consistent across
// the credential store, the adapters, and the CLI, and it provides
// sanitization helpers so OAuth token material never appears in log output.
package logging

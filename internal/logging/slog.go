package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyBackend   = "backend"
	KeyOperation = "operation"
	KeyEventID   = "event_id"
	KeyCount     = "count"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New returns a text-handler logger writing to stderr at the given level.
// Unknown level names fall back to info.
func New(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// WithBackend returns a logger with the backend attribute set.
func WithBackend(logger *slog.Logger, backend string) *slog.Logger {
	return logger.With(slog.String(KeyBackend, backend))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// EventID returns a slog attribute for a provider-assigned event ID.
func EventID(id string) slog.Attr {
	return slog.String(KeyEventID, id)
}

// Count returns a slog attribute for a result count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error. If err is nil, returns an empty
// Group attribute that slog omits from output, so Err(maybeNilErr) is always
// safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizeToken returns a masked version of a token for logging. It returns
// a length indicator without exposing any token content, as even partial
// token prefixes can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

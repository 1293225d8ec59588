// Package calendar defines the backend-agnostic calendar model shared by all
// adapters.
//
// It contains the unified Event representation, the Assistant interface that
// every backend implements, and the error taxonomy (AuthError,
// ValidationError, NotFoundError, RemoteError) that adapters translate
// provider failures into. Callers program against this package only; the
// Google and Outlook adapters live in their own packages and are
// interchangeable behind the Assistant interface.
package calendar

package calendar

import (
	"context"
	"fmt"
	"time"
)

// Backend identifies a calendar provider.
type Backend string

const (
	BackendGoogle  Backend = "google"
	BackendOutlook Backend = "outlook"
)

// ParseBackend validates a backend name supplied by the user.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendGoogle, BackendOutlook:
		return Backend(s), nil
	}
	return "", &ValidationError{Field: "backend", Reason: fmt.Sprintf("unknown backend %q (expected %q or %q)", s, BackendGoogle, BackendOutlook)}
}

// String implements fmt.Stringer.
func (b Backend) String() string { return string(b) }

// Defaults applied when the caller leaves ListOptions fields unset.
const (
	DefaultWindowDays = 7
	DefaultMaxResults = 10
)

// Event is the unified calendar event. The ID is provider-assigned and
// opaque; it is only meaningful to the backend that produced it.
// Start and End are timezone-aware and normalized to UTC by the adapters.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// EventInput is the input for creating an event.
type EventInput struct {
	Summary     string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
	Attendees   []string
}

// Validate checks the input constraints that adapters enforce before any
// network I/O is attempted.
func (in EventInput) Validate() error {
	if in.Summary == "" {
		return &ValidationError{Field: "summary", Reason: "must not be empty"}
	}
	if in.Start.IsZero() {
		return &ValidationError{Field: "start", Reason: "must be set"}
	}
	if in.End.IsZero() {
		return &ValidationError{Field: "end", Reason: "must be set"}
	}
	if !in.Start.Before(in.End) {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	return nil
}

// EventPatch describes a partial update. Only non-nil fields are applied;
// everything else is left untouched on the backend.
type EventPatch struct {
	Summary     *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Summary == nil && p.Description == nil && p.Location == nil &&
		p.Start == nil && p.End == nil
}

// Validate checks the patch constraints that can be verified client-side.
// Start/End ordering can only be fully checked when both are supplied; a
// one-sided time change is validated against the stored event by the adapter.
func (p EventPatch) Validate() error {
	if p.Start != nil && p.End != nil && !p.Start.Before(*p.End) {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	return nil
}

// ListOptions controls ListEvents. Zero values select the defaults: a window
// of now .. now+DefaultWindowDays and DefaultMaxResults results.
type ListOptions struct {
	Start      time.Time
	End        time.Time
	MaxResults int
}

// Window resolves the effective time range relative to now.
func (o ListOptions) Window(now time.Time) (time.Time, time.Time) {
	start := o.Start
	if start.IsZero() {
		start = now
	}
	end := o.End
	if end.IsZero() {
		end = start.AddDate(0, 0, DefaultWindowDays)
	}
	return start.UTC(), end.UTC()
}

// Limit resolves the effective result cap.
func (o ListOptions) Limit() int64 {
	if o.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return int64(o.MaxResults)
}

// Assistant is the unified contract both backend adapters implement.
//
// Authenticate must be called before any other operation; the remaining
// operations fail with an AuthError otherwise. ListEvents returns events
// ordered by start time ascending. SearchEvents matches the query against
// summary and description server-side; its result ordering is
// provider-defined and not guaranteed to be chronological.
type Assistant interface {
	// Authenticate loads and silently refreshes a stored credential, or runs
	// the interactive authorization flow when none exists.
	Authenticate(ctx context.Context) error

	// ListEvents returns events within the window, ordered by start ascending.
	ListEvents(ctx context.Context, opts ListOptions) ([]Event, error)

	// CreateEvent creates an event and returns it including the
	// provider-assigned ID. Fails with ValidationError before any network
	// I/O when the input violates a constraint.
	CreateEvent(ctx context.Context, input EventInput) (*Event, error)

	// UpdateEvent applies the non-nil patch fields to an existing event and
	// returns the updated event. Fails with NotFoundError when the ID does
	// not exist on the backend.
	UpdateEvent(ctx context.Context, eventID string, patch EventPatch) (*Event, error)

	// DeleteEvent deletes an event. Deleting an ID that does not exist fails
	// with NotFoundError so callers can distinguish "deleted" from
	// "didn't exist".
	DeleteEvent(ctx context.Context, eventID string) error

	// SearchEvents returns up to maxResults events matching the query.
	SearchEvents(ctx context.Context, query string, maxResults int) ([]Event, error)
}

package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/calassist/calassist/internal/auth"
	cal "github.com/calassist/calassist/internal/calendar"
	"github.com/calassist/calassist/internal/logging"
)

const primaryCalendar = "primary"

// Options configures the Google adapter.
type Options struct {
	ClientID     string
	ClientSecret string
	Store        *auth.Store
	Flow         auth.Flow
	Logger       *slog.Logger
	Timeout      time.Duration

	// Endpoint overrides the Calendar API base URL. Tests point it at a
	// local fake server; production leaves it empty.
	Endpoint string
}

// Assistant is the Google Calendar implementation of calendar.Assistant.
type Assistant struct {
	conf     *oauth2.Config
	store    *auth.Store
	flow     auth.Flow
	logger   *slog.Logger
	timeout  time.Duration
	endpoint string

	svc *gcal.Service
}

var _ cal.Assistant = (*Assistant)(nil)

// New creates a Google adapter. It does not touch the network; credentials
// are loaded or acquired in Authenticate.
func New(opts Options) (*Assistant, error) {
	if opts.ClientID == "" {
		return nil, &cal.ValidationError{Field: "google.client_id", Reason: "must be configured"}
	}
	if opts.ClientSecret == "" {
		return nil, &cal.ValidationError{Field: "google.client_secret", Reason: "must be configured"}
	}
	if opts.Store == nil {
		return nil, &cal.ValidationError{Field: "store", Reason: "must be provided"}
	}
	if opts.Flow == nil {
		return nil, &cal.ValidationError{Field: "flow", Reason: "must be provided"}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Assistant{
		conf: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{gcal.CalendarScope},
		},
		store:    opts.Store,
		flow:     opts.Flow,
		logger:   logging.WithBackend(logger, string(cal.BackendGoogle)),
		timeout:  timeout,
		endpoint: opts.Endpoint,
	}, nil
}

// Authenticate loads a stored credential and refreshes it transparently, or
// runs the interactive authorization flow when no usable credential exists.
func (a *Assistant) Authenticate(ctx context.Context) error {
	token, err := a.store.Load(cal.BackendGoogle)
	if errors.Is(err, auth.ErrNotFound) {
		a.logger.Info("no stored credential, starting authorization flow", logging.Operation("authenticate"))
		token, err = a.flow.Authorize(ctx, a.conf)
		if err != nil {
			return &cal.AuthError{Backend: cal.BackendGoogle, Err: err}
		}
		if err := a.store.Save(cal.BackendGoogle, token, a.conf.Scopes); err != nil {
			return fmt.Errorf("failed to persist credential: %w", err)
		}
	} else if err != nil {
		return &cal.AuthError{Backend: cal.BackendGoogle, Err: err}
	}

	source := a.store.TokenSource(ctx, cal.BackendGoogle, a.conf, token)
	// Force an immediate refresh check so an expired refresh token surfaces
	// here as an AuthError instead of on the first data call.
	if _, err := source.Token(); err != nil {
		a.logger.Warn("stored credential could not be refreshed, starting authorization flow",
			logging.Operation("authenticate"), logging.Err(err))
		token, ferr := a.flow.Authorize(ctx, a.conf)
		if ferr != nil {
			return &cal.AuthError{Backend: cal.BackendGoogle, Err: ferr}
		}
		if err := a.store.Save(cal.BackendGoogle, token, a.conf.Scopes); err != nil {
			return fmt.Errorf("failed to persist credential: %w", err)
		}
		source = a.store.TokenSource(ctx, cal.BackendGoogle, a.conf, token)
	}

	client := oauth2.NewClient(ctx, source)
	client.Timeout = a.timeout

	svcOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if a.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(a.endpoint))
	}
	svc, err := gcal.NewService(ctx, svcOpts...)
	if err != nil {
		return fmt.Errorf("failed to create Calendar service: %w", err)
	}
	a.svc = svc

	a.logger.Debug("authenticated", logging.Operation("authenticate"), logging.Status(logging.StatusSuccess))
	return nil
}

func (a *Assistant) ready() error {
	if a.svc == nil {
		return &cal.AuthError{Backend: cal.BackendGoogle, Err: errors.New("not authenticated, call Authenticate first")}
	}
	return nil
}

// ListEvents returns events within the window, ordered by start ascending.
func (a *Assistant) ListEvents(ctx context.Context, opts cal.ListOptions) ([]cal.Event, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}

	start, end := opts.Window(time.Now())

	var result *gcal.Events
	err := cal.WithRetry(ctx, func() error {
		var err error
		result, err = a.svc.Events.List(primaryCalendar).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			MaxResults(opts.Limit()).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
		return mapError(err, "")
	})
	if err != nil {
		return nil, err
	}

	events := make([]cal.Event, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, toUnified(item))
	}
	a.logger.Debug("listed events", logging.Operation("list_events"), logging.Count(len(events)))
	return events, nil
}

// CreateEvent creates an event on the primary calendar.
func (a *Assistant) CreateEvent(ctx context.Context, input cal.EventInput) (*cal.Event, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := a.ready(); err != nil {
		return nil, err
	}

	var created *gcal.Event
	err := cal.WithRetry(ctx, func() error {
		var err error
		created, err = a.svc.Events.Insert(primaryCalendar, fromInput(input)).Context(ctx).Do()
		return mapError(err, "")
	})
	if err != nil {
		return nil, err
	}

	event := toUnified(created)
	a.logger.Info("event created", logging.Operation("create_event"), logging.EventID(event.ID))
	return &event, nil
}

// UpdateEvent applies the patch to an existing event using the provider's
// read-modify-write cycle, so untouched fields keep their stored values.
func (a *Assistant) UpdateEvent(ctx context.Context, eventID string, patch cal.EventPatch) (*cal.Event, error) {
	if eventID == "" {
		return nil, &cal.ValidationError{Field: "event_id", Reason: "must not be empty"}
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if err := a.ready(); err != nil {
		return nil, err
	}

	var existing *gcal.Event
	err := cal.WithRetry(ctx, func() error {
		var err error
		existing, err = a.svc.Events.Get(primaryCalendar, eventID).Context(ctx).Do()
		return mapError(err, eventID)
	})
	if err != nil {
		return nil, err
	}

	applyPatch(existing, patch)
	if err := validateTimes(existing); err != nil {
		return nil, err
	}

	var updated *gcal.Event
	err = cal.WithRetry(ctx, func() error {
		var err error
		updated, err = a.svc.Events.Update(primaryCalendar, eventID, existing).Context(ctx).Do()
		return mapError(err, eventID)
	})
	if err != nil {
		return nil, err
	}

	event := toUnified(updated)
	a.logger.Info("event updated", logging.Operation("update_event"), logging.EventID(eventID))
	return &event, nil
}

// DeleteEvent deletes an event. A missing ID surfaces as NotFoundError so
// callers can tell "deleted" apart from "didn't exist".
func (a *Assistant) DeleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return &cal.ValidationError{Field: "event_id", Reason: "must not be empty"}
	}
	if err := a.ready(); err != nil {
		return err
	}

	err := cal.WithRetry(ctx, func() error {
		return mapError(a.svc.Events.Delete(primaryCalendar, eventID).Context(ctx).Do(), eventID)
	})
	if err != nil {
		return err
	}

	a.logger.Info("event deleted", logging.Operation("delete_event"), logging.EventID(eventID))
	return nil
}

// SearchEvents matches the query against event text server-side. Google
// applies its own substring semantics; result ordering follows the request's
// startTime ordering.
func (a *Assistant) SearchEvents(ctx context.Context, query string, maxResults int) ([]cal.Event, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	limit := cal.ListOptions{MaxResults: maxResults}.Limit()

	var result *gcal.Events
	err := cal.WithRetry(ctx, func() error {
		var err error
		result, err = a.svc.Events.List(primaryCalendar).
			Q(query).
			MaxResults(limit).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
		return mapError(err, "")
	})
	if err != nil {
		return nil, err
	}

	events := make([]cal.Event, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, toUnified(item))
	}
	a.logger.Debug("searched events", logging.Operation("search_events"), logging.Count(len(events)))
	return events, nil
}

// mapError translates googleapi failures into the unified error taxonomy.
func mapError(err error, eventID string) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return &cal.AuthError{Backend: cal.BackendGoogle, Err: err}
		case apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone:
			return &cal.NotFoundError{EventID: eventID}
		default:
			return &cal.RemoteError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
		}
	}

	if cal.IsAuth(err) {
		return err
	}
	return &cal.RemoteError{Err: err}
}

package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/calassist/calassist/internal/auth"
	cal "github.com/calassist/calassist/internal/calendar"
	"github.com/calassist/calassist/internal/logging"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Graph delegated permissions requested during consent.
var graphScopes = []string{"Calendars.ReadWrite", "offline_access"}

// Options configures the Outlook adapter.
type Options struct {
	ClientID     string
	ClientSecret string
	Tenant       string
	Store        *auth.Store
	Flow         auth.Flow
	Logger       *slog.Logger
	Timeout      time.Duration

	// BaseURL overrides the Graph endpoint. Tests point it at a local fake
	// server; production leaves it empty.
	BaseURL string
}

// Assistant is the Microsoft Graph implementation of calendar.Assistant.
type Assistant struct {
	conf    *oauth2.Config
	store   *auth.Store
	flow    auth.Flow
	logger  *slog.Logger
	timeout time.Duration
	baseURL string

	client *http.Client
}

var _ cal.Assistant = (*Assistant)(nil)

// New creates an Outlook adapter. ClientSecret may be empty for public
// clients; ClientID is mandatory. No network I/O happens until Authenticate.
func New(opts Options) (*Assistant, error) {
	if opts.ClientID == "" {
		return nil, &cal.ValidationError{Field: "outlook.client_id", Reason: "must be configured"}
	}
	if opts.Store == nil {
		return nil, &cal.ValidationError{Field: "store", Reason: "must be provided"}
	}
	if opts.Flow == nil {
		return nil, &cal.ValidationError{Field: "flow", Reason: "must be provided"}
	}

	tenant := opts.Tenant
	if tenant == "" {
		tenant = "common"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = graphBaseURL
	}

	return &Assistant{
		conf: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
			RedirectURL:  "http://localhost",
			Scopes:       graphScopes,
		},
		store:   opts.Store,
		flow:    opts.Flow,
		logger:  logging.WithBackend(logger, string(cal.BackendOutlook)),
		timeout: timeout,
		baseURL: baseURL,
	}, nil
}

// Authenticate loads a stored credential and refreshes it transparently, or
// runs the interactive authorization flow when no usable credential exists.
func (a *Assistant) Authenticate(ctx context.Context) error {
	token, err := a.store.Load(cal.BackendOutlook)
	if errors.Is(err, auth.ErrNotFound) {
		a.logger.Info("no stored credential, starting authorization flow", logging.Operation("authenticate"))
		token, err = a.flow.Authorize(ctx, a.conf)
		if err != nil {
			return &cal.AuthError{Backend: cal.BackendOutlook, Err: err}
		}
		if err := a.store.Save(cal.BackendOutlook, token, a.conf.Scopes); err != nil {
			return fmt.Errorf("failed to persist credential: %w", err)
		}
	} else if err != nil {
		return &cal.AuthError{Backend: cal.BackendOutlook, Err: err}
	}

	source := a.store.TokenSource(ctx, cal.BackendOutlook, a.conf, token)
	if _, err := source.Token(); err != nil {
		a.logger.Warn("stored credential could not be refreshed, starting authorization flow",
			logging.Operation("authenticate"), logging.Err(err))
		token, ferr := a.flow.Authorize(ctx, a.conf)
		if ferr != nil {
			return &cal.AuthError{Backend: cal.BackendOutlook, Err: ferr}
		}
		if err := a.store.Save(cal.BackendOutlook, token, a.conf.Scopes); err != nil {
			return fmt.Errorf("failed to persist credential: %w", err)
		}
		source = a.store.TokenSource(ctx, cal.BackendOutlook, a.conf, token)
	}

	a.client = oauth2.NewClient(ctx, source)
	a.client.Timeout = a.timeout

	a.logger.Debug("authenticated", logging.Operation("authenticate"), logging.Status(logging.StatusSuccess))
	return nil
}

func (a *Assistant) ready() error {
	if a.client == nil {
		return &cal.AuthError{Backend: cal.BackendOutlook, Err: errors.New("not authenticated, call Authenticate first")}
	}
	return nil
}

// do issues one Graph request and decodes the response into out (unless out
// is nil). Non-2xx responses are translated into the unified error taxonomy.
func (a *Assistant) do(ctx context.Context, method, path string, query url.Values, payload any, out any, eventID string) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		// A failed token refresh inside the oauth2 transport surfaces here
		// wrapped in a url.Error; keep its auth classification.
		if cal.IsAuth(err) {
			return &cal.AuthError{Backend: cal.BackendOutlook, Err: err}
		}
		return &cal.RemoteError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp, eventID)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &cal.RemoteError{StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
		}
	}
	return nil
}

func mapStatus(resp *http.Response, eventID string) error {
	message := resp.Status
	var gerr graphError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&gerr); err == nil && gerr.Error.Message != "" {
		message = gerr.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &cal.AuthError{Backend: cal.BackendOutlook, Err: fmt.Errorf("HTTP 401: %s", message)}
	case http.StatusNotFound, http.StatusGone:
		return &cal.NotFoundError{EventID: eventID}
	default:
		return &cal.RemoteError{StatusCode: resp.StatusCode, Message: message}
	}
}

// ListEvents returns events within the window via /me/calendarview, ordered
// by start ascending.
func (a *Assistant) ListEvents(ctx context.Context, opts cal.ListOptions) ([]cal.Event, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}

	start, end := opts.Window(time.Now())
	query := url.Values{
		"startDateTime": {start.Format(time.RFC3339)},
		"endDateTime":   {end.Format(time.RFC3339)},
		"$top":          {strconv.FormatInt(opts.Limit(), 10)},
		"$orderby":      {"start/dateTime"},
	}

	var list graphEventList
	err := cal.WithRetry(ctx, func() error {
		list = graphEventList{}
		return a.do(ctx, http.MethodGet, "/me/calendarview", query, nil, &list, "")
	})
	if err != nil {
		return nil, err
	}

	events := make([]cal.Event, 0, len(list.Value))
	for _, item := range list.Value {
		events = append(events, toUnified(item))
	}
	a.logger.Debug("listed events", logging.Operation("list_events"), logging.Count(len(events)))
	return events, nil
}

// CreateEvent creates an event via POST /me/events.
func (a *Assistant) CreateEvent(ctx context.Context, input cal.EventInput) (*cal.Event, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := a.ready(); err != nil {
		return nil, err
	}

	var created graphEvent
	err := cal.WithRetry(ctx, func() error {
		created = graphEvent{}
		return a.do(ctx, http.MethodPost, "/me/events", nil, fromInput(input), &created, "")
	})
	if err != nil {
		return nil, err
	}

	event := toUnified(created)
	a.logger.Info("event created", logging.Operation("create_event"), logging.EventID(event.ID))
	return &event, nil
}

// UpdateEvent applies the patch via PATCH /me/events/{id}; Graph performs
// the partial update server-side.
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

	path := "/me/events/" + url.PathEscape(eventID)

	var updated graphEvent
	err := cal.WithRetry(ctx, func() error {
		updated = graphEvent{}
		return a.do(ctx, http.MethodPatch, path, nil, fromPatch(patch), &updated, eventID)
	})
	if err != nil {
		return nil, err
	}

	event := toUnified(updated)
	a.logger.Info("event updated", logging.Operation("update_event"), logging.EventID(eventID))
	return &event, nil
}

// DeleteEvent deletes via DELETE /me/events/{id}. A missing ID surfaces as
// NotFoundError so callers can tell "deleted" apart from "didn't exist".
func (a *Assistant) DeleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return &cal.ValidationError{Field: "event_id", Reason: "must not be empty"}
	}
	if err := a.ready(); err != nil {
		return err
	}

	path := "/me/events/" + url.PathEscape(eventID)
	err := cal.WithRetry(ctx, func() error {
		return a.do(ctx, http.MethodDelete, path, nil, nil, nil, eventID)
	})
	if err != nil {
		return err
	}

	a.logger.Info("event deleted", logging.Operation("delete_event"), logging.EventID(eventID))
	return nil
}

// SearchEvents matches the query via the Graph $search parameter. Graph
// forbids combining $search with $orderby, so result ordering is whatever
// the provider returns.
func (a *Assistant) SearchEvents(ctx context.Context, query string, maxResults int) ([]cal.Event, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}

	params := url.Values{
		"$search": {strconv.Quote(query)},
		"$top":    {strconv.FormatInt(cal.ListOptions{MaxResults: maxResults}.Limit(), 10)},
	}

	var list graphEventList
	err := cal.WithRetry(ctx, func() error {
		list = graphEventList{}
		return a.do(ctx, http.MethodGet, "/me/events", params, nil, &list, "")
	})
	if err != nil {
		return nil, err
	}

	events := make([]cal.Event, 0, len(list.Value))
	for _, item := range list.Value {
		events = append(events, toUnified(item))
	}
	a.logger.Debug("searched events", logging.Operation("search_events"), logging.Count(len(events)))
	return events, nil
}

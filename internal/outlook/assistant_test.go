package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/calassist/calassist/internal/auth"
	cal "github.com/calassist/calassist/internal/calendar"
)

type fakeFlow struct {
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeFlow) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

// fakeGraphServer is an in-memory stand-in for the Graph /me calendar
// endpoints.
type fakeGraphServer struct {
	mu       sync.Mutex
	events   map[string]graphEvent
	nextID   int
	requests int

	// failures is a queue of status codes to serve before behaving normally.
	failures []int

	// lastSearch records the raw $search value for assertion.
	lastSearch string
}

func (f *fakeGraphServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/calendarview", f.withBookkeeping(f.handleCalendarView))
	mux.HandleFunc("/me/events", f.withBookkeeping(f.handleEvents))
	mux.HandleFunc("/me/events/", f.withBookkeeping(f.handleEvent))
	return mux
}

func (f *fakeGraphServer) withBookkeeping(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests++
		if len(f.failures) > 0 {
			code := f.failures[0]
			f.failures = f.failures[1:]
			w.WriteHeader(code)
			fmt.Fprintf(w, `{"error":{"code":"injected","message":"injected failure"}}`)
			return
		}
		h(w, r)
	}
}

func (f *fakeGraphServer) writeNotFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"error":{"code":"ErrorItemNotFound","message":"The specified object was not found in the store."}}`)
}

func (f *fakeGraphServer) handleCalendarView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, _ := time.Parse(time.RFC3339, q.Get("startDateTime"))
	end, _ := time.Parse(time.RFC3339, q.Get("endDateTime"))
	top, _ := strconv.Atoi(q.Get("$top"))

	var matched []graphEvent
	for _, event := range f.events {
		eventStart := parseGraphTime(event.Start)
		if !start.IsZero() && eventStart.Before(start) {
			continue
		}
		if !end.IsZero() && !eventStart.Before(end) {
			continue
		}
		matched = append(matched, event)
	}
	sort.Slice(matched, func(i, j int) bool {
		return parseGraphTime(matched[i].Start).Before(parseGraphTime(matched[j].Start))
	})
	if top > 0 && len(matched) > top {
		matched = matched[:top]
	}

	json.NewEncoder(w).Encode(graphEventList{Value: matched})
}

func (f *fakeGraphServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var event graphEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.nextID++
		event.ID = fmt.Sprintf("graph-evt-%d", f.nextID)
		f.events[event.ID] = event
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(event)

	case http.MethodGet:
		// $search endpoint.
		raw := r.URL.Query().Get("$search")
		f.lastSearch = raw
		needle := strings.ToLower(strings.Trim(raw, `"`))
		top, _ := strconv.Atoi(r.URL.Query().Get("$top"))

		var matched []graphEvent
		for _, event := range f.events {
			body := ""
			if event.Body != nil {
				body = event.Body.Content
			}
			if strings.Contains(strings.ToLower(event.Subject), needle) ||
				strings.Contains(strings.ToLower(body), needle) {
				matched = append(matched, event)
			}
		}
		if top > 0 && len(matched) > top {
			matched = matched[:top]
		}
		json.NewEncoder(w).Encode(graphEventList{Value: matched})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *fakeGraphServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/me/events/")
	event, ok := f.events[id]
	if !ok {
		f.writeNotFound(w)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var patch graphEvent
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if patch.Subject != "" {
			event.Subject = patch.Subject
		}
		if patch.Body != nil {
			event.Body = patch.Body
		}
		if patch.Location != nil {
			event.Location = patch.Location
		}
		if patch.Start != nil {
			event.Start = patch.Start
		}
		if patch.End != nil {
			event.End = patch.End
		}
		f.events[id] = event
		json.NewEncoder(w).Encode(event)

	case http.MethodDelete:
		delete(f.events, id)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func newTestAssistant(t *testing.T) (*Assistant, *fakeGraphServer) {
	t.Helper()

	fake := &fakeGraphServer{events: make(map[string]graphEvent)}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	store := auth.NewStore(t.TempDir(), nil)
	require.NoError(t, store.Save(cal.BackendOutlook, &oauth2.Token{
		AccessToken: "test-access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}, nil))

	assistant, err := New(Options{
		ClientID: "client",
		Store:    store,
		Flow:     &fakeFlow{},
		Timeout:  5 * time.Second,
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)
	require.NoError(t, assistant.Authenticate(context.Background()))

	return assistant, fake
}

func TestNewRequiresClientID(t *testing.T) {
	_, err := New(Options{Store: auth.NewStore(t.TempDir(), nil), Flow: &fakeFlow{}})
	assert.True(t, cal.IsValidation(err))
}

func TestNewAllowsPublicClient(t *testing.T) {
	// No client secret: public clients are fine on Azure AD.
	_, err := New(Options{
		ClientID: "public-client",
		Store:    auth.NewStore(t.TempDir(), nil),
		Flow:     &fakeFlow{},
	})
	assert.NoError(t, err)
}

func TestAuthenticateRunsFlowWhenNoCredential(t *testing.T) {
	fake := &fakeGraphServer{events: make(map[string]graphEvent)}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	store := auth.NewStore(t.TempDir(), nil)
	flow := &fakeFlow{token: &oauth2.Token{
		AccessToken: "flow-access",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}}

	assistant, err := New(Options{ClientID: "client", Store: store, Flow: flow, BaseURL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, assistant.Authenticate(context.Background()))
	assert.Equal(t, 1, flow.calls)

	loaded, err := store.Load(cal.BackendOutlook)
	require.NoError(t, err)
	assert.Equal(t, "flow-access", loaded.AccessToken)

	require.NoError(t, assistant.Authenticate(context.Background()))
	assert.Equal(t, 1, flow.calls)
}

func TestOperationsRequireAuthentication(t *testing.T) {
	assistant, err := New(Options{
		ClientID: "client",
		Store:    auth.NewStore(t.TempDir(), nil),
		Flow:     &fakeFlow{},
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = assistant.ListEvents(ctx, cal.ListOptions{})
	assert.True(t, cal.IsAuth(err))

	_, err = assistant.CreateEvent(ctx, cal.EventInput{
		Summary: "x",
		Start:   time.Now(),
		End:     time.Now().Add(time.Hour),
	})
	assert.True(t, cal.IsAuth(err))
}

func TestCreateEventValidationNeverReachesNetwork(t *testing.T) {
	assistant, fake := newTestAssistant(t)
	start := time.Date(2025, 11, 15, 15, 0, 0, 0, time.UTC)

	_, err := assistant.CreateEvent(context.Background(), cal.EventInput{
		Summary: "Backwards",
		Start:   start,
		End:     start.Add(-time.Hour),
	})
	assert.True(t, cal.IsValidation(err))
	assert.Zero(t, fake.requests)
}

func TestEventLifecycleScenario(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	ctx := context.Background()

	start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)

	created, err := assistant.CreateEvent(ctx, cal.EventInput{
		Summary:  "Team Meeting",
		Start:    start,
		End:      end,
		Location: "Conference Room A",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	// The new event shows up in a one-day window with all fields intact.
	events, err := assistant.ListEvents(ctx, cal.ListOptions{Start: start.Add(-time.Hour), End: start.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Team Meeting", events[0].Summary)
	assert.Equal(t, "Conference Room A", events[0].Location)
	assert.True(t, events[0].Start.Equal(start))
	assert.True(t, events[0].End.Equal(end))

	// Renaming leaves the location untouched.
	newTitle := "Updated Meeting Title"
	updated, err := assistant.UpdateEvent(ctx, created.ID, cal.EventPatch{Summary: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Updated Meeting Title", updated.Summary)
	assert.Equal(t, "Conference Room A", updated.Location)

	events, err = assistant.ListEvents(ctx, cal.ListOptions{Start: start.Add(-time.Hour), End: start.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Updated Meeting Title", events[0].Summary)
	assert.Equal(t, "Conference Room A", events[0].Location)

	// After deletion the event is gone from the listing.
	require.NoError(t, assistant.DeleteEvent(ctx, created.ID))
	events, err = assistant.ListEvents(ctx, cal.ListOptions{Start: start.Add(-time.Hour), End: start.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDeleteEventTwice(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	ctx := context.Background()

	start := time.Now().UTC().Add(time.Hour)
	created, err := assistant.CreateEvent(ctx, cal.EventInput{
		Summary: "Disposable",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, assistant.DeleteEvent(ctx, created.ID))

	err = assistant.DeleteEvent(ctx, created.ID)
	require.Error(t, err)
	var nf *cal.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, created.ID, nf.EventID)
}

func TestUpdateEventNotFound(t *testing.T) {
	assistant, _ := newTestAssistant(t)

	title := "anything"
	_, err := assistant.UpdateEvent(context.Background(), "missing-id", cal.EventPatch{Summary: &title})
	assert.True(t, cal.IsNotFound(err))
}

func TestSearchEventsQuotesQuery(t *testing.T) {
	assistant, fake := newTestAssistant(t)
	ctx := context.Background()

	start := time.Now().UTC().Add(time.Hour)
	_, err := assistant.CreateEvent(ctx, cal.EventInput{
		Summary: "Budget review",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	require.NoError(t, err)

	events, err := assistant.SearchEvents(ctx, "budget", 5)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	// Graph requires the $search value to be quoted.
	assert.Equal(t, `"budget"`, fake.lastSearch)
}

func TestSearchEventsNoMatches(t *testing.T) {
	assistant, _ := newTestAssistant(t)

	events, err := assistant.SearchEvents(context.Background(), "xyz-nonexistent-token", 5)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestListEventsCapsResults(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	for i := 0; i < 4; i++ {
		_, err := assistant.CreateEvent(ctx, cal.EventInput{
			Summary: fmt.Sprintf("Event %d", i),
			Start:   base.Add(time.Duration(i) * time.Hour),
			End:     base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
		})
		require.NoError(t, err)
	}

	events, err := assistant.ListEvents(ctx, cal.ListOptions{MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, events, 2)
	// The cap keeps the earliest events, in start order.
	assert.True(t, events[0].Start.Before(events[1].Start))
}

func TestRateLimitIsRetried(t *testing.T) {
	assistant, fake := newTestAssistant(t)
	fake.failures = []int{429}

	start := time.Now().UTC().Add(time.Hour)
	created, err := assistant.CreateEvent(context.Background(), cal.EventInput{
		Summary: "Eventually created",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 2, fake.requests)
}

func TestServerErrorSurfacesAfterRetries(t *testing.T) {
	assistant, fake := newTestAssistant(t)
	fake.failures = []int{503, 503, 503, 503, 503, 503}

	_, err := assistant.ListEvents(context.Background(), cal.ListOptions{})
	require.Error(t, err)

	var remote *cal.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 503, remote.StatusCode)
	assert.Equal(t, "injected failure", remote.Message)
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	assistant, fake := newTestAssistant(t)
	fake.failures = []int{401}

	_, err := assistant.ListEvents(context.Background(), cal.ListOptions{})
	assert.True(t, cal.IsAuth(err))
}

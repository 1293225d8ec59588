package google

import (
	"time"

	gcal "google.golang.org/api/calendar/v3"

	cal "github.com/calassist/calassist/internal/calendar"
)

// toUnified converts a provider event to the unified model. Timestamps come
// back in UTC; all-day events carry their date at midnight UTC.
func toUnified(event *gcal.Event) cal.Event {
	if event == nil {
		return cal.Event{}
	}

	unified := cal.Event{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
	}

	unified.Start = parseEventTime(event.Start)
	unified.End = parseEventTime(event.End)

	for _, att := range event.Attendees {
		if att.Email != "" {
			unified.Attendees = append(unified.Attendees, att.Email)
		}
	}

	return unified
}

func parseEventTime(edt *gcal.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t.UTC()
		}
	}
	if edt.Date != "" {
		if t, err := time.Parse("2006-01-02", edt.Date); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// fromInput builds the provider payload for event creation.
func fromInput(input cal.EventInput) *gcal.Event {
	event := &gcal.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start:       eventTime(input.Start),
		End:         eventTime(input.End),
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	return event
}

func eventTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.UTC().Format(time.RFC3339),
		TimeZone: "UTC",
	}
}

// applyPatch overwrites only the supplied fields on a fetched provider
// event, leaving everything else as stored.
func applyPatch(event *gcal.Event, patch cal.EventPatch) {
	if patch.Summary != nil {
		event.Summary = *patch.Summary
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Start != nil {
		event.Start = eventTime(*patch.Start)
	}
	if patch.End != nil {
		event.End = eventTime(*patch.End)
	}
}

// validateTimes rejects a patched event whose effective times ended up
// inverted, for example a new start moved past the stored end.
func validateTimes(event *gcal.Event) error {
	start := parseEventTime(event.Start)
	end := parseEventTime(event.End)
	if start.IsZero() || end.IsZero() {
		return nil
	}
	if !start.Before(end) {
		return &cal.ValidationError{Field: "end", Reason: "must be after start"}
	}
	return nil
}

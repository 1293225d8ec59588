package outlook

import (
	"time"

	cal "github.com/calassist/calassist/internal/calendar"
)

// Graph wire types. Only the fields this client reads or writes are
// declared; Graph tolerates and ignores absent fields on PATCH.

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphLocation struct {
	DisplayName string `json:"displayName"`
}

type graphEmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type graphAttendee struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
	Type         string            `json:"type,omitempty"`
}

type graphEvent struct {
	ID        string          `json:"id,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Body      *graphBody      `json:"body,omitempty"`
	Location  *graphLocation  `json:"location,omitempty"`
	Start     *graphDateTime  `json:"start,omitempty"`
	End       *graphDateTime  `json:"end,omitempty"`
	Attendees []graphAttendee `json:"attendees,omitempty"`
}

type graphEventList struct {
	Value []graphEvent `json:"value"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// graphTimeLayout is the fractional-seconds layout Graph uses for
// start/end dateTime values. Graph omits the zone suffix and carries the
// zone in the separate timeZone field instead.
const graphTimeLayout = "2006-01-02T15:04:05.9999999"

func graphTime(t time.Time) *graphDateTime {
	return &graphDateTime{
		DateTime: t.UTC().Format("2006-01-02T15:04:05"),
		TimeZone: "UTC",
	}
}

func parseGraphTime(dt *graphDateTime) time.Time {
	if dt == nil || dt.DateTime == "" {
		return time.Time{}
	}
	loc := time.UTC
	if dt.TimeZone != "" && dt.TimeZone != "UTC" {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	for _, layout := range []string{graphTimeLayout, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, dt.DateTime, loc); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// toUnified converts a Graph event to the unified model.
func toUnified(event graphEvent) cal.Event {
	unified := cal.Event{
		ID:      event.ID,
		Summary: event.Subject,
		Start:   parseGraphTime(event.Start),
		End:     parseGraphTime(event.End),
	}
	if event.Body != nil {
		unified.Description = event.Body.Content
	}
	if event.Location != nil {
		unified.Location = event.Location.DisplayName
	}
	for _, att := range event.Attendees {
		if att.EmailAddress.Address != "" {
			unified.Attendees = append(unified.Attendees, att.EmailAddress.Address)
		}
	}
	return unified
}

// fromInput builds the Graph payload for event creation.
func fromInput(input cal.EventInput) graphEvent {
	event := graphEvent{
		Subject: input.Summary,
		Start:   graphTime(input.Start),
		End:     graphTime(input.End),
	}
	if input.Description != "" {
		event.Body = &graphBody{ContentType: "text", Content: input.Description}
	}
	if input.Location != "" {
		event.Location = &graphLocation{DisplayName: input.Location}
	}
	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, graphAttendee{
			EmailAddress: graphEmailAddress{Address: email},
			Type:         "required",
		})
	}
	return event
}

// fromPatch builds the PATCH payload. Graph applies partial updates
// natively, so only the supplied fields are serialized.
func fromPatch(patch cal.EventPatch) graphEvent {
	var event graphEvent
	if patch.Summary != nil {
		event.Subject = *patch.Summary
	}
	if patch.Description != nil {
		event.Body = &graphBody{ContentType: "text", Content: *patch.Description}
	}
	if patch.Location != nil {
		event.Location = &graphLocation{DisplayName: *patch.Location}
	}
	if patch.Start != nil {
		event.Start = graphTime(*patch.Start)
	}
	if patch.End != nil {
		event.End = graphTime(*patch.End)
	}
	return event
}

// Package outlook implements the unified calendar contract against the
// Microsoft Graph calendar endpoints (v1.0, /me/events and /me/calendarview).
//
// Events are mapped between the unified model and the Graph schema: subject,
// body.content, location.displayName, start/end as {dateTime, timeZone} pairs
// pinned to UTC, and attendees as emailAddress objects. Search uses the Graph
// $search parameter; Graph does not allow combining $search with $orderby, so
// search result ordering is whatever the provider returns.
package outlook

// Package google implements the unified calendar contract on top of the
// Google Calendar API v3.
//
// Events are mapped between the unified model and the provider schema
// (summary, description, location, start/end dateTime as RFC3339 UTC,
// attendee email addresses) against the user's primary calendar. Search uses
// the API's q parameter, which applies Google's own substring matching.
package google

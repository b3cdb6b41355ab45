package calendar

import "errors"

// ErrMissingEventID is returned by mutations that need an existing event.
var ErrMissingEventID = errors.New("calendar: eventId is required")

// Calendar is one calendar exposed by the backend. Name and Summary usually
// carry the same title; some backends only fill one of them.
type Calendar struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

// EventTime wraps an RFC 3339 timestamp the way the Google Calendar API does.
type EventTime struct {
	DateTime string `json:"dateTime"`
}

type Event struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	Start        EventTime `json:"start"`
	End          EventTime `json:"end"`
	CalendarID   string    `json:"calendarId,omitempty"`
	CalendarName string    `json:"calendarName,omitempty"`
}

// EventQuery filters an event listing. Zero values are omitted from the request.
type EventQuery struct {
	MaxResults int
	CalendarID string
	DaysAhead  int
}

type EventList struct {
	OK     bool    `json:"ok"`
	Events []Event `json:"events"`
	Count  int     `json:"count"`
}

// EventInput is the body of an event creation.
type EventInput struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Location    string    `json:"location"`
}

// EventPatch is a partial update; empty fields are left untouched.
type EventPatch struct {
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
	Location    string     `json:"location,omitempty"`
}

// Result is an untyped backend reply passed through to callers as-is.
type Result map[string]any

// UpstreamError reports a non-success or malformed reply from the backend.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return "calendar: " + e.Message
}

package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/comigor/calendar-agent/internal/config"
)

// ErrNotConfigured is returned when no Apps Script URL is configured.
var ErrNotConfigured = errors.New("calendar: script url not configured")

// Client is a client for the Google Apps Script calendar web app.
type Client struct {
	cfg    config.CalendarConfig
	client *http.Client
}

// NewClient creates a new Client
func NewClient(cfg config.CalendarConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether a script URL is set.
func (c *Client) Configured() bool { return c.cfg.ScriptURL != "" }

func (c *Client) endpoint(params url.Values) (string, error) {
	if c.cfg.ScriptURL == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(c.cfg.ScriptURL)
	if err != nil {
		return "", fmt.Errorf("calendar: invalid script url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// do sends a request and decodes the JSON reply into out. Replies carrying
// "ok": false are turned into an *UpstreamError.
func (c *Client) do(ctx context.Context, method string, params url.Values, body any, out any) error {
	endpoint, err := c.endpoint(params)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Status: resp.StatusCode, Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode)}
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return &UpstreamError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}

	var status struct {
		OK    *bool  `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &status); err == nil && status.OK != nil && !*status.OK {
		msg := status.Error
		if msg == "" {
			msg = "request rejected"
		}
		return &UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &UpstreamError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

func action(name string) url.Values {
	return url.Values{"action": {name}}
}

// Calendars lists every calendar known to the backend.
func (c *Client) Calendars(ctx context.Context) ([]Calendar, error) {
	var resp struct {
		Calendars []Calendar `json:"calendars"`
	}
	if err := c.do(ctx, http.MethodGet, action("getCalendars"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Calendars, nil
}

// Events lists upcoming events. Without a calendar id all calendars are queried.
func (c *Client) Events(ctx context.Context, q EventQuery) (*EventList, error) {
	params := action("getEvents")
	if q.MaxResults > 0 {
		params.Set("maxResults", strconv.Itoa(q.MaxResults))
	}
	if q.CalendarID != "" {
		params.Set("calendarId", q.CalendarID)
	} else {
		params.Set("allCalendars", "true")
	}
	if q.DaysAhead > 0 {
		params.Set("daysAhead", strconv.Itoa(q.DaysAhead))
	}

	var list EventList
	if err := c.do(ctx, http.MethodGet, params, nil, &list); err != nil {
		return nil, err
	}
	if list.Count == 0 {
		list.Count = len(list.Events)
	}
	return &list, nil
}

// CreateEvent inserts an event. An empty calendarID lets the backend pick its
// primary calendar.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, in EventInput) (Result, error) {
	params := url.Values{}
	if calendarID != "" {
		params.Set("calendarId", calendarID)
	}
	var out Result
	if err := c.do(ctx, http.MethodPost, params, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateEvent applies a partial update to an existing event.
func (c *Client) UpdateEvent(ctx context.Context, eventID, calendarID string, patch EventPatch) (Result, error) {
	if eventID == "" {
		return nil, ErrMissingEventID
	}
	params := action("updateEvent")
	params.Set("eventId", eventID)
	if calendarID != "" {
		params.Set("calendarId", calendarID)
	}
	var out Result
	if err := c.do(ctx, http.MethodPost, params, patch, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID, calendarID string) (Result, error) {
	if eventID == "" {
		return nil, ErrMissingEventID
	}
	params := action("deleteEvent")
	params.Set("eventId", eventID)
	if calendarID != "" {
		params.Set("calendarId", calendarID)
	}
	var out Result
	if err := c.do(ctx, http.MethodGet, params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SyncFromSheet asks the backend to create a calendar per employee listed in
// the linked spreadsheet.
func (c *Client) SyncFromSheet(ctx context.Context) (Result, error) {
	var out Result
	if err := c.do(ctx, http.MethodGet, action("syncFromSheet"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SheetData returns the employee rows of the linked spreadsheet.
func (c *Client) SheetData(ctx context.Context) (Result, error) {
	var out Result
	if err := c.do(ctx, http.MethodGet, action("getSheetData"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/calendar-agent/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.CalendarConfig{ScriptURL: srv.URL + "/exec", Timeout: 5 * time.Second})
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(config.CalendarConfig{})
	require.False(t, c.Configured())
	_, err := c.Calendars(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_Calendars(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "getCalendars", r.URL.Query().Get("action"))
		_, _ = w.Write([]byte(`{"ok":true,"calendars":[{"id":"a","name":"Tlačiar Z07"}]}`))
	})

	cals, err := c.Calendars(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Calendar{{ID: "a", Name: "Tlačiar Z07"}}, cals)
}

func TestClient_Events(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"ok":true,"events":[{"id":"e1","summary":"Tlač","start":{"dateTime":"2026-10-20T08:00:00+02:00"},"end":{"dateTime":"2026-10-20T10:00:00+02:00"}}]}`))
	})

	list, err := c.Events(context.Background(), EventQuery{MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, list.Events, 1)
	require.Equal(t, 1, list.Count)
	require.Equal(t, "2026-10-20T08:00:00+02:00", list.Events[0].Start.DateTime)

	_, err = c.Events(context.Background(), EventQuery{MaxResults: 50, CalendarID: "a", DaysAhead: 30})
	require.NoError(t, err)

	require.Equal(t, "action=getEvents&allCalendars=true&maxResults=10", got[0])
	require.Equal(t, "action=getEvents&calendarId=a&daysAhead=30&maxResults=50", got[1])
}

func TestClient_CreateEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "a", r.URL.Query().Get("calendarId"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in EventInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "Polep auta", in.Summary)
		require.Equal(t, "2026-10-20T10:00:00+02:00", in.Start.DateTime)
		_, _ = w.Write([]byte(`{"ok":true,"event":{"id":"e9"}}`))
	})

	res, err := c.CreateEvent(context.Background(), "a", EventInput{
		Summary: "Polep auta",
		Start:   EventTime{DateTime: "2026-10-20T10:00:00+02:00"},
		End:     EventTime{DateTime: "2026-10-20T12:00:00+02:00"},
	})
	require.NoError(t, err)
	require.Equal(t, true, res["ok"])
}

func TestClient_UpdateAndDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "e1", q.Get("eventId"))
		switch q.Get("action") {
		case "updateEvent":
			require.Equal(t, http.MethodPost, r.Method)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, map[string]any{"summary": "Nový názov"}, body)
		case "deleteEvent":
			require.Equal(t, http.MethodGet, r.Method)
		default:
			t.Fatalf("unexpected action %q", q.Get("action"))
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	_, err := c.UpdateEvent(context.Background(), "e1", "", EventPatch{Summary: "Nový názov"})
	require.NoError(t, err)
	_, err = c.DeleteEvent(context.Background(), "e1", "a")
	require.NoError(t, err)

	_, err = c.UpdateEvent(context.Background(), "", "", EventPatch{})
	require.ErrorIs(t, err, ErrMissingEventID)
	_, err = c.DeleteEvent(context.Background(), "", "")
	require.ErrorIs(t, err, ErrMissingEventID)
}

func TestClient_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"status", http.StatusBadGateway, `{}`, "unexpected status code: 502"},
		{"rejected", http.StatusOK, `{"ok":false,"error":"Kalendár neexistuje"}`, "Kalendár neexistuje"},
		{"rejected without message", http.StatusOK, `{"ok":false}`, "request rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.SyncFromSheet(context.Background())
			var ue *UpstreamError
			require.True(t, errors.As(err, &ue))
			require.Equal(t, tt.message, ue.Message)
		})
	}
}

func TestClient_Malformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	})
	_, err := c.SheetData(context.Background())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Contains(t, ue.Message, "malformed response")
}

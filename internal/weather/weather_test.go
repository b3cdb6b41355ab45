package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/calendar-agent/internal/config"
)

func TestSuitable(t *testing.T) {
	tests := []struct {
		temp      float64
		condition string
		wind      float64
		want      bool
	}{
		{-1, "clear", 2, false},
		{20, "rain", 2, false},
		{20, "clear", 12, false},
		{20, "clear", 3, true},
		{20, "Thunderstorm", 1, false},
		{0, "clouds", 1, false},
		{5, "clouds", 10, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%s/%v", tt.temp, tt.condition, tt.wind), func(t *testing.T) {
			require.Equal(t, tt.want, Suitable(tt.condition, tt.temp, tt.wind))
		})
	}
}

func slot(at time.Time, temp float64, main string, wind float64) map[string]any {
	return map[string]any{
		"dt":      at.Unix(),
		"main":    map[string]any{"temp": temp},
		"weather": []map[string]any{{"main": main, "description": "popis " + main}},
		"wind":    map[string]any{"speed": wind, "deg": 180},
	}
}

func fakeOWM(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "secret", r.URL.Query().Get("appid"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		switch r.URL.Path {
		case "/weather":
			cur := slot(day, 12.6, "Clear", 2.5)
			cur["name"] = "Bratislava"
			_ = json.NewEncoder(w).Encode(cur)
		case "/forecast":
			_ = json.NewEncoder(w).Encode(map[string]any{"list": []any{
				slot(day.Add(9*time.Hour), 8, "Clouds", 1),
				slot(day.Add(12*time.Hour), 14, "Clear", 3),
				slot(day.Add(15*time.Hour), 13, "Clear", 3),
				slot(day.Add(35*time.Hour), -2, "Snow", 4),
				slot(day.Add(38*time.Hour), 1, "Clear", 4),
				slot(day.Add(60*time.Hour), 9, "Rain", 5),
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Report(t *testing.T) {
	var hits atomic.Int32
	srv := fakeOWM(t, &hits)
	c := NewClient(config.WeatherConfig{APIKey: "secret", BaseURL: srv.URL, Location: "Bratislava,SK", Timezone: "UTC", Timeout: time.Second})

	r, err := c.Report(context.Background(), Query{Days: 2})
	require.NoError(t, err)
	require.EqualValues(t, 2, hits.Load())

	require.True(t, r.OK)
	require.Equal(t, "Bratislava", r.Location)
	require.Equal(t, 13, r.Current.Temperature)
	require.Equal(t, "clear", r.Current.Condition)
	require.True(t, r.Current.Suitable)

	require.Len(t, r.Forecast, 2)
	require.Equal(t, "2026-10-20T12:00:00Z", r.Forecast[0].Date)
	require.True(t, r.Forecast[0].Suitable)
	require.Equal(t, "2026-10-21T11:00:00Z", r.Forecast[1].Date)
	require.Equal(t, "snow", r.Forecast[1].Condition)
	require.False(t, r.Forecast[1].Suitable)
}

func TestClient_ReportCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "48.1486", r.URL.Query().Get("lat"))
		require.Equal(t, "17.1077", r.URL.Query().Get("lon"))
		require.Empty(t, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"list":[]}`))
	}))
	defer srv.Close()

	lat, lon := 48.1486, 17.1077
	c := NewClient(config.WeatherConfig{APIKey: "k", BaseURL: srv.URL, Location: "Bratislava,SK"})
	r, err := c.Report(context.Background(), Query{Lat: &lat, Lon: &lon})
	require.NoError(t, err)
	require.Equal(t, "Bratislava,SK", r.Location)
	require.Empty(t, r.Forecast)
}

func TestClient_ReportErrors(t *testing.T) {
	_, err := NewClient(config.WeatherConfig{}).Report(context.Background(), Query{})
	require.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()
	c := NewClient(config.WeatherConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err = c.Report(context.Background(), Query{})
	require.ErrorContains(t, err, "Invalid API key")
}

func TestBrief(t *testing.T) {
	var hits atomic.Int32
	srv := fakeOWM(t, &hits)
	c := NewClient(config.WeatherConfig{APIKey: "secret", BaseURL: srv.URL, Timezone: "UTC"})
	r, err := c.Report(context.Background(), Query{Days: 7})
	require.NoError(t, err)

	b := r.Brief()
	require.Equal(t, "9 km/h", b.Current.Wind)
	require.Empty(t, b.Current.Date)
	require.Len(t, b.Forecast, 3)
	require.Equal(t, "utorok 20. októbra", b.Forecast[0].Date)
	require.Equal(t, "11 km/h", b.Forecast[0].Wind)
	require.Equal(t, "štvrtok 22. októbra", b.Forecast[2].Date)

	s, ok := r.ForDay(time.Date(2026, 10, 21, 7, 0, 0, 0, time.UTC))
	require.True(t, ok)
	require.Equal(t, "snow", s.Condition)
	_, ok = r.ForDay(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
	require.False(t, ok)
}

func TestResolveDate(t *testing.T) {
	// a Monday
	now := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }

	tests := map[string]time.Time{
		"today":      day(19),
		"Dnes":       day(19),
		"tomorrow":   day(20),
		"zajtra":     day(20),
		"monday":     day(26),
		"pondelok":   day(26),
		"Wednesday":  day(21),
		"štvrtok":    day(22),
		"nedeľa":     day(25),
		"2026-10-30": day(30),
	}
	for in, want := range tests {
		got, err := ResolveDate(in, now)
		require.NoError(t, err, in)
		require.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	_, err := ResolveDate("25. október", now)
	require.ErrorIs(t, err, ErrUnknownDate)
}

func TestDayLabel(t *testing.T) {
	require.Equal(t, "pondelok 19. októbra", DayLabel(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "sobota 1. mája", DayLabel(time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC)))
}

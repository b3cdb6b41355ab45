package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/calendar-agent/internal/weather"
)

type fakeWeather struct {
	report  *weather.Report
	err     error
	queries []weather.Query
}

func (f *fakeWeather) Report(_ context.Context, q weather.Query) (*weather.Report, error) {
	f.queries = append(f.queries, q)
	return f.report, f.err
}

func (f *fakeWeather) Location() *time.Location { return time.UTC }

func monday() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

func TestGetWeather(t *testing.T) {
	f := &fakeWeather{report: &weather.Report{
		OK:       true,
		Location: "Bratislava,SK",
		Current:  weather.Sample{Temperature: 12, Description: "jasno", Condition: "Clear", WindSpeed: 5, Suitable: true},
	}}
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Weather: f, Now: monday})

	got := decode(t, m.Call(context.Background(), "get_weather", `{}`))
	require.Equal(t, true, got["ok"])
	require.Equal(t, "Bratislava,SK", got["location"])
	require.Equal(t, "18 km/h", got["current"].(map[string]any)["wind"])
	require.Equal(t, []any{}, got["forecast"])

	m.Call(context.Background(), "get_weather", `{"days":30}`)
	require.Equal(t, weather.DefaultDays, f.queries[0].Days)
	require.Equal(t, weather.MaxDays, f.queries[1].Days)
}

func TestGetWeather_Error(t *testing.T) {
	f := &fakeWeather{err: errors.New("city not found")}
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Weather: f, Now: monday})

	got := decode(t, m.Call(context.Background(), "get_weather", `{"days":2}`))
	require.Equal(t, map[string]any{"ok": false, "error": "Chyba pri načítavaní počasia: city not found"}, got)
}

func TestGetWeatherForDate_OutOfRange(t *testing.T) {
	f := &fakeWeather{report: &weather.Report{OK: true}}
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Weather: f, Now: monday})

	got := decode(t, m.Call(context.Background(), "get_weather_for_date", `{"date":"zajtra"}`))
	require.Equal(t, false, got["ok"])
	require.Equal(t, "Nemám predpoveď počasia pre utorok 20. októbra. Prognóza je k dispozícii iba na najbližších 7-14 dní.", got["error"])
	require.Equal(t, weather.MaxDays, f.queries[0].Days)
}

func TestGetWeatherForDate_BadDate(t *testing.T) {
	f := &fakeWeather{report: &weather.Report{OK: true}}
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Weather: f, Now: monday})

	got := decode(t, m.Call(context.Background(), "get_weather_for_date", `{"date":"o dva týždne"}`))
	require.Equal(t, false, got["ok"])
	require.Contains(t, got["error"], "Chyba pri spracovaní dátumu")
	require.Empty(t, f.queries)
}

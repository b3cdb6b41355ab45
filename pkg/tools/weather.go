package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/comigor/calendar-agent/internal/weather"
)

// WeatherSource is the weather client surface used by the weather tools.
type WeatherSource interface {
	Report(ctx context.Context, q weather.Query) (*weather.Report, error)
	Location() *time.Location
}

var _ WeatherSource = (*weather.Client)(nil)

type weatherArgs struct {
	Days int `json:"days,omitempty" description:"Počet dní pre predpoveď (default 7, max 14)" validate:"gte=0"`
}

type weatherForDateArgs struct {
	Date string `json:"date" description:"Dátum v ISO formáte (YYYY-MM-DD) alebo relatívny (napr. \"tomorrow\", \"zajtra\", \"monday\", \"pondelok\")" validate:"required"`
}

// WeatherTools returns get_weather and get_weather_for_date. now supplies the
// reference time for relative dates.
func WeatherTools(src WeatherSource, now func() time.Time) []Tool {
	if now == nil {
		now = time.Now
	}
	return []Tool{
		NewFunc("get_weather",
			"Zobrazí aktuálne počasie a predpoveď. Použi keď používateľ pýta \"aké je počasie\", \"bude pršať\", \"môžem montovať\" atď.",
			func(ctx context.Context, a weatherArgs) (any, error) {
				if a.Days == 0 {
					a.Days = weather.DefaultDays
				}
				if a.Days > weather.MaxDays {
					a.Days = weather.MaxDays
				}
				r, err := src.Report(ctx, weather.Query{Days: a.Days})
				if err != nil {
					return nil, fmt.Errorf("Chyba pri načítavaní počasia: %w", err)
				}
				return r.Brief(), nil
			}),

		NewFunc("get_weather_for_date",
			"Zistí počasie pre konkrétny dátum (napr. pondelok, zajtra, 2025-10-25)",
			func(ctx context.Context, a weatherForDateArgs) (any, error) {
				day, err := weather.ResolveDate(a.Date, now().In(src.Location()))
				if err != nil {
					return nil, fmt.Errorf("Chyba pri spracovaní dátumu: %w", err)
				}
				r, err := src.Report(ctx, weather.Query{Days: weather.MaxDays})
				if err != nil {
					return nil, fmt.Errorf("Chyba pri načítavaní počasia: %w", err)
				}
				label := weather.DayLabel(day)
				s, ok := r.ForDay(day)
				if !ok {
					return map[string]any{
						"ok":    false,
						"error": fmt.Sprintf("Nemám predpoveď počasia pre %s. Prognóza je k dispozícii iba na najbližších 7-14 dní.", label),
					}, nil
				}
				return map[string]any{"ok": true, "date": label, "weather": s.Brief()}, nil
			}),
	}
}

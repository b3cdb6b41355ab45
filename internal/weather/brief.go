package weather

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	skWeekdays = [...]string{"nedeľa", "pondelok", "utorok", "streda", "štvrtok", "piatok", "sobota"}
	skMonths   = [...]string{"januára", "februára", "marca", "apríla", "mája", "júna", "júla", "augusta", "septembra", "októbra", "novembra", "decembra"}
)

// DayLabel formats t the way Slovak users write a day: "pondelok 20. októbra".
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%s %d. %s", skWeekdays[t.Weekday()], t.Day(), skMonths[t.Month()-1])
}

// Brief is a Sample prepared for the model: wind in km/h and a readable date.
type Brief struct {
	Date        string `json:"date,omitempty"`
	Temperature int    `json:"temperature"`
	Description string `json:"description"`
	Wind        string `json:"wind"`
	Suitable    bool   `json:"suitable_for_installation"`
}

type BriefReport struct {
	OK       bool    `json:"ok"`
	Location string  `json:"location"`
	Current  Brief   `json:"current"`
	Forecast []Brief `json:"forecast"`
}

func (s Sample) Brief() Brief {
	b := Brief{
		Temperature: s.Temperature,
		Description: s.Description,
		Wind:        fmt.Sprintf("%d km/h", int(math.Round(s.WindSpeed*3.6))),
		Suitable:    s.Suitable,
	}
	if !s.at.IsZero() {
		b.Date = DayLabel(s.at)
	}
	return b
}

func (r *Report) Brief() BriefReport {
	out := BriefReport{
		OK:       r.OK,
		Location: r.Location,
		Current:  r.Current.Brief(),
		Forecast: make([]Brief, 0, len(r.Forecast)),
	}
	for _, s := range r.Forecast {
		out.Forecast = append(out.Forecast, s.Brief())
	}
	return out
}

// ForDay returns the forecast sample falling on the same local date as day.
func (r *Report) ForDay(day time.Time) (Sample, bool) {
	for _, s := range r.Forecast {
		if s.at.IsZero() {
			continue
		}
		if s.at.Format(time.DateOnly) == day.In(s.at.Location()).Format(time.DateOnly) {
			return s, true
		}
	}
	return Sample{}, false
}

// ErrUnknownDate is returned by ResolveDate for input it cannot interpret.
var ErrUnknownDate = errors.New("weather: unrecognised date")

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "nedeľa": time.Sunday, "nedela": time.Sunday,
	"monday": time.Monday, "pondelok": time.Monday,
	"tuesday": time.Tuesday, "utorok": time.Tuesday,
	"wednesday": time.Wednesday, "streda": time.Wednesday,
	"thursday": time.Thursday, "štvrtok": time.Thursday, "stvrtok": time.Thursday,
	"friday": time.Friday, "piatok": time.Friday,
	"saturday": time.Saturday, "sobota": time.Saturday,
}

// ResolveDate turns YYYY-MM-DD, today/dnes, tomorrow/zajtra or a weekday name
// into a date in now's location. A weekday always means its next occurrence,
// never today.
func ResolveDate(s string, now time.Time) (time.Time, error) {
	word := strings.ToLower(strings.TrimSpace(s))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch word {
	case "today", "dnes":
		return today, nil
	case "tomorrow", "zajtra":
		return today.AddDate(0, 0, 1), nil
	}
	if wd, ok := weekdayNames[word]; ok {
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, word, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(word)); err == nil {
		return t.In(now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownDate, s)
}

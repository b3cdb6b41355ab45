package tools

import (
	"context"
	"fmt"

	"github.com/comigor/calendar-agent/internal/calendar"
)

// CalendarBackend is the calendar client surface used by the calendar tools.
type CalendarBackend interface {
	Calendars(ctx context.Context) ([]calendar.Calendar, error)
	Events(ctx context.Context, q calendar.EventQuery) (*calendar.EventList, error)
	CreateEvent(ctx context.Context, calendarID string, in calendar.EventInput) (calendar.Result, error)
	UpdateEvent(ctx context.Context, eventID, calendarID string, patch calendar.EventPatch) (calendar.Result, error)
	DeleteEvent(ctx context.Context, eventID, calendarID string) (calendar.Result, error)
	SyncFromSheet(ctx context.Context) (calendar.Result, error)
	SheetData(ctx context.Context) (calendar.Result, error)
}

var _ CalendarBackend = (*calendar.Client)(nil)

type noArgs struct{}

type listEventsArgs struct {
	MaxResults int    `json:"maxResults,omitempty" description:"Maximálny počet udalostí (default 10)" validate:"gte=0"`
	CalendarID string `json:"calendarId,omitempty" description:"ID kalendára, z ktorého chceš načítať udalosti."`
	DaysAhead  int    `json:"daysAhead,omitempty" description:"Koľko dní dopredu hľadať" validate:"gte=0"`
}

type addEventArgs struct {
	Summary     string `json:"summary" description:"Názov udalosti" validate:"required"`
	Description string `json:"description,omitempty" description:"Popis udalosti"`
	StartTime   string `json:"startTime" description:"Začiatok v ISO 8601 formáte (napr. 2025-10-20T14:00:00+02:00)" validate:"required"`
	EndTime     string `json:"endTime" description:"Koniec v ISO 8601 formáte" validate:"required"`
	Location    string `json:"location,omitempty" description:"Miesto konania"`
	CalendarID  string `json:"calendarId,omitempty" description:"ID kalendára do ktorého pridať udalosť. Ak nie je špecifikované, použije sa primárny kalendár."`
}

type updateEventArgs struct {
	EventID     string `json:"eventId" description:"ID udalosti" validate:"required"`
	CalendarID  string `json:"calendarId,omitempty" description:"ID kalendára, v ktorom udalosť je"`
	Summary     string `json:"summary,omitempty" description:"Nový názov udalosti"`
	Description string `json:"description,omitempty" description:"Nový popis udalosti"`
	StartTime   string `json:"startTime,omitempty" description:"Nový začiatok v ISO 8601 formáte"`
	EndTime     string `json:"endTime,omitempty" description:"Nový koniec v ISO 8601 formáte"`
	Location    string `json:"location,omitempty" description:"Nové miesto konania"`
}

type deleteEventArgs struct {
	EventID    string `json:"eventId" description:"ID udalosti" validate:"required"`
	CalendarID string `json:"calendarId,omitempty" description:"ID kalendára, v ktorom udalosť je"`
}

type eventsByNameArgs struct {
	CalendarName string `json:"calendarName" description:"Názov kalendára/pozície, ktorú hľadáš (napr. \"tlačiar\", \"grafik\", \"obchodník\")" validate:"required"`
	MaxResults   int    `json:"maxResults,omitempty" description:"Maximálny počet udalostí (default 50)" validate:"gte=0"`
}

type addByNameArgs struct {
	CalendarName string `json:"calendarName" description:"Názov pozície/kalendára (napr. \"lepič\", \"grafik\", \"obchodník\")" validate:"required"`
	Summary      string `json:"summary" description:"Názov udalosti" validate:"required"`
	Description  string `json:"description,omitempty" description:"Popis udalosti"`
	StartTime    string `json:"startTime" description:"Začiatok v ISO 8601 formáte (napr. 2025-10-26T10:00:00+02:00). Ak používateľ povie \"1,2 hodiny\", vypočítaj endTime." validate:"required"`
	EndTime      string `json:"endTime" description:"Koniec v ISO 8601 formáte. Ak používateľ povie trvanie (napr. 1,2h), vypočítaj z startTime." validate:"required"`
	Location     string `json:"location,omitempty" description:"Miesto konania"`
}

func timeOrNil(s string) *calendar.EventTime {
	if s == "" {
		return nil
	}
	return &calendar.EventTime{DateTime: s}
}

// CalendarTools returns the calendar tools backed by cal.
func CalendarTools(cal CalendarBackend) []Tool {
	return []Tool{
		NewFunc("list_calendars",
			"Zobrazí zoznam všetkých kalendárov. Keď používateľ pýta \"vypiš udalosti na X\", po získaní zoznamu IHNEĎ zavolaj list_events() s calendarId.",
			func(ctx context.Context, _ noArgs) (any, error) {
				cals, err := cal.Calendars(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"ok": true, "calendars": cals}, nil
			}),

		NewFunc("list_events",
			"Zobrazí zoznam udalostí z Google Kalendára. Ak používateľ pýta na konkrétny kalendár (napr. \"tlačiar\", \"grafik\"), použi radšej get_calendar_events_by_name!",
			func(ctx context.Context, a listEventsArgs) (any, error) {
				if a.MaxResults == 0 {
					a.MaxResults = 10
				}
				return cal.Events(ctx, calendar.EventQuery{MaxResults: a.MaxResults, CalendarID: a.CalendarID, DaysAhead: a.DaysAhead})
			}),

		NewFunc("add_event",
			"Pridá novú udalosť do Google Kalendára. Ak používateľ špecifikuje osobu/pozíciu (napr. \"obchodník\", \"grafik\", \"tlačiar\"), použi radšej add_event_by_calendar_name!",
			func(ctx context.Context, a addEventArgs) (any, error) {
				return cal.CreateEvent(ctx, a.CalendarID, calendar.EventInput{
					Summary:     a.Summary,
					Description: a.Description,
					Start:       calendar.EventTime{DateTime: a.StartTime},
					End:         calendar.EventTime{DateTime: a.EndTime},
					Location:    a.Location,
				})
			}),

		NewFunc("update_event",
			"Upraví existujúcu udalosť. Vyplň iba polia, ktoré sa menia.",
			func(ctx context.Context, a updateEventArgs) (any, error) {
				return cal.UpdateEvent(ctx, a.EventID, a.CalendarID, calendar.EventPatch{
					Summary:     a.Summary,
					Description: a.Description,
					Start:       timeOrNil(a.StartTime),
					End:         timeOrNil(a.EndTime),
					Location:    a.Location,
				})
			}),

		NewFunc("delete_event",
			"Vymaže udalosť z kalendára.",
			func(ctx context.Context, a deleteEventArgs) (any, error) {
				return cal.DeleteEvent(ctx, a.EventID, a.CalendarID)
			}),

		NewFunc("get_calendar_events_by_name",
			"Nájde kalendár podľa názvu (napr. \"tlačiar\", \"grafik\") a vypíše z neho všetky udalosti. ONE-SHOT funkcia: zavolá list_calendars aj list_events naraz!",
			func(ctx context.Context, a eventsByNameArgs) (any, error) {
				cals, err := cal.Calendars(ctx)
				if err != nil {
					return nil, fmt.Errorf("Nepodarilo sa načítať kalendáre: %w", err)
				}
				found, ok := calendar.FindByName(cals, a.CalendarName)
				if !ok {
					return calendar.NotFound(a.CalendarName, cals), nil
				}
				if a.MaxResults == 0 {
					a.MaxResults = 50
				}
				list, err := cal.Events(ctx, calendar.EventQuery{MaxResults: a.MaxResults, CalendarID: found.ID})
				if err != nil {
					return nil, err
				}
				events := list.Events
				if events == nil {
					events = []calendar.Event{}
				}
				return map[string]any{
					"ok":       true,
					"calendar": map[string]string{"id": found.ID, "name": found.Name},
					"events":   events,
					"count":    list.Count,
				}, nil
			}),

		NewFunc("add_event_by_calendar_name",
			"Pridá udalosť do kalendára podľa názvu pozície (napr. \"lepič\", \"tlačiar\"). ONE-SHOT funkcia: sama nájde kalendár a pridá udalosť!",
			func(ctx context.Context, a addByNameArgs) (any, error) {
				cals, err := cal.Calendars(ctx)
				if err != nil {
					return nil, fmt.Errorf("Nepodarilo sa načítať kalendáre: %w", err)
				}
				found, ok := calendar.FindByName(cals, a.CalendarName)
				if !ok {
					return calendar.NotFound(a.CalendarName, cals), nil
				}
				res, err := cal.CreateEvent(ctx, found.ID, calendar.EventInput{
					Summary:     a.Summary,
					Description: a.Description,
					Start:       calendar.EventTime{DateTime: a.StartTime},
					End:         calendar.EventTime{DateTime: a.EndTime},
					Location:    a.Location,
				})
				if err != nil {
					return nil, fmt.Errorf("Chyba pri pridávaní udalosti: %w", err)
				}
				return map[string]any{
					"ok":       true,
					"message":  fmt.Sprintf("Udalosť \"%s\" pridaná do kalendára %s", a.Summary, found.Name),
					"calendar": found.Name,
					"event":    res,
				}, nil
			}),

		NewFunc("sync_calendars_from_sheet",
			"Vytvorí kalendáre pre všetkých zamestnancov z Google Sheets tabuľky. Automaticky načíta zoznam ľudí a pre každého vytvorí osobný kalendár.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return cal.SyncFromSheet(ctx)
			}),

		NewFunc("get_sheet_employees",
			"Zobrazí zoznam zamestnancov z Google Sheets tabuľky pred vytvorením kalendárov",
			func(ctx context.Context, _ noArgs) (any, error) {
				return cal.SheetData(ctx)
			}),
	}
}

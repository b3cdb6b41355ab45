package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/comigor/calendar-agent/internal/calendar"
	"github.com/comigor/calendar-agent/internal/config"
	"github.com/comigor/calendar-agent/internal/llm"
	"github.com/comigor/calendar-agent/internal/logger"
)

var (
	// ErrInvalidOrder is returned when an order lacks a name, deadline or tasks.
	ErrInvalidOrder = errors.New("Chýbajúce povinné údaje")
	// ErrCalendarsUnavailable is returned when the calendar list cannot be loaded.
	ErrCalendarsUnavailable = errors.New("Nepodarilo sa načítať kalendáre")
)

// Backend is the part of the calendar client the planner needs.
type Backend interface {
	Calendars(ctx context.Context) ([]calendar.Calendar, error)
	Events(ctx context.Context, q calendar.EventQuery) (*calendar.EventList, error)
	CreateEvent(ctx context.Context, calendarID string, in calendar.EventInput) (calendar.Result, error)
}

// Task is one production step. Backward scheduling resolves Position to a
// calendar by name; forward scheduling and optimisation use CalendarID.
type Task struct {
	Position     string  `json:"position,omitempty"`
	Label        string  `json:"label,omitempty"`
	Description  string  `json:"description,omitempty"`
	CalendarID   string  `json:"calendarId,omitempty"`
	CalendarName string  `json:"calendarName,omitempty"`
	Hours        float64 `json:"duration" validate:"gt=0"`
}

func (t Task) title() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Description
}

func (t Task) duration() time.Duration {
	return time.Duration(t.Hours * float64(time.Hour))
}

// Order is a job that must be finished by Deadline.
type Order struct {
	Name     string `json:"name" validate:"required"`
	Deadline string `json:"deadline" validate:"required"`
	Tasks    []Task `json:"tasks" validate:"required,min=1,dive"`
}

// Scheduled is a task that was written to a calendar.
type Scheduled struct {
	Calendar   string    `json:"calendar"`
	CalendarID string    `json:"calendarId"`
	Task       string    `json:"task"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Hours      float64   `json:"hours"`
}

// Plan is the outcome of scheduling an order. Failed tasks are listed in
// Errors; the rest of the order is still scheduled.
type Plan struct {
	Name       string      `json:"name"`
	Created    []Scheduled `json:"created"`
	Errors     []string    `json:"errors"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	TotalHours float64     `json:"totalHours"`
	Message    string      `json:"message"`
}

// Service lays out orders in the employees' calendars.
type Service struct {
	cal      Backend
	llm      llm.Client
	cfg      config.LLMConfig
	loc      *time.Location
	validate *validator.Validate
	now      func() time.Time
}

func NewService(cal Backend, client llm.Client, cfg config.LLMConfig, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		cal:      cal,
		llm:      client,
		cfg:      cfg,
		loc:      loc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

var deadlineLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", time.DateOnly}

// ParseTime accepts RFC 3339 or a zone-less date/time, read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid deadline %q", ErrInvalidOrder, s)
}

func (s *Service) check(o Order) (time.Time, error) {
	if err := s.validate.Struct(o); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	return ParseTime(o.Deadline, s.loc)
}

func (s *Service) create(ctx context.Context, o Order, t Task, calendarID string, start, end time.Time, description string) error {
	_, err := s.cal.CreateEvent(ctx, calendarID, calendar.EventInput{
		Summary:     o.Name + " - " + t.title(),
		Description: description,
		Start:       calendar.EventTime{DateTime: start.Format(time.RFC3339)},
		End:         calendar.EventTime{DateTime: end.Format(time.RFC3339)},
		Location:    "Výroba",
	})
	return err
}

// Backward schedules tasks so that the last one ends at the deadline and every
// earlier task ends where its successor starts. Each task goes to the first
// calendar whose name contains its position. Tasks without a matching calendar
// are reported and take no time.
func (s *Service) Backward(ctx context.Context, o Order) (*Plan, error) {
	deadline, err := s.check(o)
	if err != nil {
		return nil, err
	}
	cals, err := s.cal.Calendars(ctx)
	if err != nil {
		logger.L.Error("failed to load calendars for order", "order", o.Name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCalendarsUnavailable, err)
	}

	plan := &Plan{Name: o.Name, End: deadline, Errors: []string{}}
	cursor := deadline
	created := make([]Scheduled, 0, len(o.Tasks))
	for i := len(o.Tasks) - 1; i >= 0; i-- {
		t := o.Tasks[i]
		cal, ok := calendar.FindByName(cals, t.Position)
		if !ok {
			plan.Errors = append(plan.Errors, "Nenašiel sa zamestnanec pre pozíciu: "+t.Position)
			continue
		}

		start := cursor.Add(-t.duration())
		desc := fmt.Sprintf("Zákazka: %s\nÚloha: %s\nTrvanie: %sh", o.Name, t.title(), hours(t.Hours))
		if err := s.create(ctx, o, t, cal.ID, start, cursor, desc); err != nil {
			plan.Errors = append(plan.Errors, fmt.Sprintf("Chyba pri vytváraní úlohy %s: %v", t.title(), err))
		} else {
			created = append(created, Scheduled{
				Calendar:   cal.Name,
				CalendarID: cal.ID,
				Task:       t.title(),
				Start:      start,
				End:        cursor,
				Hours:      t.Hours,
			})
		}
		cursor = start
	}

	// created was filled last task first
	for i, j := 0, len(created)-1; i < j; i, j = i+1, j-1 {
		created[i], created[j] = created[j], created[i]
	}
	plan.Created = created
	plan.Start = cursor
	plan.TotalHours = deadline.Sub(cursor).Hours()
	plan.Message = backwardMessage(plan, s.loc)

	logger.L.Info("order scheduled backward", "order", o.Name, "created", len(plan.Created), "errors", len(plan.Errors))
	return plan, nil
}

// Forward lays the tasks back to back in the given order into their own
// calendars, starting so that the last one ends at the deadline.
func (s *Service) Forward(ctx context.Context, o Order) (*Plan, error) {
	deadline, err := s.check(o)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, t := range o.Tasks {
		total += t.Hours
	}
	first := deadline.Add(-time.Duration(total * float64(time.Hour)))

	plan := &Plan{Name: o.Name, Start: first, End: deadline, TotalHours: total, Errors: []string{}, Created: []Scheduled{}}
	cursor := first
	for _, t := range o.Tasks {
		end := cursor.Add(t.duration())
		if t.CalendarID == "" {
			plan.Errors = append(plan.Errors, fmt.Sprintf("Chyba pri vytváraní \"%s\": chýba kalendár", t.title()))
			cursor = end
			continue
		}
		desc := fmt.Sprintf("Zákazka: %s\nProces: %s\nTrvanie: %sh\nPridelené: %s\n\nTento proces musí byť dokončený pred začatím ďalšieho procesu!",
			o.Name, t.title(), hours(t.Hours), t.CalendarName)
		if err := s.create(ctx, o, t, t.CalendarID, cursor, end, desc); err != nil {
			plan.Errors = append(plan.Errors, fmt.Sprintf("Chyba pri vytváraní \"%s\": %v", t.title(), err))
		} else {
			plan.Created = append(plan.Created, Scheduled{
				Calendar:   t.CalendarName,
				CalendarID: t.CalendarID,
				Task:       t.title(),
				Start:      cursor,
				End:        end,
				Hours:      t.Hours,
			})
		}
		cursor = end
	}
	plan.Message = forwardMessage(plan, s.loc)

	logger.L.Info("order scheduled forward", "order", o.Name, "created", len(plan.Created), "errors", len(plan.Errors))
	return plan, nil
}

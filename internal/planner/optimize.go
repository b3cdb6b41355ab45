package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/calendar-agent/internal/calendar"
	"github.com/comigor/calendar-agent/internal/logger"
)

// ErrNoTasks is returned when an optimisation request carries no tasks.
var ErrNoTasks = errors.New("Žiadne procesy na optimalizáciu")

const optimizerSystemPrompt = "Si expert na výrobné plánovanie. Analyzuješ závislosti medzi procesmi a navrhneš optimálny časový rozvrh. Odpovieš iba validným JSON."

type WorkingHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type OptimizeRequest struct {
	Tasks        []Task        `json:"tasks" validate:"required,min=1,dive"`
	Deadline     string        `json:"deadline,omitempty"`
	WorkingHours *WorkingHours `json:"workingHours,omitempty"`
}

// Proposal is a task with the slot suggested for it.
type Proposal struct {
	Task
	SuggestedStart string   `json:"suggestedStart"`
	SuggestedEnd   string   `json:"suggestedEnd"`
	DependsOn      any      `json:"dependsOn"`
	CanRunParallel bool     `json:"canRunParallel"`
	Reasoning      string   `json:"reasoning"`
	Alternatives   []string `json:"alternatives"`
}

type Stats struct {
	TotalProcesses int     `json:"totalProcesses"`
	TotalHours     float64 `json:"totalHours"`
	PlannedStart   string  `json:"plannedStart,omitempty"`
	PlannedEnd     string  `json:"plannedEnd,omitempty"`
}

type Optimization struct {
	Plan        []Proposal `json:"plan"`
	AIReasoning string     `json:"aiReasoning"`
	Warnings    []string   `json:"warnings"`
	Stats       Stats      `json:"stats"`
}

type modelPlan struct {
	Reasoning string `json:"reasoning"`
	Schedule  []struct {
		ProcessIndex   int    `json:"processIndex"`
		CalendarID     string `json:"calendarId"`
		SuggestedStart string `json:"suggestedStart"`
		SuggestedEnd   string `json:"suggestedEnd"`
		DependsOn      any    `json:"dependsOn"`
		CanRunParallel bool   `json:"canRunParallel"`
		Reasoning      string `json:"reasoning"`
	} `json:"schedule"`
	Warnings []string `json:"warnings"`
}

// Optimize asks the model for a schedule that respects the busy slots of the
// next 30 days. Nothing is written to the calendars.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (*Optimization, error) {
	if len(req.Tasks) == 0 {
		return nil, ErrNoTasks
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if s.llm == nil {
		return nil, errors.New("planner: no language model configured")
	}

	now := s.now().In(s.loc)
	deadline := now.Add(7 * 24 * time.Hour)
	if req.Deadline != "" {
		d, err := ParseTime(req.Deadline, s.loc)
		if err != nil {
			return nil, err
		}
		deadline = d
	}
	wh := WorkingHours{Start: 8, End: 17}
	if req.WorkingHours != nil {
		wh = *req.WorkingHours
	}

	var events []calendar.Event
	list, err := s.cal.Events(ctx, calendar.EventQuery{MaxResults: 200, DaysAhead: 30})
	if err != nil {
		logger.L.Warn("could not load busy slots, optimizing without them", "error", err)
	} else {
		events = list.Events
	}

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	resp, err := s.llm.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: optimizerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: s.optimizerPrompt(req.Tasks, events, deadline, now, wh)},
		},
		Temperature:    0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("optimize schedule: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("optimize schedule: empty model response")
	}

	var mp modelPlan
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &mp); err != nil {
		return nil, fmt.Errorf("optimize schedule: malformed model response: %w", err)
	}

	out := &Optimization{
		Plan:        make([]Proposal, 0, len(mp.Schedule)),
		AIReasoning: mp.Reasoning,
		Warnings:    mp.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	for _, item := range mp.Schedule {
		if item.ProcessIndex < 0 || item.ProcessIndex >= len(req.Tasks) {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Neznámy proces v návrhu: %d", item.ProcessIndex))
			continue
		}
		out.Plan = append(out.Plan, Proposal{
			Task:           req.Tasks[item.ProcessIndex],
			SuggestedStart: item.SuggestedStart,
			SuggestedEnd:   item.SuggestedEnd,
			DependsOn:      item.DependsOn,
			CanRunParallel: item.CanRunParallel,
			Reasoning:      item.Reasoning,
			Alternatives:   []string{},
		})
	}

	out.Stats.TotalProcesses = len(req.Tasks)
	for _, t := range req.Tasks {
		out.Stats.TotalHours += t.Hours
	}
	if len(out.Plan) > 0 {
		out.Stats.PlannedStart = out.Plan[0].SuggestedStart
		out.Stats.PlannedEnd = out.Plan[len(out.Plan)-1].SuggestedEnd
	}
	return out, nil
}

func (s *Service) optimizerPrompt(tasks []Task, events []calendar.Event, deadline, now time.Time, wh WorkingHours) string {
	var b strings.Builder
	b.WriteString("Si expert na plánovanie výroby. Máš nasledujúce procesy, ktoré treba naplánovať:\n\n**PROCESY:**\n")
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s (%sh) - pridelené: %s (ID: %s)\n", i+1, t.title(), hours(t.Hours), t.CalendarName, t.CalendarID)
	}
	fmt.Fprintf(&b, "\n**TERMÍN DOKONČENIA:** %s\n", deadline.In(s.loc).Format(skDateTime))
	fmt.Fprintf(&b, "**PRACOVNÉ HODINY:** %d:00 - %d:00 (Po-Pia)\n", wh.Start, wh.End)
	fmt.Fprintf(&b, "**AKTUÁLNY ČAS:** %s\n\n**OBSADENOSŤ KALENDÁROV:**\n", now.Format(skDateTime))

	seen := make(map[string]bool)
	for _, t := range tasks {
		if seen[t.CalendarID] {
			continue
		}
		seen[t.CalendarID] = true
		fmt.Fprintf(&b, "\n%s:\n", t.CalendarName)
		busy := 0
		for _, e := range events {
			if e.CalendarID != t.CalendarID {
				continue
			}
			busy++
			fmt.Fprintf(&b, "  - %s - %s: %s\n", s.localize(e.Start.DateTime), s.localize(e.End.DateTime), e.Summary)
		}
		if busy == 0 {
			b.WriteString("  (žiadne udalosti)\n")
		}
	}

	b.WriteString(`
**ÚLOHA:**
1. Analyzuj závislosti medzi procesmi (napr. "grafika" musí byť pred "tlač", "tlač" pred "lepenie")
2. Nájdi optimálne časy pre každý proces
3. Vyhni sa kolíziám s existujúcimi udalosťami
4. Minimalizuj čakacie časy
5. Dodržuj pracovné hodiny a preskakuj víkendy
6. Označ ktoré procesy môžu bežať paralelne (rôzne kalendáre)

**ODPOVEĎ (JSON):**
{
  "reasoning": "Tvoje zdôvodnenie postupnosti a časovania",
  "schedule": [
    {
      "processIndex": 0,
      "calendarId": "...",
      "suggestedStart": "2025-10-20T08:00:00",
      "suggestedEnd": "2025-10-20T12:00:00",
      "dependsOn": null,
      "canRunParallel": false,
      "reasoning": "Prečo práve tento čas"
    }
  ],
  "warnings": ["Možné problémy alebo odporúčania"]
}`)
	return b.String()
}

func (s *Service) localize(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.In(s.loc).Format(skDateTime)
}

package tools

import (
	"context"

	"github.com/comigor/calendar-agent/internal/planner"
)

// Scheduler lays out an order backwards from its deadline.
type Scheduler interface {
	Backward(ctx context.Context, o planner.Order) (*planner.Plan, error)
}

var _ Scheduler = (*planner.Service)(nil)

type orderTaskArgs struct {
	Position string  `json:"position" description:"Pozícia zamestnanca, ktorý úlohu robí (napr. \"grafik\", \"tlačiar\", \"lepič\")" validate:"required"`
	Label    string  `json:"label" description:"Názov úlohy" validate:"required"`
	Duration float64 `json:"duration" description:"Trvanie v hodinách" validate:"gt=0"`
}

type createOrderArgs struct {
	Name     string          `json:"name" description:"Názov zákazky" validate:"required"`
	Deadline string          `json:"deadline" description:"Termín dokončenia v ISO 8601 formáte" validate:"required"`
	Tasks    []orderTaskArgs `json:"tasks" description:"Úlohy v poradí, v akom idú za sebou" validate:"required,min=1,dive"`
}

type orderResult struct {
	OK bool `json:"ok"`
	*planner.Plan
}

func CreateOrderTool(s Scheduler) Tool {
	return NewFunc("create_order",
		"Vytvorí zákazku: úlohy naplánuje spätne od termínu dokončenia do kalendárov zamestnancov podľa ich pozície.",
		func(ctx context.Context, a createOrderArgs) (any, error) {
			o := planner.Order{Name: a.Name, Deadline: a.Deadline, Tasks: make([]planner.Task, 0, len(a.Tasks))}
			for _, t := range a.Tasks {
				o.Tasks = append(o.Tasks, planner.Task{Position: t.Position, Label: t.Label, Hours: t.Duration})
			}
			plan, err := s.Backward(ctx, o)
			if err != nil {
				return nil, err
			}
			return orderResult{OK: len(plan.Errors) == 0, Plan: plan}, nil
		})
}

package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/calendar-agent/internal/planner"
)

type fakeScheduler struct {
	got  planner.Order
	plan *planner.Plan
}

func (f *fakeScheduler) Backward(_ context.Context, o planner.Order) (*planner.Plan, error) {
	f.got = o
	return f.plan, nil
}

func TestCreateOrder(t *testing.T) {
	f := &fakeScheduler{plan: &planner.Plan{Name: "Letáky", Errors: []string{}, Message: "hotovo"}}
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Planner: f})

	got := decode(t, m.Call(context.Background(), "create_order",
		`{"name":"Letáky","deadline":"2026-10-23T16:00:00","tasks":[{"position":"grafik","label":"Návrh","duration":2},{"position":"tlačiar","label":"Tlač","duration":"1.5"}]}`))
	require.Equal(t, true, got["ok"])
	require.Equal(t, "Letáky", got["name"])
	require.Equal(t, "hotovo", got["message"])
	require.Equal(t, []planner.Task{
		{Position: "grafik", Label: "Návrh", Hours: 2},
		{Position: "tlačiar", Label: "Tlač", Hours: 1.5},
	}, f.got.Tasks)
}

func TestCreateOrder_PartialFailure(t *testing.T) {
	f := &fakeScheduler{plan: &planner.Plan{Name: "X", Errors: []string{"Nenašiel sa zamestnanec pre pozíciu: kuriér"}}}
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Planner: f})

	got := decode(t, m.Call(context.Background(), "create_order",
		`{"name":"X","deadline":"2026-10-23T16:00:00","tasks":[{"position":"kuriér","label":"Doručenie","duration":1}]}`))
	require.Equal(t, false, got["ok"])
	require.Equal(t, []any{"Nenašiel sa zamestnanec pre pozíciu: kuriér"}, got["errors"])
}

func TestCreateOrder_Validation(t *testing.T) {
	f := &fakeScheduler{}
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Planner: f})

	got := decode(t, m.Call(context.Background(), "create_order", `{"name":"X","deadline":"2026-10-23","tasks":[]}`))
	require.Equal(t, false, got["ok"])
	require.Equal(t, "invalid arguments: tasks failed min=1", got["error"])

	got = decode(t, m.Call(context.Background(), "create_order",
		`{"name":"X","deadline":"2026-10-23","tasks":[{"position":"grafik","label":"Návrh","duration":0}]}`))
	require.Equal(t, "invalid arguments: duration failed gt=0", got["error"])
}

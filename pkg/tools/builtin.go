package tools

import "time"

// Deps are the collaborators behind the built-in tools. A nil field leaves the
// corresponding tools unregistered.
type Deps struct {
	Calendar CalendarBackend
	Weather  WeatherSource
	Search   Searcher
	Planner  Scheduler
	Now      func() time.Time
}

// RegisterBuiltins registers every built-in tool whose collaborator is set.
func RegisterBuiltins(m *ToolManager, d Deps) {
	var ts []Tool
	if d.Calendar != nil {
		ts = append(ts, CalendarTools(d.Calendar)...)
	}
	if d.Weather != nil {
		ts = append(ts, WeatherTools(d.Weather, d.Now)...)
	}
	if d.Search != nil {
		ts = append(ts, WebSearchTool(d.Search))
	}
	if d.Planner != nil {
		ts = append(ts, CreateOrderTool(d.Planner))
	}
	for _, t := range ts {
		m.RegisterTool(t)
	}
}

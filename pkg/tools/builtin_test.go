package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterBuiltins_SchemasHaveProperties(t *testing.T) {
	m := NewToolManager()
	RegisterBuiltins(m, Deps{
		Calendar: &fakeCalendar{},
		Weather:  &fakeWeather{},
		Search:   &fakeSearcher{},
		Planner:  &fakeScheduler{},
		Now:      monday,
	})

	defs := m.Definitions()
	require.Len(t, defs, 13)
	for _, d := range defs {
		b, err := json.Marshal(d.Function.Parameters)
		require.NoError(t, err, d.Function.Name)

		var schema map[string]any
		require.NoError(t, json.Unmarshal(b, &schema), d.Function.Name)
		require.Equal(t, "object", schema["type"], d.Function.Name)
		require.IsType(t, map[string]any{}, schema["properties"], d.Function.Name)
	}
}

func TestRegisterBuiltins_SkipsMissingCollaborators(t *testing.T) {
	m := NewToolManager()
	RegisterBuiltins(m, Deps{Calendar: &fakeCalendar{}})

	for _, d := range m.Definitions() {
		require.NotEqual(t, "web_search", d.Function.Name)
		require.NotEqual(t, "get_weather", d.Function.Name)
	}
}

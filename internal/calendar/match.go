package calendar

import "strings"

// FindByName returns the first calendar whose name or summary contains term,
// ignoring case. There is no ranking: order of cals decides.
func FindByName(cals []Calendar, term string) (Calendar, bool) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return Calendar{}, false
	}
	for _, c := range cals {
		if strings.Contains(strings.ToLower(c.Name), needle) ||
			(c.Summary != "" && strings.Contains(strings.ToLower(c.Summary), needle)) {
			return c, true
		}
	}
	return Calendar{}, false
}

// Names lists calendar names in order, falling back to the summary.
func Names(cals []Calendar) []string {
	names := make([]string, 0, len(cals))
	for _, c := range cals {
		if c.Name != "" {
			names = append(names, c.Name)
		} else {
			names = append(names, c.Summary)
		}
	}
	return names
}

// NotFound is the payload handed back when a calendar name cannot be resolved.
func NotFound(term string, cals []Calendar) Result {
	return Result{
		"ok":                 false,
		"error":              `Nenašiel som kalendár s názvom "` + term + `"`,
		"availableCalendars": Names(cals),
	}
}

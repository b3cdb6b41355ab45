package planner

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const skDateTime = "2. 1. 2006 15:04"

func hours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func backwardMessage(p *Plan, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vytvorené %d úloh:\n\n", len(p.Created))
	for _, c := range p.Created {
		fmt.Fprintf(&b, "• %s\n  %s\n  %s - %s\n\n", c.Task, c.Calendar,
			c.Start.In(loc).Format(skDateTime), c.End.In(loc).Format(skDateTime))
	}
	if len(p.Errors) > 0 {
		fmt.Fprintf(&b, "\nChyby:\n%s", strings.Join(p.Errors, "\n"))
	}
	return b.String()
}

func forwardMessage(p *Plan, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Zákazka \"%s\" bola vytvorená!\n\n", p.Name)
	fmt.Fprintf(&b, "Začiatok výroby: %s\n", p.Start.In(loc).Format(skDateTime))
	fmt.Fprintf(&b, "Dokončenie: %s\n", p.End.In(loc).Format(skDateTime))
	fmt.Fprintf(&b, "Celková dĺžka: %sh\n\n", hours(p.TotalHours))
	fmt.Fprintf(&b, "%d procesov (sekvenčne, na seba nadväzujúce):\n\n", len(p.Created))
	for i, c := range p.Created {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s → %s\n   %sh\n", i+1, c.Task, c.Calendar,
			c.Start.In(loc).Format(skDateTime), c.End.In(loc).Format("15:04"), hours(c.Hours))
		if i < len(p.Created)-1 {
			b.WriteString("   Musí byť hotové pred začatím ďalšieho procesu\n")
		}
		b.WriteString("\n")
	}
	if len(p.Errors) > 0 {
		fmt.Fprintf(&b, "\nChyby (%d):\n%s", len(p.Errors), strings.Join(p.Errors, "\n"))
	}
	return b.String()
}

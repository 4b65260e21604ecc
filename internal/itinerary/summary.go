package itinerary

import (
	"fmt"
	"strings"
)

// SpeechSummary flattens an itinerary into lines suitable for reading aloud:
// destination, date range and day count, then each day's activities as
// "time: title".
func SpeechSummary(p *Payload) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	m := p.Meta
	if m.Destination != "" {
		fmt.Fprintf(&b, "Trip to %s.", m.Destination)
	} else {
		b.WriteString("Your itinerary.")
	}
	switch {
	case m.StartDate != "" && m.EndDate != "":
		fmt.Fprintf(&b, " From %s to %s.", m.StartDate, m.EndDate)
	case m.StartDate != "":
		fmt.Fprintf(&b, " Starting %s.", m.StartDate)
	}
	days := m.Days
	if days == 0 {
		days = len(p.Itinerary)
	}
	if days == 1 {
		b.WriteString(" 1 day.")
	} else if days > 1 {
		fmt.Fprintf(&b, " %d days.", days)
	}
	for _, d := range p.Itinerary {
		b.WriteString("\n")
		if d.Date != "" {
			fmt.Fprintf(&b, "Day %d, %s.", d.Day, d.Date)
		} else {
			fmt.Fprintf(&b, "Day %d.", d.Day)
		}
		for _, a := range d.Activities {
			b.WriteString("\n")
			if a.Time != "" {
				fmt.Fprintf(&b, "%s: %s", a.Time, a.Title)
			} else {
				b.WriteString(a.Title)
			}
		}
	}
	return b.String()
}

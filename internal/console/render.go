package console

import (
	"fmt"
	"io"
	"strings"

	"itinerary-voice-chat/internal/chat"
	"itinerary-voice-chat/internal/itinerary"
	"itinerary-voice-chat/internal/markdown"
)

const (
	bold  = "\033[1m"
	dim   = "\033[2m"
	red   = "\033[31m"
	reset = "\033[0m"
)

// Renderer prints chat messages and itinerary cards to a terminal.
type Renderer struct {
	w     io.Writer
	color bool
}

func NewRenderer(w io.Writer, color bool) *Renderer {
	return &Renderer{w: w, color: color}
}

func (r *Renderer) style(code, s string) string {
	if !r.color || s == "" {
		return s
	}
	return code + s + reset
}

func (r *Renderer) spans(spans []markdown.Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Bold {
			b.WriteString(r.style(bold, s.Text))
		} else {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Blocks prints rendered markdown, indenting every line by indent.
func (r *Renderer) Blocks(blocks []markdown.Block, indent string) {
	for _, b := range blocks {
		switch b.Kind {
		case markdown.Heading:
			fmt.Fprintf(r.w, "%s%s\n", indent, r.style(bold, r.spansText(b.Spans)))
		case markdown.List:
			for _, item := range b.Items {
				fmt.Fprintf(r.w, "%s  • %s\n", indent, r.spans(item))
			}
		case markdown.Spacer:
			fmt.Fprintln(r.w)
		default:
			fmt.Fprintf(r.w, "%s%s\n", indent, r.spans(b.Spans))
		}
	}
}

func (r *Renderer) spansText(spans []markdown.Span) string {
	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "")
}

// Message prints one chat message. Itinerary messages also print the current day.
func (r *Renderer) Message(m chat.Message, v *itinerary.Viewer) {
	switch m.Role {
	case chat.RoleUser:
		fmt.Fprintf(r.w, "%s %s\n", r.style(bold, "You:"), m.Content)
		return
	case chat.RoleError:
		fmt.Fprintf(r.w, "%s %s\n", r.style(red, "Error:"), m.Content)
		return
	}
	fmt.Fprintln(r.w, r.style(bold, "Assistant:"))
	if strings.TrimSpace(m.Content) != "" {
		r.Blocks(m.Blocks(), "  ")
	}
	if m.Itinerary != nil && v != nil {
		r.Itinerary(v)
	}
}

// Itinerary prints the trip header and the viewer's current day.
func (r *Renderer) Itinerary(v *itinerary.Viewer) {
	p := v.Payload()
	title := "Your trip"
	if p.Meta.Destination != "" {
		title = "Trip to " + p.Meta.Destination
	}
	fmt.Fprintf(r.w, "  %s\n", r.style(bold, title))
	if p.Meta.StartDate != "" || p.Meta.EndDate != "" {
		fmt.Fprintf(r.w, "  %s\n", r.style(dim, strings.Trim(p.Meta.StartDate+" → "+p.Meta.EndDate, " →")))
	}
	r.Day(v.Day())
	if s := p.CalendarText(); s != "" {
		fmt.Fprintf(r.w, "  Calendar: %s\n", s)
	}
	if s := p.NextActionText(); s != "" {
		fmt.Fprintf(r.w, "  Next: %s\n", s)
	}
}

// Day prints one day card. Activities are numbered for the /img command.
func (r *Renderer) Day(d itinerary.DayView) {
	if d.Count == 0 {
		fmt.Fprintln(r.w, "  (no days in this itinerary)")
		return
	}
	head := d.Position()
	if d.Date != "" {
		head += " · " + d.Date
	}
	fmt.Fprintf(r.w, "  ── %s ──\n", r.style(bold, head))
	for i, a := range d.Activities {
		line := a.Title
		if a.Time != "" {
			line = a.Time + "  " + line
		}
		fmt.Fprintf(r.w, "  [%d] %s\n", i+1, r.style(bold, line))
		if a.Description != "" {
			fmt.Fprintf(r.w, "      %s\n", a.Description)
		}
		if a.Placeholder {
			fmt.Fprintf(r.w, "      %s\n", r.style(dim, "no photos"))
		} else {
			fmt.Fprintf(r.w, "      photo %d/%d: %s\n", a.ImageIndex+1, a.ImageCount, a.Image)
		}
		if a.Place != "" {
			fmt.Fprintf(r.w, "      at %s\n", a.Place)
		}
		if a.MapLink != "" {
			fmt.Fprintf(r.w, "      map: %s\n", a.MapLink)
		}
		if a.Booking != "" {
			fmt.Fprintf(r.w, "      book: %s\n", a.Booking)
		}
	}
	if d.Travel != "" {
		fmt.Fprintf(r.w, "  Travel: %s\n", d.Travel)
	}
	var nav []string
	if d.HasPrev {
		nav = append(nav, "/prev")
	}
	if d.HasNext {
		nav = append(nav, "/next")
	}
	if len(nav) > 0 {
		fmt.Fprintf(r.w, "  %s\n", r.style(dim, strings.Join(nav, "  ")))
	}
}

// Notice prints a status line.
func (r *Renderer) Notice(text string) {
	fmt.Fprintf(r.w, "%s\n", r.style(dim, "· "+text))
}

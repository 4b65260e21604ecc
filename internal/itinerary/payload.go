package itinerary

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Payload is the structured multi-day plan the assistant may return instead of text.
type Payload struct {
	Meta            Meta            `json:"meta"`
	Itinerary       []DayPlan       `json:"itinerary"`
	CalendarPreview json.RawMessage `json:"calendar_preview,omitempty"`
	NextAction      json.RawMessage `json:"next_action,omitempty"`
}

type Meta struct {
	Timezone    string `json:"timezone,omitempty"`
	Destination string `json:"destination,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Days        int    `json:"days,omitempty"`
}

type DayPlan struct {
	Day        int             `json:"day"`
	Date       string          `json:"date,omitempty"`
	Activities []Activity      `json:"activities"`
	Travel     json.RawMessage `json:"travel,omitempty"`
}

type Activity struct {
	ID          string    `json:"activity_id"`
	Title       string    `json:"title"`
	Time        string    `json:"time,omitempty"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Booking     string    `json:"booking,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

type Location struct {
	Name    string   `json:"name,omitempty"`
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	PlaceID string   `json:"place_id,omitempty"`
}

// HasCoordinates reports whether both lat and lon are present.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Lat != nil && l.Lon != nil
}

// CalendarText returns the calendar preview when it can be shown as text.
func (p *Payload) CalendarText() string { return rawText(p.CalendarPreview) }

// NextActionText returns the suggested follow-up when it can be shown as text.
func (p *Payload) NextActionText() string { return rawText(p.NextAction) }

// TravelText returns the day's travel note when it can be shown as text.
func (d *DayPlan) TravelText() string { return rawText(d.Travel) }

// decodePayload builds a Payload from an already validated object. Inner fields of
// the wrong type are coerced where that is unambiguous and dropped otherwise.
func decodePayload(obj map[string]any) *Payload {
	p := &Payload{
		CalendarPreview: rawOf(obj["calendar_preview"]),
		NextAction:      rawOf(obj["next_action"]),
	}
	if meta, ok := obj["meta"].(map[string]any); ok {
		p.Meta = Meta{
			Timezone:    str(meta["timezone"]),
			Destination: str(meta["destination"]),
			StartDate:   str(meta["start_date"]),
			EndDate:     str(meta["end_date"]),
			Days:        integer(meta["days"]),
		}
	}
	days, _ := obj["itinerary"].([]any)
	p.Itinerary = make([]DayPlan, 0, len(days))
	for i, d := range days {
		dm, ok := d.(map[string]any)
		if !ok {
			continue
		}
		day := DayPlan{
			Day:    integer(dm["day"]),
			Date:   str(dm["date"]),
			Travel: rawOf(dm["travel"]),
		}
		if day.Day == 0 {
			day.Day = i + 1
		}
		acts, _ := dm["activities"].([]any)
		day.Activities = make([]Activity, 0, len(acts))
		for _, a := range acts {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			day.Activities = append(day.Activities, decodeActivity(am))
		}
		p.Itinerary = append(p.Itinerary, day)
	}
	return p
}

func decodeActivity(am map[string]any) Activity {
	act := Activity{
		ID:          str(am["activity_id"]),
		Title:       str(am["title"]),
		Time:        str(am["time"]),
		Description: str(am["description"]),
		Booking:     str(am["booking"]),
	}
	if imgs, ok := am["images"].([]any); ok {
		for _, img := range imgs {
			if s, ok := img.(string); ok && strings.TrimSpace(s) != "" {
				act.Images = append(act.Images, s)
			}
		}
	}
	if lm, ok := am["location"].(map[string]any); ok {
		act.Location = &Location{
			Name:    str(lm["name"]),
			Address: str(lm["address"]),
			Lat:     float(lm["lat"]),
			Lon:     float(lm["lon"]),
			PlaceID: str(lm["place_id"]),
		}
	}
	return act
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func integer(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			return n
		}
	}
	return 0
}

func float(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return &f
		}
	}
	return nil
}

func rawOf(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// rawText renders an opaque field as text: strings as-is, objects through their
// "text" or "summary" member.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if s := str(t["text"]); s != "" {
			return s
		}
		return str(t["summary"])
	}
	return ""
}

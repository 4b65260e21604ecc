package itinerary

import (
	"fmt"
	"sync"
)

// Viewer holds the paging state of one itinerary message: the current day and, per
// activity, the current image. Each message owns its own Viewer.
type Viewer struct {
	mu      sync.Mutex
	payload *Payload
	day     int
	images  map[imageKey]int
}

// imageKey identifies an activity by its position in a day. Activity ids are not
// trusted to be unique or present.
type imageKey struct {
	day      int
	activity int
}

// ActivityView is an activity as it is displayed on the current day.
type ActivityView struct {
	ID          string `json:"activityId"`
	Position    int    `json:"position"`
	Title       string `json:"title"`
	Time        string `json:"time,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	ImageIndex  int    `json:"imageIndex"`
	ImageCount  int    `json:"imageCount"`
	Placeholder bool   `json:"placeholder"`
	MapLink     string `json:"mapLink,omitempty"`
	Booking     string `json:"booking,omitempty"`
	Place       string `json:"place,omitempty"`
}

// DayView is the derived view of the current day.
type DayView struct {
	Index      int            `json:"index"`
	Count      int            `json:"count"`
	Day        int            `json:"day"`
	Date       string         `json:"date,omitempty"`
	Travel     string         `json:"travel,omitempty"`
	Activities []ActivityView `json:"activities"`
	HasPrev    bool           `json:"hasPrev"`
	HasNext    bool           `json:"hasNext"`
}

func NewViewer(p *Payload) *Viewer {
	return &Viewer{payload: p, images: make(map[imageKey]int)}
}

func (v *Viewer) Payload() *Payload { return v.payload }

func (v *Viewer) DayCount() int {
	if v.payload == nil {
		return 0
	}
	return len(v.payload.Itinerary)
}

func (v *Viewer) DayIndex() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.day
}

// Next moves to the following day; it does nothing on the last day.
func (v *Viewer) Next() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.day >= v.DayCount()-1 {
		return false
	}
	v.day++
	return true
}

// Prev moves to the preceding day; it does nothing on the first day.
func (v *Viewer) Prev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.day <= 0 {
		return false
	}
	v.day--
	return true
}

// NextImage advances the gallery of the activity at position pos (0-based) on the
// current day, wrapping to the first image. It returns the new index, or false when
// there is no such activity.
func (v *Viewer) NextImage(pos int) (int, bool) { return v.stepImage(pos, 1) }

// PrevImage moves the gallery back, wrapping to the last image.
func (v *Viewer) PrevImage(pos int) (int, bool) { return v.stepImage(pos, -1) }

func (v *Viewer) stepImage(pos, delta int) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	act := v.activityLocked(pos)
	if act == nil {
		return 0, false
	}
	key := imageKey{day: v.day, activity: pos}
	idx := WrapIndex(v.images[key]+delta, len(act.Images))
	v.images[key] = idx
	return idx, true
}

func (v *Viewer) activityLocked(pos int) *Activity {
	if v.day >= v.DayCount() {
		return nil
	}
	acts := v.payload.Itinerary[v.day].Activities
	if pos < 0 || pos >= len(acts) {
		return nil
	}
	return &acts[pos]
}

// ActivityIndex returns the position of the first activity with the given id on
// the current day.
func (v *Viewer) ActivityIndex(id string) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.day >= v.DayCount() {
		return 0, false
	}
	for i, a := range v.payload.Itinerary[v.day].Activities {
		if a.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Day returns the view of the current day.
func (v *Viewer) Day() DayView {
	v.mu.Lock()
	defer v.mu.Unlock()
	count := v.DayCount()
	view := DayView{Index: v.day, Count: count, Activities: []ActivityView{}}
	if count == 0 {
		return view
	}
	d := v.payload.Itinerary[v.day]
	view.Day = d.Day
	view.Date = d.Date
	view.Travel = d.TravelText()
	view.HasPrev = v.day > 0
	view.HasNext = v.day < count-1
	for i, a := range d.Activities {
		idx := WrapIndex(v.images[imageKey{day: v.day, activity: i}], len(a.Images))
		av := ActivityView{
			ID:          a.ID,
			Position:    i,
			Title:       a.Title,
			Time:        a.Time,
			Description: a.Description,
			ImageIndex:  idx,
			ImageCount:  len(a.Images),
			Placeholder: len(a.Images) == 0,
			MapLink:     MapLink(a.Location),
			Booking:     a.Booking,
		}
		if !av.Placeholder {
			av.Image = a.Images[idx]
		}
		if a.Location != nil {
			av.Place = a.Location.Name
			if av.Place == "" {
				av.Place = a.Location.Address
			}
		}
		view.Activities = append(view.Activities, av)
	}
	return view
}

// Position formats the day position, e.g. "Day 2 of 5".
func (d DayView) Position() string {
	return fmt.Sprintf("Day %d of %d", d.Index+1, d.Count)
}

// WrapIndex maps i into [0, n) with wrap-around in both directions. For n <= 0 it
// returns 0.
func WrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i % n) + n) % n
}

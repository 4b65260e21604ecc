package console

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"itinerary-voice-chat/internal/chat"
	"itinerary-voice-chat/internal/itinerary"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want Command
	}{
		{"  3 days in Rome ", Command{Kind: CmdSend, Text: "3 days in Rome"}},
		{"/next", Command{Kind: CmdNextDay}},
		{"/PREV", Command{Kind: CmdPrevDay}},
		{"/img 2 next", Command{Kind: CmdImage, Activity: 2, Forward: true}},
		{"/img 1 prev", Command{Kind: CmdImage, Activity: 1}},
		{"/autoread on", Command{Kind: CmdAutoRead, On: true}},
		{"/autoread off", Command{Kind: CmdAutoRead}},
		{"/pause", Command{Kind: CmdPause}},
		{"/resume", Command{Kind: CmdResume}},
		{"/stop", Command{Kind: CmdStop}},
		{"/say", Command{Kind: CmdSay}},
		{"/exit", Command{Kind: CmdQuit}},
	}
	for _, c := range cases {
		got, err := ParseCommand(c.in)
		if err != nil {
			t.Errorf("%q: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q: got %+v, want %+v", c.in, got, c.want)
		}
	}
	for _, bad := range []string{"/img", "/img x next", "/img 0 next", "/img 1 sideways", "/autoread", "/autoread maybe", "/dance"} {
		if _, err := ParseCommand(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

const romeReply = `{
  "meta": {"destination": "Rome", "start_date": "2025-05-01", "end_date": "2025-05-02", "days": 2},
  "itinerary": [
    {"day": 1, "date": "2025-05-01", "activities": [
      {"activity_id": "a1", "title": "Colosseum", "time": "09:00", "description": "Skip-the-line tour",
       "images": ["c1.jpg", "c2.jpg"], "location": {"name": "Colosseo", "lat": 41.89, "lon": 12.49}},
      {"activity_id": "a2", "title": "Trastevere dinner"}
    ], "travel": "Metro B"},
    {"day": 2, "activities": [{"activity_id": "b1", "title": "Vatican Museums"}]}
  ],
  "next_action": "Book the Colosseum tickets"
}`

func romeMessage(t *testing.T) (chat.Message, *itinerary.Viewer) {
	t.Helper()
	raw, _ := json.Marshal(romeReply)
	reply := itinerary.NormalizeRaw(raw)
	if !reply.IsItinerary() {
		t.Fatal("fixture should be an itinerary")
	}
	m := chat.Message{ID: "m1", Role: chat.RoleAssistant, Itinerary: reply.Itinerary}
	return m, itinerary.NewViewer(reply.Itinerary)
}

func TestRenderItineraryMessage(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)
	m, v := romeMessage(t)
	v.NextImage(0)
	r.Message(m, v)
	out := buf.String()
	for _, want := range []string{
		"Trip to Rome",
		"2025-05-01 → 2025-05-02",
		"Day 1 of 2 · 2025-05-01",
		"[1] 09:00  Colosseum",
		"photo 2/2: c2.jpg",
		"map: https://www.google.com/maps/search/?api=1&query=41.89,12.49",
		"[2] Trastevere dinner",
		"no photos",
		"Travel: Metro B",
		"/next",
		"Next: Book the Colosseum tickets",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("color disabled but escape codes printed")
	}
}

func TestRenderMarkdownAndRoles(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true)
	r.Message(chat.Message{Role: chat.RoleUser, Content: "hi"}, nil)
	r.Message(chat.Message{Role: chat.RoleAssistant, Content: "### Plan\n* **Day 1** Rome\n* Day 2\n\nEnjoy"}, nil)
	r.Message(chat.Message{Role: chat.RoleError, Content: "rate limited"}, nil)
	out := buf.String()
	for _, want := range []string{
		"You:",
		bold + "Plan" + reset,
		"  • " + bold + "Day 1" + reset + " Rome",
		"  • Day 2",
		"  Enjoy",
		red + "Error:" + reset + " rate limited",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%q", want, out)
		}
	}
}

func TestRenderEmptyItinerary(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf, false).Day(itinerary.DayView{})
	if !strings.Contains(buf.String(), "no days") {
		t.Fatalf("out = %q", buf.String())
	}
}

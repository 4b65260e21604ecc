package chat

import (
	"strings"
	"time"

	"itinerary-voice-chat/internal/itinerary"
	"itinerary-voice-chat/internal/markdown"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// Message is one chat bubble. It is never modified after it is appended.
type Message struct {
	ID        string             `json:"id"`
	Role      Role               `json:"role"`
	Content   string             `json:"content"`
	Itinerary *itinerary.Payload `json:"itinerary,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

func (m Message) HasItinerary() bool { return m.Itinerary != nil }

// Blocks renders the message content for display.
func (m Message) Blocks() []markdown.Block { return markdown.Render(m.Content) }

// SpokenText is what auto-read says for a message: the plain-text reduction of the
// content followed by the flattened itinerary, if any.
func SpokenText(m Message) string {
	parts := make([]string, 0, 2)
	if s := markdown.PlainText(m.Content); s != "" {
		parts = append(parts, s)
	}
	if m.Itinerary != nil {
		parts = append(parts, itinerary.SpeechSummary(m.Itinerary))
	}
	return strings.Join(parts, "\n")
}

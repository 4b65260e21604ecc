package chat

import "sync"

// History is the ordered, append-only list of messages of one session. When
// maxMessages is positive the oldest messages are dropped past that size.
type History struct {
	mu          sync.RWMutex
	messages    []Message
	maxMessages int
}

func NewHistory(maxMessages int) *History {
	return &History{maxMessages: maxMessages}
}

func (h *History) Append(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	h.trimLocked()
}

// List returns a copy of the messages in append order.
func (h *History) List() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Get(id string) (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, m := range h.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// LastItinerary returns the most recent message with an itinerary.
func (h *History) LastItinerary() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].HasItinerary() {
			return h.messages[i], true
		}
	}
	return Message{}, false
}

func (h *History) trimLocked() {
	if h.maxMessages <= 0 {
		return
	}
	if len(h.messages) > h.maxMessages {
		h.messages = append([]Message(nil), h.messages[len(h.messages)-h.maxMessages:]...)
	}
}

package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"itinerary-voice-chat/internal/itinerary"
)

var (
	ErrEmptyInput = errors.New("chat: empty input")
	ErrBusy       = errors.New("chat: a message is already being sent")
)

// Speaker is the part of the speech bridge the controller drives.
type Speaker interface {
	// MarkSent tells the speaker an explicit send happened.
	MarkSent()
	// ReadReply reads a reply aloud when auto-read is on.
	ReadReply(text string)
}

type Options struct {
	Backend     Backend
	Speaker     Speaker
	MaxMessages int
	// OnAppend is called after every appended message.
	OnAppend func(Message)
	// OnPending is called when a send starts and when it settles.
	OnPending func(bool)
}

// Controller owns one conversation: the draft, the message history, the pending
// flag and the itinerary viewers of its messages.
type Controller struct {
	mu      sync.Mutex
	opts    Options
	history *History
	draft   string
	pending bool
	viewers map[string]*itinerary.Viewer
}

func NewController(opts Options) *Controller {
	return &Controller{
		opts:    opts,
		history: NewHistory(opts.MaxMessages),
		viewers: make(map[string]*itinerary.Viewer),
	}
}

// SetObservers replaces the append and pending callbacks, for example when a
// client reconnects to an existing session.
func (c *Controller) SetObservers(onAppend func(Message), onPending func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.OnAppend = onAppend
	c.opts.OnPending = onPending
}

// SetDraft replaces the input text. Dictation uses it to show live transcripts.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Controller) Messages() []Message { return c.history.List() }

// Viewer returns the itinerary viewer owned by a message.
func (c *Controller) Viewer(messageID string) (*itinerary.Viewer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.viewers[messageID]
	return v, ok
}

// LatestViewer returns the viewer of the newest itinerary message.
func (c *Controller) LatestViewer() (Message, *itinerary.Viewer, bool) {
	msg, ok := c.history.LastItinerary()
	if !ok {
		return Message{}, nil, false
	}
	v, ok := c.Viewer(msg.ID)
	return msg, v, ok
}

// Submit sets the draft and sends it.
func (c *Controller) Submit(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyInput
	}
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.draft = text
	c.mu.Unlock()
	return c.Send(ctx)
}

// Send posts the current draft. Blank drafts and sends while another is in flight
// are rejected without touching any state. Otherwise the user message is appended
// at once and exactly one assistant or error message follows; that message is
// returned. Backend failures are reported as error messages, not as errors.
func (c *Controller) Send(ctx context.Context) (Message, error) {
	c.mu.Lock()
	input := strings.TrimSpace(c.draft)
	if input == "" {
		c.mu.Unlock()
		return Message{}, ErrEmptyInput
	}
	if c.pending {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.pending = true
	c.draft = ""
	userMsg := newMessage(RoleUser, input, nil)
	c.history.Append(userMsg)
	speaker := c.opts.Speaker
	c.mu.Unlock()

	c.notifyAppend(userMsg)
	c.notifyPending(true)
	if speaker != nil {
		speaker.MarkSent()
	}

	var msg Message
	reply, err := c.opts.Backend.Ask(ctx, input)
	if err != nil {
		log.Printf("[chat] request failed: %v", err)
		msg = newMessage(RoleError, Describe(err), nil)
	} else {
		msg = newMessage(RoleAssistant, reply.Text, reply.Itinerary)
	}

	c.mu.Lock()
	if msg.Itinerary != nil {
		c.viewers[msg.ID] = itinerary.NewViewer(msg.Itinerary)
	}
	c.history.Append(msg)
	c.pruneViewersLocked()
	c.pending = false
	c.mu.Unlock()

	c.notifyAppend(msg)
	c.notifyPending(false)
	if speaker != nil {
		speaker.ReadReply(SpokenText(msg))
	}
	return msg, nil
}

// pruneViewersLocked drops viewers of messages trimmed from the history.
func (c *Controller) pruneViewersLocked() {
	if c.opts.MaxMessages <= 0 {
		return
	}
	for id := range c.viewers {
		if _, ok := c.history.Get(id); !ok {
			delete(c.viewers, id)
		}
	}
}

func (c *Controller) notifyAppend(m Message) {
	c.mu.Lock()
	f := c.opts.OnAppend
	c.mu.Unlock()
	if f != nil {
		f(m)
	}
}

func (c *Controller) notifyPending(p bool) {
	c.mu.Lock()
	f := c.opts.OnPending
	c.mu.Unlock()
	if f != nil {
		f(p)
	}
}

func newMessage(role Role, content string, p *itinerary.Payload) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Itinerary: p,
		CreatedAt: time.Now().UTC(),
	}
}

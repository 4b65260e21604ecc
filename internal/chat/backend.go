package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"itinerary-voice-chat/internal/itinerary"
	"itinerary-voice-chat/internal/types"
)

// Backend answers one chat input.
type Backend interface {
	Ask(ctx context.Context, input string) (itinerary.Reply, error)
}

// RequestError is a failed exchange with the itinerary service. Message is meant
// for the user.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Err }

// Describe returns the human-readable text shown in an error message.
func Describe(err error) string {
	var re *RequestError
	if errors.As(err, &re) && strings.TrimSpace(re.Message) != "" {
		return re.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The itinerary service took too long to answer. Please try again."
	}
	return "Something went wrong: " + err.Error()
}

// HTTPBackend posts {input} to the /api/itinerary endpoint.
type HTTPBackend struct {
	url        string
	sessionID  string
	httpClient *http.Client
}

func NewHTTPBackend(url, sessionID string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPBackend{
		url:        url,
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) Ask(ctx context.Context, input string) (itinerary.Reply, error) {
	body, err := json.Marshal(types.ItineraryRequest{Input: input, SessionID: b.sessionID})
	if err != nil {
		return itinerary.Reply{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return itinerary.Reply{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return itinerary.Reply{}, &RequestError{
			Message: "Network error: could not reach the itinerary service.",
			Err:     err,
		}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return itinerary.Reply{}, &RequestError{
			Status:  resp.StatusCode,
			Message: "Network error: the response was interrupted.",
			Err:     err,
		}
	}
	return DecodeResponse(resp.StatusCode, respBody)
}

// Forwarder sends a raw JSON body to the webhook and returns its status and body.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) (int, []byte, error)
}

// WebhookBackend calls the webhook in-process, skipping the HTTP hop through the
// proxy. It is used by server-side chat sessions.
type WebhookBackend struct {
	forwarder Forwarder
	sessionID string
}

func NewWebhookBackend(f Forwarder, sessionID string) *WebhookBackend {
	return &WebhookBackend{forwarder: f, sessionID: sessionID}
}

func (b *WebhookBackend) Ask(ctx context.Context, input string) (itinerary.Reply, error) {
	body, err := json.Marshal(types.ItineraryRequest{Input: input, SessionID: b.sessionID})
	if err != nil {
		return itinerary.Reply{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	status, respBody, err := b.forwarder.Forward(ctx, body)
	if err != nil {
		return itinerary.Reply{}, &RequestError{Message: "Webhook trigger failed", Err: err}
	}
	return DecodeResponse(status, respBody)
}

// errorBody covers both {"error": ...} from the backend and {"message": ...} from
// the proxy failure path.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DecodeResponse interprets a backend answer. Non-2xx statuses and unreadable
// bodies become RequestErrors; everything else is normalized into a Reply.
func DecodeResponse(status int, body []byte) (itinerary.Reply, error) {
	if status < 200 || status >= 300 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		msg := strings.TrimSpace(eb.Error)
		if msg == "" {
			msg = strings.TrimSpace(eb.Message)
		}
		if msg == "" {
			msg = fmt.Sprintf("Request failed with status %d.", status)
		}
		return itinerary.Reply{}, &RequestError{Status: status, Message: msg}
	}

	body = bytes.TrimSpace(body)
	var out types.ItineraryResponse
	if len(body) > 0 && body[0] == '[' {
		// n8n "respond to webhook" may wrap the item in an array
		var items []types.ItineraryResponse
		if err := json.Unmarshal(body, &items); err != nil {
			return itinerary.Reply{}, unreadable(status, err)
		}
		if len(items) > 0 {
			out = items[0]
		}
	} else if err := json.Unmarshal(body, &out); err != nil {
		return itinerary.Reply{}, unreadable(status, err)
	}
	if len(out.Output) == 0 && strings.TrimSpace(out.Error) != "" {
		return itinerary.Reply{}, &RequestError{Status: status, Message: out.Error}
	}
	return itinerary.NormalizeRaw(out.Output), nil
}

func unreadable(status int, err error) error {
	return &RequestError{
		Status:  status,
		Message: "The itinerary service sent a response that could not be read.",
		Err:     err,
	}
}

package types

import "encoding/json"

// ItineraryRequest is the body the chat client posts to /api/itinerary.
type ItineraryRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"sessionId,omitempty"`
}

// ItineraryResponse is what the webhook answers; Output is either a string or an
// object and is classified by the itinerary package.
type ItineraryResponse struct {
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// WebhookFailure is returned by the proxy when the upstream call fails.
type WebhookFailure struct {
	Message string `json:"message"`
}

type TTSRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

type VoicesResponse struct {
	Voices   []Voice `json:"voices"`
	Selected string  `json:"selected,omitempty"`
}

type TranscriptResponse struct {
	Transcript string `json:"transcript"`
}

// ClientFrame is a message sent by the browser over /ws.
type ClientFrame struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	// Activity is the position of an activity within the current day.
	Activity   int    `json:"activity,omitempty"`
	ActivityID string `json:"activityId,omitempty"`
	Action     string `json:"action,omitempty"`
	Enabled    bool   `json:"enabled,omitempty"`
	// Utterance identifies the speak command a speech_start or speech_end refers to.
	Utterance int                 `json:"utterance,omitempty"`
	Results   []TranscriptSegment `json:"results,omitempty"`
}

// TranscriptSegment is one piece of a browser recognition event.
type TranscriptSegment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// ServerFrame is a message pushed to the browser over /ws.
type ServerFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Message   any    `json:"message,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	View      any    `json:"view,omitempty"`
	Pending   *bool  `json:"pending,omitempty"`
	Text      string `json:"text,omitempty"`
	Voice     string `json:"voice,omitempty"`
	Lang      string `json:"lang,omitempty"`
	Utterance int    `json:"utterance,omitempty"`
	Interim   bool   `json:"interim,omitempty"`
}

package itinerary

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// NoResponseText is shown when the backend answered without any output.
const NoResponseText = "No response received."

type OutputKind int

const (
	OutputMissing OutputKind = iota
	OutputString
	OutputObject
	OutputOther
)

// Output is the backend's `output` field, classified once at the boundary.
type Output struct {
	Kind   OutputKind
	Text   string
	Object map[string]any
	Value  any
}

// Reply is what a chat message displays: either text or a structured itinerary.
type Reply struct {
	Text      string
	Itinerary *Payload
}

func (r Reply) IsItinerary() bool { return r.Itinerary != nil }

// ClassifyOutput resolves the raw `output` JSON into its tagged form.
func ClassifyOutput(raw json.RawMessage) Output {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Output{Kind: OutputMissing}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		// not JSON at all; show it as it came
		return Output{Kind: OutputString, Text: string(raw)}
	}
	switch t := v.(type) {
	case string:
		return Output{Kind: OutputString, Text: t}
	case map[string]any:
		return Output{Kind: OutputObject, Object: t}
	default:
		return Output{Kind: OutputOther, Value: t}
	}
}

// Normalize turns a classified output into a Reply. It never fails: anything that
// is not a valid itinerary is displayed as text.
func Normalize(out Output) Reply {
	switch out.Kind {
	case OutputString:
		return normalizeString(out.Text)
	case OutputObject:
		if p, ok := Validate(out.Object); ok {
			return Reply{Itinerary: p}
		}
		return Reply{Text: pretty(out.Object)}
	case OutputOther:
		return Reply{Text: pretty(out.Value)}
	default:
		return Reply{Text: NoResponseText}
	}
}

// NormalizeRaw is ClassifyOutput followed by Normalize.
func NormalizeRaw(raw json.RawMessage) Reply {
	return Normalize(ClassifyOutput(raw))
}

func normalizeString(s string) Reply {
	inner := StripFence(s)
	var v any
	if err := json.Unmarshal([]byte(inner), &v); err != nil {
		return Reply{Text: s}
	}
	if p, ok := Validate(v); ok {
		return Reply{Itinerary: p}
	}
	return Reply{Text: s}
}

var fenceRe = regexp.MustCompile("(?s)^\\s*```[A-Za-z0-9_+.-]*[ \\t]*\\r?\\n?(.*?)\\r?\\n?[ \\t]*```\\s*$")

// StripFence removes a surrounding triple-backtick block, with or without a
// language tag. Text without a fence is returned unchanged.
func StripFence(s string) string {
	m := fenceRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return strings.TrimSpace(m[1])
}

// Validate accepts v as an itinerary when it is an object with a `meta` key and an
// array-typed `itinerary` key.
func Validate(v any) (*Payload, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if _, ok := obj["meta"]; !ok {
		return nil, false
	}
	if _, ok := obj["itinerary"].([]any); !ok {
		return nil, false
	}
	return decodePayload(obj), true
}

func pretty(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// Package speech bridges a chat session to a speech synthesizer (output) and a
// speech recognizer (input). Both engines are injected and either may be absent;
// the Bridge keeps them from interfering with each other.
package speech

import (
	"errors"
	"strings"
	"time"
)

var ErrUnsupported = errors.New("speech: not supported")

type Voice struct {
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default,omitempty"`
}

type Utterance struct {
	Text  string
	Voice string
	Lang  string
}

// SpeakHandlers receive the lifecycle of one utterance. They may be called from
// any goroutine.
type SpeakHandlers struct {
	OnStart func()
	OnEnd   func()
}

// Synthesizer is a text-to-speech engine. Speak returns once the utterance is
// queued; playback is reported through the handlers.
type Synthesizer interface {
	Voices() []Voice
	Speak(u Utterance, h SpeakHandlers) error
	Cancel()
	Pause()
	Resume()
}

type RecognitionOptions struct {
	Continuous     bool
	InterimResults bool
	Lang           string
}

// Result is one segment of a recognition event.
type Result struct {
	Transcript string
	Final      bool
}

type RecognitionHandlers struct {
	// OnResult receives the segments of one recognition event.
	OnResult func([]Result)
	// OnEnd is called once when the session ends for any reason.
	OnEnd   func()
	OnError func(error)
}

// Recognizer is a speech-to-text engine running one session at a time.
type Recognizer interface {
	Start(opts RecognitionOptions, h RecognitionHandlers) error
	Stop()
}

// Support reports which speech capabilities are available.
type Support struct {
	Synthesis   bool `json:"synthesis"`
	Recognition bool `json:"recognition"`
}

// Notice is the inline message shown when a capability is missing, or "" when
// everything is available.
func (s Support) Notice() string {
	var missing []string
	if !s.Synthesis {
		missing = append(missing, "Text-to-speech is not supported here; auto-read is disabled.")
	}
	if !s.Recognition {
		missing = append(missing, "Speech recognition is not supported here; dictation is disabled.")
	}
	return strings.Join(missing, " ")
}

// Clock schedules callbacks. Tests inject a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock uses time.AfterFunc.
func RealClock() Clock { return realClock{} }

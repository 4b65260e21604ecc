package speech

import (
	"log"
	"strings"
	"sync"
	"time"
)

type Config struct {
	// TypingDebounce delays auto-read of the draft after the last keystroke.
	TypingDebounce time.Duration
	// RetryInterval is how often a read waiting for recognition to stop retries.
	RetryInterval time.Duration
	// Cooldown delays the reply read that follows a dictated message.
	Cooldown          time.Duration
	VoicePolls        int
	VoicePollInterval time.Duration
	PreferredVoice    string
	Lang              string
}

func DefaultConfig() Config {
	return Config{
		TypingDebounce:    800 * time.Millisecond,
		RetryInterval:     300 * time.Millisecond,
		Cooldown:          1200 * time.Millisecond,
		VoicePolls:        10,
		VoicePollInterval: 250 * time.Millisecond,
		PreferredVoice:    "Google",
		Lang:              "en-US",
	}
}

// Bridge coordinates one synthesizer and one recognizer for a chat session.
// Speech never starts while recognition is active.
type Bridge struct {
	mu sync.Mutex
	// speakMu serialises utterance starts so a late cancel only hits its own.
	speakMu sync.Mutex

	synth Synthesizer
	rec   Recognizer
	clock Clock
	cfg   Config

	voices    []Voice
	voice     Voice
	haveVoice bool

	autoRead       bool
	typingAutoRead bool

	speaking bool
	paused   bool
	gen      int
	// halt counts requests for silence (cancel, dictation, auto-read off, close).
	halt int

	listening bool
	final     string
	interim   string
	onText    func(string)
	// awaitSend is set when a dictation session ends: draft auto-read stays off
	// until the user sends explicitly.
	awaitSend bool
	// dictated marks that the message being answered was dictated.
	dictated bool

	// scheduled holds the debounce or cool-down timer; retry holds the timer of a
	// read waiting for recognition to stop.
	scheduled slot
	retry     slot
	closed    bool
}

// NewBridge wires the engines. synth and rec may be nil when unsupported.
func NewBridge(synth Synthesizer, rec Recognizer, clock Clock, cfg Config) *Bridge {
	if clock == nil {
		clock = RealClock()
	}
	return &Bridge{synth: synth, rec: rec, clock: clock, cfg: cfg}
}

func (b *Bridge) Support() Support {
	return Support{Synthesis: b.synth != nil, Recognition: b.rec != nil}
}

// SetAutoRead toggles reading replies aloud. Turning it off silences any active
// or pending speech.
func (b *Bridge) SetAutoRead(on bool) {
	b.mu.Lock()
	b.autoRead = on && b.synth != nil
	if b.autoRead {
		b.mu.Unlock()
		return
	}
	b.stopTimersLocked()
	b.speaking, b.paused = false, false
	b.gen++
	b.halt++
	b.mu.Unlock()
	if b.synth != nil {
		b.synth.Cancel()
	}
}

func (b *Bridge) AutoRead() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.autoRead
}

// SetTypingAutoRead toggles reading the draft aloud while typing.
func (b *Bridge) SetTypingAutoRead(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typingAutoRead = on && b.synth != nil
	if !b.typingAutoRead {
		b.scheduled.stop()
	}
}

func (b *Bridge) Speaking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speaking
}

func (b *Bridge) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *Bridge) Listening() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listening
}

// Speak reads text aloud on request. While recognition is active the read waits.
func (b *Bridge) Speak(text string) error {
	if b.synth == nil {
		return ErrUnsupported
	}
	b.speakWhenIdle(text)
	return nil
}

// Cancel stops active speech and drops anything scheduled.
func (b *Bridge) Cancel() {
	b.mu.Lock()
	b.stopTimersLocked()
	b.speaking, b.paused = false, false
	b.gen++
	b.halt++
	b.mu.Unlock()
	if b.synth != nil {
		b.synth.Cancel()
	}
}

func (b *Bridge) Pause() {
	b.mu.Lock()
	if !b.speaking || b.paused {
		b.mu.Unlock()
		return
	}
	b.paused = true
	b.mu.Unlock()
	b.synth.Pause()
}

func (b *Bridge) Resume() {
	b.mu.Lock()
	if !b.paused {
		b.mu.Unlock()
		return
	}
	b.paused = false
	b.mu.Unlock()
	b.synth.Resume()
}

// Listen starts a dictation session. onText receives the combined final and
// interim transcript, which replaces the draft. Any speech is cancelled first.
func (b *Bridge) Listen(onText func(string)) error {
	if b.rec == nil {
		return ErrUnsupported
	}
	b.mu.Lock()
	if b.listening {
		b.mu.Unlock()
		return nil
	}
	b.stopTimersLocked()
	b.speaking, b.paused = false, false
	b.gen++
	b.halt++
	b.listening = true
	b.final, b.interim = "", ""
	b.onText = onText
	b.mu.Unlock()

	if b.synth != nil {
		b.synth.Cancel()
	}
	err := b.rec.Start(RecognitionOptions{
		Continuous:     false,
		InterimResults: true,
		Lang:           b.cfg.Lang,
	}, RecognitionHandlers{
		OnResult: b.handleResults,
		OnEnd:    b.handleEnd,
		OnError: func(err error) {
			log.Printf("[speech] recognition error: %v", err)
		},
	})
	if err != nil {
		b.mu.Lock()
		b.listening = false
		b.onText = nil
		b.mu.Unlock()
		return err
	}
	return nil
}

// StopListening asks the recognizer to end the session; the end callback does the
// bookkeeping.
func (b *Bridge) StopListening() {
	if b.rec == nil {
		return
	}
	b.mu.Lock()
	listening := b.listening
	b.mu.Unlock()
	if listening {
		b.rec.Stop()
	}
}

func (b *Bridge) handleResults(results []Result) {
	b.mu.Lock()
	if !b.listening {
		b.mu.Unlock()
		return
	}
	var interim strings.Builder
	for _, r := range results {
		if r.Final {
			b.final += r.Transcript
		} else {
			interim.WriteString(r.Transcript)
		}
	}
	b.interim = interim.String()
	text := b.final + b.interim
	onText := b.onText
	b.mu.Unlock()
	if onText != nil {
		onText(text)
	}
}

func (b *Bridge) handleEnd() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.listening {
		return
	}
	b.listening = false
	b.interim = ""
	b.onText = nil
	b.scheduled.stop()
	b.awaitSend = true
}

// DraftChanged schedules a debounced read of the draft when typing auto-read is
// on. It is suppressed during dictation and until the dictated text is sent.
func (b *Bridge) DraftChanged(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.typingAutoRead || b.closed {
		return
	}
	b.scheduled.stop()
	if b.listening || b.awaitSend || strings.TrimSpace(text) == "" {
		return
	}
	b.scheduleLocked(&b.scheduled, b.cfg.TypingDebounce, func() { b.speakWhenIdle(text) })
}

// MarkSent records an explicit send. It releases the post-dictation hold and
// remembers whether the sent text was dictated.
func (b *Bridge) MarkSent() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dictated = b.awaitSend || b.listening
	b.awaitSend = false
	b.scheduled.stop()
}

// ReadReply reads a reply when auto-read is on. After a dictated message the read
// waits for the cool-down first.
func (b *Bridge) ReadReply(text string) {
	b.mu.Lock()
	if !b.autoRead || b.closed || strings.TrimSpace(text) == "" {
		b.mu.Unlock()
		return
	}
	if b.dictated {
		b.dictated = false
		b.scheduleLocked(&b.scheduled, b.cfg.Cooldown, func() { b.speakWhenIdle(text) })
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.speakWhenIdle(text)
}

// speakWhenIdle speaks now, or retries on RetryInterval while recognition runs.
func (b *Bridge) speakWhenIdle(text string) {
	b.speakMu.Lock()
	defer b.speakMu.Unlock()
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.listening {
		b.scheduleLocked(&b.retry, b.cfg.RetryInterval, func() { b.speakWhenIdle(text) })
		b.mu.Unlock()
		return
	}
	b.retry.stop()
	b.gen++
	gen, halt := b.gen, b.halt
	utt := Utterance{Text: text, Lang: b.cfg.Lang}
	if b.haveVoice {
		utt.Voice = b.voice.Name
		if b.voice.Lang != "" {
			utt.Lang = b.voice.Lang
		}
	}
	b.mu.Unlock()

	b.synth.Cancel()
	if !b.unhalted(halt) {
		return
	}
	err := b.synth.Speak(utt, SpeakHandlers{
		OnStart: func() {
			if b.Listening() {
				b.synth.Cancel()
				return
			}
			b.setSpeaking(gen, true)
		},
		OnEnd: func() { b.setSpeaking(gen, false) },
	})
	if err != nil {
		log.Printf("[speech] speak failed: %v", err)
		return
	}
	// dictation or a cancel may have started while the utterance was queued
	if !b.unhalted(halt) {
		b.synth.Cancel()
	}
}

// unhalted reports whether nothing asked for silence since halt was read.
func (b *Bridge) unhalted(halt int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.halt == halt && !b.listening && !b.closed
}

// setSpeaking ignores callbacks from utterances that were superseded.
func (b *Bridge) setSpeaking(gen int, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	b.speaking = on
	if !on {
		b.paused = false
	}
}

// Close clears pending timers and ends dictation. The Bridge is unusable after.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.halt++
	b.stopTimersLocked()
	listening := b.listening
	b.mu.Unlock()
	if listening && b.rec != nil {
		b.rec.Stop()
	}
}

func (b *Bridge) stopTimersLocked() {
	b.scheduled.stop()
	b.retry.stop()
}

// slot is a replaceable timer. A callback only runs if its timer is still the
// current one when it fires.
type slot struct {
	timer Timer
	seq   int
}

func (s *slot) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
}

func (b *Bridge) scheduleLocked(s *slot, d time.Duration, f func()) {
	s.stop()
	seq := s.seq
	s.timer = b.clock.AfterFunc(d, func() {
		b.mu.Lock()
		current := s.seq == seq && !b.closed
		if current {
			s.timer = nil
		}
		b.mu.Unlock()
		if current {
			f()
		}
	})
}

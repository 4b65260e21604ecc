package speech

import (
	"sort"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due []*manualTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

type fakeSynth struct {
	mu       sync.Mutex
	voices   [][]Voice
	polls    int
	spoken   []Utterance
	cancels  int
	pauses   int
	resumes  int
	handlers SpeakHandlers
}

func (s *fakeSynth) Voices() []Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if len(s.voices) == 0 {
		return nil
	}
	v := s.voices[0]
	if len(s.voices) > 1 {
		s.voices = s.voices[1:]
	}
	return v
}

func (s *fakeSynth) Speak(u Utterance, h SpeakHandlers) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, u)
	s.handlers = h
	s.mu.Unlock()
	if h.OnStart != nil {
		h.OnStart()
	}
	return nil
}

func (s *fakeSynth) finish() {
	s.mu.Lock()
	h := s.handlers
	s.mu.Unlock()
	if h.OnEnd != nil {
		h.OnEnd()
	}
}

func (s *fakeSynth) Cancel() { s.mu.Lock(); s.cancels++; s.mu.Unlock() }
func (s *fakeSynth) Pause()  { s.mu.Lock(); s.pauses++; s.mu.Unlock() }
func (s *fakeSynth) Resume() { s.mu.Lock(); s.resumes++; s.mu.Unlock() }

func (s *fakeSynth) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.spoken))
	for _, u := range s.spoken {
		out = append(out, u.Text)
	}
	return out
}

type fakeRecognizer struct {
	opts     RecognitionOptions
	handlers RecognitionHandlers
	starts   int
	stops    int
}

func (r *fakeRecognizer) Start(opts RecognitionOptions, h RecognitionHandlers) error {
	r.starts++
	r.opts = opts
	r.handlers = h
	return nil
}

func (r *fakeRecognizer) Stop() {
	r.stops++
	r.handlers.OnEnd()
}

func newTestBridge() (*Bridge, *fakeSynth, *fakeRecognizer, *manualClock) {
	synth := &fakeSynth{}
	rec := &fakeRecognizer{}
	clock := &manualClock{}
	return NewBridge(synth, rec, clock, DefaultConfig()), synth, rec, clock
}

func TestReadReplyImmediateWhenIdle(t *testing.T) {
	b, synth, _, _ := newTestBridge()
	b.ReadReply("ignored while auto-read is off")
	if len(synth.texts()) != 0 {
		t.Fatal("auto-read off must not speak")
	}
	b.SetAutoRead(true)
	b.ReadReply("Trip to Rome.")
	if got := synth.texts(); len(got) != 1 || got[0] != "Trip to Rome." {
		t.Fatalf("spoken = %q", got)
	}
	if !b.Speaking() {
		t.Fatal("expected speaking after start callback")
	}
	synth.finish()
	if b.Speaking() {
		t.Fatal("expected speaking to clear after end callback")
	}
}

func TestReadDeferredWhileListening(t *testing.T) {
	b, synth, rec, clock := newTestBridge()
	b.SetAutoRead(true)
	if err := b.Listen(func(string) {}); err != nil {
		t.Fatal(err)
	}
	b.ReadReply("reply")
	clock.Advance(time.Second)
	if len(synth.texts()) != 0 {
		t.Fatal("speech must not run during recognition")
	}
	rec.handlers.OnEnd()
	clock.Advance(300 * time.Millisecond)
	if got := synth.texts(); len(got) != 1 || got[0] != "reply" {
		t.Fatalf("deferred read should fire after recognition stops, got %q", got)
	}
}

func TestListenCancelsSpeechAndStreamsTranscript(t *testing.T) {
	b, synth, rec, clock := newTestBridge()
	b.SetAutoRead(true)
	b.ReadReply("long answer")
	cancelsBefore := synth.cancels

	var drafts []string
	if err := b.Listen(func(s string) { drafts = append(drafts, s) }); err != nil {
		t.Fatal(err)
	}
	if synth.cancels <= cancelsBefore || b.Speaking() {
		t.Fatal("starting recognition must cancel speech")
	}
	if rec.opts.Continuous || !rec.opts.InterimResults {
		t.Fatalf("unexpected recognition options %+v", rec.opts)
	}

	rec.handlers.OnResult([]Result{{Transcript: "three days"}})
	rec.handlers.OnResult([]Result{{Transcript: "three days in", Final: true}})
	rec.handlers.OnResult([]Result{{Transcript: " Ro"}})
	rec.handlers.OnResult([]Result{{Transcript: " Rome", Final: true}})
	want := []string{"three days", "three days in", "three days in Ro", "three days in Rome"}
	if len(drafts) != len(want) {
		t.Fatalf("drafts = %q", drafts)
	}
	for i := range want {
		if drafts[i] != want[i] {
			t.Fatalf("drafts = %q, want %q", drafts, want)
		}
	}
	b.StopListening()
	if b.Listening() || rec.stops != 1 {
		t.Fatal("expected session to end")
	}
	clock.Advance(5 * time.Second)
	if len(synth.texts()) != 1 {
		t.Fatalf("no extra speech expected, got %q", synth.texts())
	}
}

func TestReplyAfterDictationWaitsForCooldown(t *testing.T) {
	b, synth, rec, clock := newTestBridge()
	b.SetAutoRead(true)
	_ = b.Listen(func(string) {})
	rec.handlers.OnResult([]Result{{Transcript: "plan Paris", Final: true}})
	rec.handlers.OnEnd()

	b.MarkSent()
	b.ReadReply("Paris plan")
	clock.Advance(1199 * time.Millisecond)
	if len(synth.texts()) != 0 {
		t.Fatal("read must wait for the cool-down")
	}
	clock.Advance(time.Millisecond)
	if got := synth.texts(); len(got) != 1 || got[0] != "Paris plan" {
		t.Fatalf("spoken = %q", got)
	}

	// the next typed message is read immediately again
	b.MarkSent()
	b.ReadReply("second")
	if got := synth.texts(); len(got) != 2 {
		t.Fatalf("spoken = %q", got)
	}
}

func TestCooldownCancelledByNewDictation(t *testing.T) {
	b, synth, rec, clock := newTestBridge()
	b.SetAutoRead(true)
	_ = b.Listen(func(string) {})
	rec.handlers.OnEnd()
	b.MarkSent()
	b.ReadReply("answer")
	_ = b.Listen(func(string) {})
	clock.Advance(10 * time.Second)
	if len(synth.texts()) != 0 {
		t.Fatalf("spoken = %q", synth.texts())
	}
}

func TestTypingAutoReadDebounced(t *testing.T) {
	b, synth, _, clock := newTestBridge()
	b.SetTypingAutoRead(true)
	b.DraftChanged("R")
	clock.Advance(500 * time.Millisecond)
	b.DraftChanged("Ro")
	clock.Advance(500 * time.Millisecond)
	b.DraftChanged("Rome")
	clock.Advance(799 * time.Millisecond)
	if len(synth.texts()) != 0 {
		t.Fatal("debounce fired early")
	}
	clock.Advance(time.Millisecond)
	if got := synth.texts(); len(got) != 1 || got[0] != "Rome" {
		t.Fatalf("spoken = %q", got)
	}
}

func TestTypingAutoReadSuppressedAroundDictation(t *testing.T) {
	b, synth, rec, clock := newTestBridge()
	b.SetTypingAutoRead(true)
	_ = b.Listen(func(string) {})
	b.DraftChanged("dictated text")
	clock.Advance(time.Second)
	rec.handlers.OnEnd()
	b.DraftChanged("dictated text edited")
	clock.Advance(time.Second)
	if len(synth.texts()) != 0 {
		t.Fatalf("typing auto-read must wait for send after dictation, got %q", synth.texts())
	}
	b.MarkSent()
	b.DraftChanged("typed")
	clock.Advance(time.Second)
	if got := synth.texts(); len(got) != 1 || got[0] != "typed" {
		t.Fatalf("spoken = %q", got)
	}
}

func TestDisableAutoReadCancelsPending(t *testing.T) {
	b, synth, rec, clock := newTestBridge()
	b.SetAutoRead(true)
	_ = b.Listen(func(string) {})
	b.ReadReply("pending")
	b.SetAutoRead(false)
	rec.handlers.OnEnd()
	clock.Advance(5 * time.Second)
	if len(synth.texts()) != 0 {
		t.Fatalf("spoken = %q", synth.texts())
	}
	if synth.cancels == 0 {
		t.Fatal("disabling auto-read should cancel the synthesizer")
	}
}

func TestCloseClearsTimers(t *testing.T) {
	b, synth, _, clock := newTestBridge()
	b.SetTypingAutoRead(true)
	b.DraftChanged("bye")
	b.Close()
	clock.Advance(time.Second)
	if len(synth.texts()) != 0 {
		t.Fatal("closed bridge must not speak")
	}
}

func TestPauseResume(t *testing.T) {
	b, synth, _, _ := newTestBridge()
	b.Pause()
	if synth.pauses != 0 {
		t.Fatal("pause without speech must be a no-op")
	}
	_ = b.Speak("hello")
	b.Pause()
	if !b.Paused() || synth.pauses != 1 {
		t.Fatal("expected paused")
	}
	b.Resume()
	if b.Paused() || synth.resumes != 1 {
		t.Fatal("expected resumed")
	}
	synth.finish()
	b.Resume()
	if synth.resumes != 1 {
		t.Fatal("resume when not paused must be a no-op")
	}
}

func TestUnsupportedCapabilities(t *testing.T) {
	b := NewBridge(nil, nil, &manualClock{}, DefaultConfig())
	if err := b.Listen(func(string) {}); err != ErrUnsupported {
		t.Fatalf("Listen err = %v", err)
	}
	if err := b.Speak("x"); err != ErrUnsupported {
		t.Fatalf("Speak err = %v", err)
	}
	b.SetAutoRead(true)
	if b.AutoRead() {
		t.Fatal("auto-read must stay off without a synthesizer")
	}
	b.ReadReply("x")
	b.DraftChanged("x")
	s := b.Support()
	if s.Synthesis || s.Recognition || s.Notice() == "" {
		t.Fatalf("support = %+v notice %q", s, s.Notice())
	}
	if (Support{Synthesis: true, Recognition: true}).Notice() != "" {
		t.Fatal("no notice expected when everything is supported")
	}
}

// racingSynth starts dictation from inside the synthesizer calls, the way a
// recognizer timer firing on another goroutine would.
type racingSynth struct {
	fakeSynth
	b                   *Bridge
	listenOnCancel      bool
	listenOnSpeak       bool
	spokeWhileListening bool
}

func (s *racingSynth) Cancel() {
	s.fakeSynth.Cancel()
	if s.listenOnCancel {
		s.listenOnCancel = false
		_ = s.b.Listen(func(string) {})
	}
}

func (s *racingSynth) Speak(u Utterance, h SpeakHandlers) error {
	if s.b.Listening() {
		s.spokeWhileListening = true
	}
	s.fakeSynth.mu.Lock()
	s.spoken = append(s.spoken, u)
	s.handlers = h
	s.fakeSynth.mu.Unlock()
	if s.listenOnSpeak {
		s.listenOnSpeak = false
		_ = s.b.Listen(func(string) {})
	}
	if h.OnStart != nil {
		h.OnStart()
	}
	return nil
}

func TestDictationStartingBeforeSpeakWins(t *testing.T) {
	synth := &racingSynth{}
	b := NewBridge(synth, &fakeRecognizer{}, &manualClock{}, DefaultConfig())
	synth.b = b
	b.SetAutoRead(true)
	synth.listenOnCancel = true
	b.ReadReply("hello")
	if synth.spokeWhileListening || len(synth.texts()) != 0 {
		t.Fatalf("synthesizer spoke while recognition was active: %q", synth.texts())
	}
	if !b.Listening() || b.Speaking() {
		t.Fatalf("listening=%v speaking=%v", b.Listening(), b.Speaking())
	}
}

func TestDictationStartingDuringSpeakCancels(t *testing.T) {
	synth := &racingSynth{}
	b := NewBridge(synth, &fakeRecognizer{}, &manualClock{}, DefaultConfig())
	synth.b = b
	b.SetAutoRead(true)
	synth.listenOnSpeak = true
	b.ReadReply("hello")
	synth.fakeSynth.mu.Lock()
	cancels := synth.cancels
	synth.fakeSynth.mu.Unlock()
	// one before the utterance, one from Listen, at least one after it started
	if cancels < 3 {
		t.Fatalf("cancels = %d, want the queued utterance cancelled", cancels)
	}
	if b.Speaking() {
		t.Fatal("speaking must stay off while recognition is active")
	}
}

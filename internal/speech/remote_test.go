package speech

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type commandLog struct {
	mu   sync.Mutex
	cmds []RemoteCommand
}

func (l *commandLog) emit(c RemoteCommand) {
	l.mu.Lock()
	l.cmds = append(l.cmds, c)
	l.mu.Unlock()
}

func (l *commandLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.cmds))
	for _, c := range l.cmds {
		out = append(out, c.Type)
	}
	return out
}

func (l *commandLog) last(kind string) (RemoteCommand, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.cmds) - 1; i >= 0; i-- {
		if l.cmds[i].Type == kind {
			return l.cmds[i], true
		}
	}
	return RemoteCommand{}, false
}

func TestRemoteEngineUnattached(t *testing.T) {
	e := NewRemoteEngine()
	if err := e.Speak(Utterance{Text: "hi"}, SpeakHandlers{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("speak err = %v", err)
	}
	if err := e.Start(RecognitionOptions{}, RecognitionHandlers{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("start err = %v", err)
	}
	e.Cancel()
	e.Stop()
}

func TestRemoteEngineUtteranceLifecycle(t *testing.T) {
	e := NewRemoteEngine()
	var log commandLog
	e.Attach(log.emit)

	var started, ended int
	if err := e.Speak(Utterance{Text: "Trip to Rome.", Lang: "en-US"}, SpeakHandlers{
		OnStart: func() { started++ },
		OnEnd:   func() { ended++ },
	}); err != nil {
		t.Fatal(err)
	}
	cmd, ok := log.last(CmdSpeak)
	if !ok || cmd.Text != "Trip to Rome." || cmd.Utterance == 0 {
		t.Fatalf("speak command = %+v", cmd)
	}
	e.Started(cmd.Utterance + 1)
	if started != 0 {
		t.Fatal("events for another utterance must be ignored")
	}
	e.Started(cmd.Utterance)
	e.Ended(cmd.Utterance)
	e.Ended(cmd.Utterance)
	if started != 1 || ended != 1 {
		t.Fatalf("started=%d ended=%d", started, ended)
	}
}

func TestRemoteEngineRecognition(t *testing.T) {
	e := NewRemoteEngine()
	var log commandLog
	e.Attach(log.emit)

	var got []Result
	var ends int
	h := RecognitionHandlers{
		OnResult: func(r []Result) { got = append(got, r...) },
		OnEnd:    func() { ends++ },
	}
	if err := e.Start(RecognitionOptions{Lang: "en-US", InterimResults: true}, h); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(RecognitionOptions{}, h); err == nil {
		t.Fatal("second start should fail while listening")
	}
	e.Results([]Result{{Transcript: "two days", Final: true}})
	e.Stop()
	if _, ok := log.last(CmdStop); !ok || ends != 0 {
		t.Fatalf("stop should wait for the client, ends=%d", ends)
	}
	e.ListenEnded()
	e.ListenEnded()
	if len(got) != 1 || got[0].Transcript != "two days" || ends != 1 {
		t.Fatalf("results=%+v ends=%d", got, ends)
	}
}

func TestRemoteEngineDetachEndsSessions(t *testing.T) {
	e := NewRemoteEngine()
	var first, second commandLog
	detachFirst := e.Attach(first.emit)
	detachSecond := e.Attach(second.emit)
	detachFirst()
	e.Pause()
	if got := second.types(); len(got) != 1 || got[0] != CmdPause {
		t.Fatalf("stale detach dropped the live client: %v", got)
	}

	var speechEnded, listenEnded bool
	_ = e.Speak(Utterance{Text: "x"}, SpeakHandlers{OnEnd: func() { speechEnded = true }})
	_ = e.Start(RecognitionOptions{}, RecognitionHandlers{OnEnd: func() { listenEnded = true }})
	detachSecond()
	if !speechEnded || !listenEnded {
		t.Fatalf("speech ended=%v listen ended=%v", speechEnded, listenEnded)
	}
}

func TestBridgeOverRemoteEngineDefersWhileDictating(t *testing.T) {
	e := NewRemoteEngine()
	var log commandLog
	e.Attach(log.emit)
	clock := &manualClock{}
	b := NewBridge(e, e, clock, DefaultConfig())
	b.SetAutoRead(true)

	var draft string
	if err := b.Listen(func(s string) { draft = s }); err != nil {
		t.Fatal(err)
	}
	e.Results([]Result{{Transcript: "3 days in Lisbon", Final: true}})
	if draft != "3 days in Lisbon" {
		t.Fatalf("draft = %q", draft)
	}
	b.MarkSent()
	b.ReadReply("Trip to Lisbon.")
	clock.Advance(5 * time.Second)
	if _, ok := log.last(CmdSpeak); ok {
		t.Fatal("reply spoken while the client was dictating")
	}
	e.ListenEnded()
	clock.Advance(300 * time.Millisecond)
	if cmd, ok := log.last(CmdSpeak); !ok || cmd.Text != "Trip to Lisbon." {
		t.Fatalf("speak = %+v, %v", cmd, ok)
	}
}

package speech

import (
	"errors"
	"sync"
)

// Commands a RemoteEngine sends to its client.
const (
	CmdSpeak  = "speak"
	CmdCancel = "cancel"
	CmdPause  = "pause"
	CmdResume = "resume"
	CmdListen = "listen"
	CmdStop   = "stop_listening"
)

// RemoteCommand asks the client to drive its local engine.
type RemoteCommand struct {
	Type      string
	Text      string
	Voice     string
	Lang      string
	Utterance int
	Interim   bool
}

// RemoteEngine is a Synthesizer and a Recognizer whose engines run on a connected
// client, such as a browser. Commands go out through the attached emit function;
// the client reports back through Started, Ended, Results and ListenEnded.
// Without an attached client both engines report ErrUnsupported.
type RemoteEngine struct {
	mu        sync.Mutex
	emit      func(RemoteCommand)
	attach    int
	utterance int
	speak     SpeakHandlers
	listen    *RecognitionHandlers
}

func NewRemoteEngine() *RemoteEngine { return &RemoteEngine{} }

// Attach routes commands to emit until the returned detach is called. A newer
// Attach replaces the previous client; a stale detach is a no-op.
func (e *RemoteEngine) Attach(emit func(RemoteCommand)) (detach func()) {
	e.mu.Lock()
	e.attach++
	id := e.attach
	e.emit = emit
	e.mu.Unlock()
	return func() { e.detach(id) }
}

// detach ends whatever the departed client was doing.
func (e *RemoteEngine) detach(id int) {
	e.mu.Lock()
	if e.attach != id {
		e.mu.Unlock()
		return
	}
	e.emit = nil
	speak, listen := e.speak, e.listen
	e.speak, e.listen = SpeakHandlers{}, nil
	e.mu.Unlock()
	if speak.OnEnd != nil {
		speak.OnEnd()
	}
	if listen != nil && listen.OnEnd != nil {
		listen.OnEnd()
	}
}

func (e *RemoteEngine) send(c RemoteCommand) bool {
	e.mu.Lock()
	emit := e.emit
	e.mu.Unlock()
	if emit == nil {
		return false
	}
	emit(c)
	return true
}

// Voices is empty: the client picks its own voice when none is named.
func (e *RemoteEngine) Voices() []Voice { return nil }

func (e *RemoteEngine) Speak(u Utterance, h SpeakHandlers) error {
	e.mu.Lock()
	emit := e.emit
	if emit == nil {
		e.mu.Unlock()
		return ErrUnsupported
	}
	e.utterance++
	id := e.utterance
	e.speak = h
	e.mu.Unlock()
	emit(RemoteCommand{Type: CmdSpeak, Text: u.Text, Voice: u.Voice, Lang: u.Lang, Utterance: id})
	return nil
}

func (e *RemoteEngine) Cancel() {
	e.mu.Lock()
	e.speak = SpeakHandlers{}
	e.mu.Unlock()
	e.send(RemoteCommand{Type: CmdCancel})
}

func (e *RemoteEngine) Pause()  { e.send(RemoteCommand{Type: CmdPause}) }
func (e *RemoteEngine) Resume() { e.send(RemoteCommand{Type: CmdResume}) }

// Started reports that the client began playing utterance id.
func (e *RemoteEngine) Started(id int) {
	if h := e.handlers(id); h.OnStart != nil {
		h.OnStart()
	}
}

// Ended reports that utterance id finished or was stopped on the client.
func (e *RemoteEngine) Ended(id int) {
	h := e.handlers(id)
	e.mu.Lock()
	if e.utterance == id {
		e.speak = SpeakHandlers{}
	}
	e.mu.Unlock()
	if h.OnEnd != nil {
		h.OnEnd()
	}
}

func (e *RemoteEngine) handlers(id int) SpeakHandlers {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != e.utterance {
		return SpeakHandlers{}
	}
	return e.speak
}

func (e *RemoteEngine) Start(opts RecognitionOptions, h RecognitionHandlers) error {
	e.mu.Lock()
	emit := e.emit
	if emit == nil {
		e.mu.Unlock()
		return ErrUnsupported
	}
	if e.listen != nil {
		e.mu.Unlock()
		return errors.New("speech: recognition already running")
	}
	e.listen = &h
	e.mu.Unlock()
	emit(RemoteCommand{Type: CmdListen, Lang: opts.Lang, Interim: opts.InterimResults})
	return nil
}

// Stop asks the client to end dictation. The session ends when the client
// answers with ListenEnded, or at once when no client is attached.
func (e *RemoteEngine) Stop() {
	if e.send(RemoteCommand{Type: CmdStop}) {
		return
	}
	e.ListenEnded()
}

// Results forwards one recognition event from the client.
func (e *RemoteEngine) Results(results []Result) {
	e.mu.Lock()
	h := e.listen
	e.mu.Unlock()
	if h != nil && h.OnResult != nil {
		h.OnResult(results)
	}
}

// ListenFailed forwards a client recognition error. The client still ends the
// session with ListenEnded.
func (e *RemoteEngine) ListenFailed(err error) {
	e.mu.Lock()
	h := e.listen
	e.mu.Unlock()
	if h != nil && h.OnError != nil {
		h.OnError(err)
	}
}

func (e *RemoteEngine) ListenEnded() {
	e.mu.Lock()
	h := e.listen
	e.listen = nil
	e.mu.Unlock()
	if h != nil && h.OnEnd != nil {
		h.OnEnd()
	}
}

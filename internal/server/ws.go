package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"itinerary-voice-chat/internal/chat"
	"itinerary-voice-chat/internal/itinerary"
	"itinerary-voice-chat/internal/speech"
	"itinerary-voice-chat/internal/store"
	"itinerary-voice-chat/internal/types"
)

const writeWait = 10 * time.Second

// wsConn serialises writes to one WebSocket connection.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (c *wsConn) send(f types.ServerFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(f); err != nil {
		log.Printf("[ws] write failed: %v", err)
		c.closed = true
	}
}

func (c *wsConn) sendError(text string) {
	c.send(types.ServerFrame{Type: "error", Text: text})
}

func (c *wsConn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	_ = c.conn.Close()
}

// commandFrame turns a speech command for the browser into a frame.
func commandFrame(c speech.RemoteCommand) types.ServerFrame {
	return types.ServerFrame{
		Type:      c.Type,
		Text:      c.Text,
		Voice:     c.Voice,
		Lang:      c.Lang,
		Utterance: c.Utterance,
		Interim:   c.Interim,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowedOrigin == "" || s.cfg.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == s.cfg.AllowedOrigin
}

// handleWS runs one chat session over a WebSocket. Reconnecting with the same
// session id resumes the conversation.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
	}
	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	header := http.Header{}
	header.Add("Set-Cookie", sessionCookie(r, sid).String())
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	ws := &wsConn{conn: conn}
	defer ws.close()

	sess, created := s.sessions.GetOrCreate(sid)
	log.Printf("[ws] session=%s connected (new=%v)", sid, created)

	sess.Chat.SetObservers(
		func(m chat.Message) { ws.send(messageFrame(sess.Chat, m)) },
		func(p bool) { ws.send(types.ServerFrame{Type: "pending", Pending: &p}) },
	)
	detach := sess.Remote.Attach(func(c speech.RemoteCommand) { ws.send(commandFrame(c)) })
	defer detach()

	ws.send(types.ServerFrame{Type: "connected", SessionID: sid})
	for _, m := range sess.Chat.Messages() {
		ws.send(messageFrame(sess.Chat, m))
	}
	if sess.Chat.Pending() {
		p := true
		ws.send(types.ServerFrame{Type: "pending", Pending: &p})
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] session=%s closed unexpectedly: %v", sid, err)
			}
			return
		}
		var f types.ClientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			ws.sendError("Invalid message format. Send a JSON frame with a 'type' field.")
			continue
		}
		s.sessions.Touch(sid)
		s.handleFrame(sess, ws, f)
	}
}

func (s *Server) handleFrame(sess *store.Session, ws *wsConn, f types.ClientFrame) {
	switch f.Type {
	case "draft":
		sess.Chat.SetDraft(f.Text)
		sess.Speech.DraftChanged(f.Text)
	case "send":
		go func() {
			// the reply belongs to the session, so it outlives this connection
			ctx, cancel := context.WithTimeout(context.Background(), s.webhookTimeout())
			defer cancel()
			var err error
			if f.Text != "" {
				_, err = sess.Chat.Submit(ctx, f.Text)
			} else {
				_, err = sess.Chat.Send(ctx)
			}
			switch {
			case errors.Is(err, chat.ErrEmptyInput):
				ws.sendError("Type a message first.")
			case errors.Is(err, chat.ErrBusy):
				ws.sendError("Still waiting for the previous answer.")
			}
		}()
	case "day", "image":
		s.handleNavigation(sess, ws, f)
	case "autoread":
		sess.Speech.SetAutoRead(f.Enabled)
	case "typing_autoread":
		sess.Speech.SetTypingAutoRead(f.Enabled)
	case "pause":
		sess.Speech.Pause()
	case "resume":
		sess.Speech.Resume()
	case "cancel":
		sess.Speech.Cancel()
	case "speech_start":
		sess.Remote.Started(f.Utterance)
	case "speech_end":
		sess.Remote.Ended(f.Utterance)
	case "listen":
		err := sess.Speech.Listen(func(text string) {
			sess.Chat.SetDraft(text)
			ws.send(types.ServerFrame{Type: "draft", Text: text})
		})
		if err != nil {
			ws.sendError("Dictation is not available.")
		}
	case "stop_listening":
		sess.Speech.StopListening()
	case "transcript":
		results := make([]speech.Result, 0, len(f.Results))
		for _, r := range f.Results {
			results = append(results, speech.Result{Transcript: r.Text, Final: r.Final})
		}
		sess.Remote.Results(results)
	case "listen_error":
		sess.Remote.ListenFailed(errors.New(f.Text))
	case "listen_end":
		sess.Remote.ListenEnded()
	default:
		ws.sendError("Unknown frame type " + f.Type + ".")
	}
}

func (s *Server) handleNavigation(sess *store.Session, ws *wsConn, f types.ClientFrame) {
	id, v, ok := viewerFor(sess.Chat, f.MessageID)
	if !ok {
		ws.sendError("No itinerary to navigate.")
		return
	}
	pos := f.Activity
	if f.ActivityID != "" {
		if pos, ok = v.ActivityIndex(f.ActivityID); !ok {
			ws.sendError("No activity " + f.ActivityID + " on this day.")
			return
		}
	}
	switch {
	case f.Type == "day" && f.Action == "next":
		v.Next()
	case f.Type == "day" && f.Action == "prev":
		v.Prev()
	case f.Type == "image" && f.Action == "next":
		_, ok = v.NextImage(pos)
	case f.Type == "image" && f.Action == "prev":
		_, ok = v.PrevImage(pos)
	default:
		ws.sendError("Unknown action " + f.Action + ".")
		return
	}
	if !ok {
		ws.sendError("No such activity on this day.")
		return
	}
	ws.send(types.ServerFrame{Type: "view", MessageID: id, View: v.Day()})
}

func viewerFor(c *chat.Controller, messageID string) (string, *itinerary.Viewer, bool) {
	if messageID == "" {
		m, v, ok := c.LatestViewer()
		return m.ID, v, ok
	}
	v, ok := c.Viewer(messageID)
	return messageID, v, ok
}

func messageFrame(c *chat.Controller, m chat.Message) types.ServerFrame {
	f := types.ServerFrame{Type: "message", Message: m, MessageID: m.ID}
	if v, ok := c.Viewer(m.ID); ok {
		f.View = v.Day()
	}
	return f
}

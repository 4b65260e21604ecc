package server

import (
	"log"
	"net/http"

	"github.com/google/uuid"
)

// sessionCookieName carries the id of the caller's conversation. The cookie lives
// as long as an idle server-side session.
const sessionCookieName = "itinerary_session"

func sessionCookie(r *http.Request, sessionID string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredSessionCookie tells the browser to drop its conversation id.
func expiredSessionCookie(r *http.Request) *http.Cookie {
	c := sessionCookie(r, "")
	c.MaxAge = -1
	return c
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

func newSessionID() string {
	return uuid.NewString()
}

// getSessionID finds the conversation of a request. Browsers send the cookie;
// the terminal client and WebSocket reconnects may name it in the X-Session-Id
// header or the session_id query parameter instead.
func getSessionID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	return r.URL.Query().Get("session_id")
}

// getOrCreateSessionID returns the request's conversation id, starting a new one
// when there is none, and refreshes the cookie's lifetime.
func getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
		log.Printf("[session] new conversation %s via %s", sid, r.URL.Path)
	}
	http.SetCookie(w, sessionCookie(r, sid))
	return sid
}

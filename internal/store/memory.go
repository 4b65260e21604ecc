package store

import (
	"sync"
	"time"

	"itinerary-voice-chat/internal/chat"
	"itinerary-voice-chat/internal/speech"
)

// Session is one server-side chat conversation, resumable by its id.
type Session struct {
	ID   string
	Chat *chat.Controller
	// Speech reads replies and runs dictation through the client's engines.
	Speech *speech.Bridge
	Remote *speech.RemoteEngine

	UpdatedAt time.Time
}

// Close releases the session's speech timers and dictation.
func (s *Session) Close() {
	if s.Speech != nil {
		s.Speech.Close()
	}
}

// MemoryStore keeps chat sessions in memory. Sessions idle for longer than ttl are
// dropped by Sweep.
type MemoryStore struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	ttl        time.Duration
	newSession func(sessionID string) *Session
	now        func() time.Time
}

// NewMemoryStore builds sessions with newSession, which must set Chat.
func NewMemoryStore(ttl time.Duration, newSession func(sessionID string) *Session) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*Session),
		ttl:        ttl,
		newSession: newSession,
		now:        time.Now,
	}
}

// GetOrCreate returns the live session for id, creating it if needed. created
// reports whether a new conversation was started.
func (m *MemoryStore) GetOrCreate(id string) (s *Session, created bool) {
	m.mu.Lock()
	now := m.now()
	old, ok := m.sessions[id]
	if ok && !m.expiredLocked(old, now) {
		old.UpdatedAt = now
		m.mu.Unlock()
		return old, false
	}
	s = m.newSession(id)
	s.ID, s.UpdatedAt = id, now
	m.sessions[id] = s
	m.mu.Unlock()
	if ok {
		old.Close()
	}
	return s, true
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || m.expiredLocked(s, m.now()) {
		return nil, false
	}
	return s, true
}

// Touch marks a session as active.
func (m *MemoryStore) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.UpdatedAt = m.now()
	}
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Sweep removes expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	now := m.now()
	var expired []*Session
	for id, s := range m.sessions {
		if m.expiredLocked(s, now) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()
	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) expiredLocked(s *Session, now time.Time) bool {
	if m.ttl <= 0 || s.Chat.Pending() {
		return false
	}
	return now.Sub(s.UpdatedAt) > m.ttl
}

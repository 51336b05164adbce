package rehearsal

import (
	"sync"
	"time"

	"talentloop/internal/ai"
	"talentloop/internal/types"

	"github.com/google/uuid"
)

// Session is one rehearsal interview held in memory
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	context   ai.SessionContext
	pending   string
	completed bool
	summary   *types.Summary
}

// Asked returns the number of questions answered so far
func (s *Session) Asked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.context.Exchanges)
}

// SessionStore keeps rehearsal sessions keyed by id
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create registers a new session for sc
func (st *SessionStore) Create(sc ai.SessionContext) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		context:   sc,
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with id
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete forgets the session with id
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of sessions held
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Prune removes sessions created before cutoff and returns how many were removed
func (st *SessionStore) Prune(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

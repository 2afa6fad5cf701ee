package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTTL is how long an untouched session is kept.
const DefaultIdleTTL = 12 * time.Hour

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry keeps one Session per session id for a multi-user server.
// Sessions idle for longer than the idle TTL are dropped.
type Registry struct {
	creds Credentials
	idle  time.Duration
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewRegistry creates an empty registry whose sessions check against creds.
// A non-positive idle uses DefaultIdleTTL.
func NewRegistry(creds Credentials, idle time.Duration) *Registry {
	if creds == nil {
		creds = DefaultCredentials()
	}
	if idle <= 0 {
		idle = DefaultIdleTTL
	}
	return &Registry{creds: creds, idle: idle, now: time.Now, sessions: make(map[string]*entry)}
}

// Create starts a new unauthenticated session and returns its id.
func (r *Registry) Create() (string, *Session) {
	s := NewSession(r.creds)
	return r.add(s), s
}

// Login checks the credentials on a fresh session and registers it only when
// they are accepted. Failed attempts leave the registry untouched.
func (r *Registry) Login(username, password string) (string, *Session, error) {
	s := NewSession(r.creds)
	if err := s.Login(username, password); err != nil {
		return "", nil, err
	}
	return r.add(s), s, nil
}

func (r *Registry) add(s *Session) string {
	id := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	return id
}

// Get returns the session for id, if any, and marks it as used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if now.Sub(e.lastSeen) > r.idle {
		delete(r.sessions, id)
		return nil, false
	}
	e.lastSeen = now
	return e.session, true
}

// Delete forgets the session for id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Prune drops idle sessions and returns how many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked()
}

func (r *Registry) pruneLocked() int {
	now := r.now()
	n := 0
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.idle {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Package auth implements the dashboard's access gate: a per-session login
// state checked against a fixed credential table.
//
// The credential table is plaintext and compared verbatim. It is a demo gate,
// not a security boundary.
package auth

import (
	"sync"

	"github.com/rotisserie/eris"
)

// UnknownUser is reported by CurrentUser when nobody is signed in.
const UnknownUser = "unknown"

var (
	// ErrInvalidCredentials is returned by Login on any mismatch.
	ErrInvalidCredentials = eris.New("Invalid username or password.")
	// ErrAccessDenied is returned by RequireAccess for anonymous sessions.
	ErrAccessDenied = eris.New("access denied")
)

// Credentials maps usernames to plaintext passwords.
type Credentials map[string]string

// DefaultCredentials returns the built-in demo accounts.
func DefaultCredentials() Credentials {
	return Credentials{
		"admin":   "pwd123",
		"analyst": "analystpass",
	}
}

// State is a snapshot of a session's login state.
type State struct {
	LoggedIn bool   `json:"logged_in"`
	User     string `json:"user,omitempty"`
}

// Session holds the login state of one user session. Every concurrent user
// gets their own Session; nothing is shared between them except the
// read-only credential table.
type Session struct {
	creds Credentials

	mu    sync.RWMutex
	state State
}

// NewSession returns an unauthenticated session checked against creds.
func NewSession(creds Credentials) *Session {
	return &Session{creds: creds}
}

// Login signs the session in when both username and password match exactly.
// On failure the session is left signed out.
func (s *Session) Login(username, password string) error {
	want, ok := s.creds[username]
	if !ok || want != password {
		return ErrInvalidCredentials
	}
	s.mu.Lock()
	s.state = State{LoggedIn: true, User: username}
	s.mu.Unlock()
	return nil
}

// Logout resets the session to signed out.
func (s *Session) Logout() {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()
}

// IsLoggedIn reports whether the session is authenticated.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LoggedIn
}

// CurrentUser returns the signed-in username, or UnknownUser.
func (s *Session) CurrentUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == "" {
		return UnknownUser
	}
	return s.state.User
}

// State returns a copy of the current login state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RequireAccess returns ErrAccessDenied unless the session is signed in. It
// has no side effects.
func (s *Session) RequireAccess() error {
	if !s.IsLoggedIn() {
		return ErrAccessDenied
	}
	return nil
}

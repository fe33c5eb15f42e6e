package auth

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Session is what the rest of the service sees of an authenticated user: an
// access credential for the calendar store and a name for display.
type Session struct {
	ID    string
	Name  string
	Token *oauth2.Token
}

// AccessToken returns the bearer credential handed to calendar calls.
func (s *Session) AccessToken() string {
	return s.Token.AccessToken
}

// Store holds active sessions in memory, keyed by an opaque id carried in a
// cookie. Sessions do not survive a restart; users simply sign in again.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new session and returns it with a fresh id.
func (s *Store) Create(name string, token *oauth2.Token) *Session {
	sess := &Session{
		ID:    uuid.New().String(),
		Name:  name,
		Token: token,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get looks up a session by id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes a session, signing the user out.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

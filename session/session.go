// Package session holds the signed-in identity that every operation is
// performed on behalf of.
package session

import (
	"errors"
	"sync"

	"github.com/meinhoongagan/homeservice-app/models"
)

var (
	ErrNotSignedIn = errors.New("not signed in")
	ErrForbidden   = errors.New("not allowed for this account type")
)

type State int

const (
	Uninitialized State = iota
	Populated
	Cleared
)

func (s State) String() string {
	switch s {
	case Populated:
		return "populated"
	case Cleared:
		return "cleared"
	}
	return "uninitialized"
}

// Identity is who the session belongs to.
type Identity struct {
	UserID string      `json:"userId"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Image  string      `json:"image"`
}

// Session is safe for concurrent use. A cleared session holds no identity at all.
type Session struct {
	mu       sync.RWMutex
	state    State
	identity Identity
	tokenID  string
}

func New() *Session {
	return &Session{}
}

// Populate signs the session in as id. tokenID is the id of the bearer token
// that resolves to it.
func (s *Session) Populate(id Identity, tokenID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Populated
	s.identity = id
	s.tokenID = tokenID
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Cleared
	s.identity = Identity{}
	s.tokenID = ""
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) TokenID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokenID
}

// Identity returns the signed-in identity, or false when nobody is signed in.
func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.state == Populated
}

// Require is Identity for operations that cannot run signed out.
func (s *Session) Require() (Identity, error) {
	id, ok := s.Identity()
	if !ok {
		return Identity{}, ErrNotSignedIn
	}
	return id, nil
}

// RequireRole is Require restricted to one role.
func (s *Session) RequireRole(role models.Role) (Identity, error) {
	id, err := s.Require()
	if err != nil {
		return Identity{}, err
	}
	if id.Role != role {
		return Identity{}, ErrForbidden
	}
	return id, nil
}

// Update applies fn to the identity of a populated session.
func (s *Session) Update(fn func(*Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Populated {
		fn(&s.identity)
	}
}

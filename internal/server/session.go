// Package server provides the session store, view building and WebSocket
// command handling for the web interface.
package server

import (
	cryptorand "crypto/rand"
	"encoding/hex"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/oszuidwest/cranecheck/internal/session"
)

const sessionCookieName = "cranecheck_session"

// ControllerFactory creates the controller for a new inspection session.
type ControllerFactory func() *session.Controller

// entry is one browser session. mu serializes requests of the same browser.
type entry struct {
	mu        sync.Mutex
	ctrl      *session.Controller
	expiresAt time.Time
}

// Store keeps one independent inspection controller per browser, keyed by
// a random cookie token. Idle sessions expire after the TTL.
type Store struct {
	sessions      map[string]*entry
	ttl           time.Duration
	newController ControllerFactory
	now           func() time.Time
	mu            sync.RWMutex
}

// NewStore creates a session store.
func NewStore(ttl time.Duration, factory ControllerFactory) *Store {
	return &Store{
		sessions:      make(map[string]*entry),
		ttl:           ttl,
		newController: factory,
		now:           time.Now,
	}
}

// generateToken creates a cryptographically secure random token.
func generateToken() string {
	b := make([]byte, 32)
	if _, err := cryptorand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

// Acquire returns the session token of the request, creating a new session
// when the cookie is missing, unknown or expired. created reports whether the
// caller must send the cookie.
func (s *Store) Acquire(r *http.Request) (token string, created bool) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && s.valid(cookie.Value) {
		return cookie.Value, false
	}
	return s.create(), true
}

// valid reports whether token names a live session.
func (s *Store) valid(token string) bool {
	if token == "" {
		return false
	}

	s.mu.RLock()
	e, exists := s.sessions[token]
	s.mu.RUnlock()
	if !exists {
		return false
	}

	e.mu.Lock()
	expired := s.now().After(e.expiresAt)
	e.mu.Unlock()
	if expired {
		s.Delete(token)
		return false
	}
	return true
}

// create registers a fresh session and returns its token.
func (s *Store) create() string {
	token := generateToken()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Only clean up occasionally (roughly 10% of calls)
	if rand.Intn(10) == 0 {
		s.sweepLocked()
	}

	s.sessions[token] = s.newEntry()
	return token
}

func (s *Store) newEntry() *entry {
	return &entry{
		ctrl:      s.newController(),
		expiresAt: s.now().Add(s.ttl),
	}
}

// With runs fn with exclusive access to the session's controller and
// refreshes its expiry. A session that vanished in between starts over on
// the login step under the same token.
func (s *Store) With(token string, fn func(*session.Controller) error) error {
	s.mu.Lock()
	e, exists := s.sessions[token]
	if !exists {
		e = s.newEntry()
		s.sessions[token] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.expiresAt = s.now().Add(s.ttl)
	return fn(e.ctrl)
}

// Delete removes a session.
func (s *Store) Delete(token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// sweepLocked removes expired sessions. Caller must hold s.mu.
func (s *Store) sweepLocked() int {
	now := s.now()
	removed := 0
	for token, e := range s.sessions {
		e.mu.Lock()
		expired := now.After(e.expiresAt)
		e.mu.Unlock()
		if expired {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cookie returns the session cookie for token.
func (s *Store) Cookie(r *http.Request, token string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	}
}

// Attach resolves the request's session and sets the cookie on w. The cookie
// is re-issued on every request so its MaxAge slides with the server-side
// expiry.
func (s *Store) Attach(w http.ResponseWriter, r *http.Request) string {
	token, _ := s.Acquire(r)
	http.SetCookie(w, s.Cookie(r, token))
	return token
}

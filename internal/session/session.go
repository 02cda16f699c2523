// Package session keeps per-browser display state between requests in a
// server-side store keyed by a random cookie.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the session cookie.
const CookieName = "osteo_session"

// Data is what a session remembers.
type Data struct {
	RiskLevel string
	Answers   []string
	Name      string
	Gender    string
	Age       string

	UserEmail string
	UserName  string
}

type entry struct {
	data    Data
	expires time.Time
}

// Store is an in-memory session store. Entries expire TTL after their last
// write.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewStore creates a Store. secure marks cookies Secure.
func NewStore(ttl time.Duration, secure bool) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		secure:   secure,
		now:      time.Now,
	}
}

// Get returns the session data for r, or the zero Data if there is none.
func (s *Store) Get(r *http.Request) Data {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return Data{}
	}

	s.mu.RLock()
	e, ok := s.sessions[c.Value]
	s.mu.RUnlock()
	if !ok {
		return Data{}
	}
	if s.now().After(e.expires) {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
		return Data{}
	}

	d := e.data
	d.Answers = append([]string(nil), e.data.Answers...)
	return d
}

// Update applies fn to the session for r, creating one if needed, and
// refreshes the cookie and expiry.
func (s *Store) Update(w http.ResponseWriter, r *http.Request, fn func(*Data)) {
	id := ""
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}

	now := s.now()
	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok || now.After(e.expires) {
		id = uuid.NewString()
		e = &entry{}
		s.sessions[id] = e
	}
	fn(&e.data)
	e.expires = now.Add(s.ttl)
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		Expires:  e.expires,
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Len returns the number of live and not yet swept sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if now.After(e.expires) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

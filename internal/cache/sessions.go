package cache

import (
	"time"

	"github.com/google/uuid"
)

// Session is one authenticated login.
type Session struct {
	Token     string
	ClientIP  string
	CreatedAt time.Time
}

// Sessions issues opaque tokens and remembers them for a fixed lifetime.
// When more than max sessions are live, the least recently used is dropped.
type Sessions struct {
	cache *LRUCache[Session]
}

func NewSessions(max int, ttl time.Duration) *Sessions {
	return &Sessions{cache: NewLRUCache[Session](max, ttl)}
}

// Issue creates and stores a new session.
func (s *Sessions) Issue(clientIP string) Session {
	sess := Session{
		Token:     uuid.NewString(),
		ClientIP:  clientIP,
		CreatedAt: s.cache.now(),
	}
	s.cache.Set(sess.Token, sess)
	return sess
}

// Lookup reports whether token belongs to a live session.
func (s *Sessions) Lookup(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	return s.cache.Get(token)
}

// Revoke ends the session. Unknown tokens are ignored.
func (s *Sessions) Revoke(token string) {
	s.cache.Delete(token)
}

func (s *Sessions) Len() int { return s.cache.Size() }

// Cleaner exposes the backing cache to a Janitor.
func (s *Sessions) Cleaner() Cleaner { return s.cache }

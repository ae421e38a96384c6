package job

import (
	"sync"
	"time"

	"github.com/vmunix/tubebot/internal/media"
)

// Session is one user's resolved request awaiting or running a selection.
type Session struct {
	Identity  int64
	ChatID    int64
	URL       string
	Mode      media.Mode
	Candidate *media.Candidate
	CreatedAt time.Time

	// Prompt is the message id of the selection prompt, 0 until it is shown.
	Prompt int

	// Selection is set only after the candidate resolved.
	Selection *media.Selection
}

// SessionStore keeps the latest session per identity for a bounded time.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[int64]*Session
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Put replaces the identity's session.
func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	s.sessions[sess.Identity] = sess
}

// Get returns the identity's session if it has not expired.
func (s *SessionStore) Get(identity int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[identity]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.CreatedAt) > s.ttl {
		delete(s.sessions, identity)
		return nil, false
	}
	return sess, true
}

// SetPrompt records the prompt message shown for sess. The stored session is
// replaced by a copy so holders of the old pointer never see the write. It
// reports false when sess is no longer the identity's current session.
func (s *SessionStore) SetPrompt(sess *Session, messageID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[sess.Identity]
	if !ok || cur != sess {
		return false
	}
	cp := *cur
	cp.Prompt = messageID
	s.sessions[sess.Identity] = &cp
	return true
}

// Delete removes sess if it is still the identity's current session. A newer
// session opened while a job ran is left alone.
func (s *SessionStore) Delete(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[sess.Identity]; ok && cur == sess {
		delete(s.sessions, sess.Identity)
	}
}

// Prune drops expired sessions and returns how many were removed.
func (s *SessionStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

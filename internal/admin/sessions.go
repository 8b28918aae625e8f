// ABOUTME: In-memory admin sessions keyed by a uuid cookie.
// ABOUTME: Each session owns one selection ledger and its open editors; idle ones expire.

package admin

import (
	"net/http"
	"sync"
	"time"

	"github.com/2389/pluginadmin/internal/editor"
	"github.com/2389/pluginadmin/internal/selection"
	"github.com/google/uuid"
)

const (
	sessionCookie = "pluginadmin_session"

	// sessionTTL bounds how long an untouched session or editor is kept.
	sessionTTL = 30 * time.Minute
	// maxEditors caps open editors per session; opening one more discards
	// the least recently used.
	maxEditors = 16
)

type openEditor struct {
	ed       *editor.Editor
	lastUsed time.Time
}

type session struct {
	mu       sync.Mutex
	ledger   *selection.Ledger
	editors  map[string]*openEditor
	lastUsed time.Time

	ttl        time.Duration
	maxEditors int
	now        func() time.Time
}

// Sessions holds every live admin session.
type Sessions struct {
	mu         sync.Mutex
	sessions   map[string]*session
	ttl        time.Duration
	maxEditors int
	now        func() time.Time
}

func NewSessions() *Sessions {
	return newSessions(sessionTTL, maxEditors, time.Now)
}

func newSessions(ttl time.Duration, maxOpen int, now func() time.Time) *Sessions {
	return &Sessions{
		sessions:   make(map[string]*session),
		ttl:        ttl,
		maxEditors: maxOpen,
		now:        now,
	}
}

// get returns the caller's session, starting one and setting the cookie if
// the request carries no live session id. Expired sessions are dropped on
// the way.
func (s *Sessions) get(w http.ResponseWriter, r *http.Request) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.ttl {
			delete(s.sessions, id)
		}
	}

	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			sess.lastUsed = now
			return sess
		}
	}

	id := uuid.NewString()
	sess := &session{
		ledger:     selection.New(),
		editors:    make(map[string]*openEditor),
		lastUsed:   now,
		ttl:        s.ttl,
		maxEditors: s.maxEditors,
		now:        s.now,
	}
	s.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/admin",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *Sessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// open registers ed and returns the id its page is addressed by.
func (sess *session) open(ed *editor.Editor) string {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := sess.now()
	var oldestID string
	var oldest time.Time
	for id, oe := range sess.editors {
		if now.Sub(oe.lastUsed) > sess.ttl {
			delete(sess.editors, id)
			continue
		}
		if oldestID == "" || oe.lastUsed.Before(oldest) {
			oldestID, oldest = id, oe.lastUsed
		}
	}
	if len(sess.editors) >= sess.maxEditors && oldestID != "" {
		delete(sess.editors, oldestID)
	}

	id := uuid.NewString()
	sess.editors[id] = &openEditor{ed: ed, lastUsed: now}
	return id
}

func (sess *session) editor(id string) (*editor.Editor, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	oe, ok := sess.editors[id]
	if !ok {
		return nil, false
	}
	now := sess.now()
	if now.Sub(oe.lastUsed) > sess.ttl {
		delete(sess.editors, id)
		return nil, false
	}
	oe.lastUsed = now
	return oe.ed, true
}

func (sess *session) close(id string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	delete(sess.editors, id)
}

package server

import (
	"errors"
	"sync"
	"time"

	"example.com/canview/internal/view"
)

// ErrNoSession is returned for unknown or expired view ids.
var ErrNoSession = errors.New("no such view")

type sessionEntry struct {
	session  *view.Session
	lastSeen time.Time
}

// SessionStore holds the open views. Views are independent of each other and
// are dropped once idle for longer than the TTL.
type SessionStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*sessionEntry
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{ttl: ttl, now: time.Now, entries: make(map[string]*sessionEntry)}
}

// Put stores s under a fresh id.
func (st *SessionStore) Put(s *view.Session) string {
	id := randomID()
	st.mu.Lock()
	st.entries[id] = &sessionEntry{session: s, lastSeen: st.now()}
	st.mu.Unlock()
	return id
}

// Get returns the view and marks it as used.
func (st *SessionStore) Get(id string) (*view.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.entries[id]
	if !ok {
		return nil, ErrNoSession
	}
	now := st.now()
	if st.ttl > 0 && now.Sub(e.lastSeen) > st.ttl {
		delete(st.entries, id)
		return nil, ErrNoSession
	}
	e.lastSeen = now
	return e.session, nil
}

func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.entries[id]; !ok {
		return false
	}
	delete(st.entries, id)
	return true
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}

// Sweep drops every idle view and reports how many were removed.
func (st *SessionStore) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	removed := 0
	for id, e := range st.entries {
		if now.Sub(e.lastSeen) > st.ttl {
			delete(st.entries, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until the returned function is called.
func (st *SessionStore) StartSweeper(interval time.Duration) func() {
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st.Sweep()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

package runtime

import "sync"

// Registry is the single source of truth for which user owns which live
// connection. All mutations are linearizable per user id behind one RWMutex;
// there is no ambient global state, the registry is constructor-injected
// wherever it is needed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register inserts the session as the active one for its user. If the user
// already had a live session, that session is returned displaced: the caller
// is responsible for closing it. The displaced session can no longer
// deregister the new one (see Deregister).
func (r *Registry) Register(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.sessions[s.UserID]
	r.sessions[s.UserID] = s
	return previous
}

// Deregister removes the session only if it is still the registered one for
// its user (compare-and-delete). The boolean result tells the caller whether
// it won the removal: teardown side effects (offline broadcast, typing
// cleanup) must run exactly once, and only for the session that won.
func (r *Registry) Deregister(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[s.UserID]
	if !ok || current != s {
		return false
	}
	delete(r.sessions, s.UserID)
	return true
}

func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// All snapshots the active sessions. Callers iterate the snapshot without
// holding the registry lock, so delivery to one slow connection cannot block
// register/deregister.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.sessions))
	for userID := range r.sessions {
		users = append(users, userID)
	}
	return users
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

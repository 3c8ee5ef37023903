package session

import "sync"

// Session holds the bearer credential of the current admin session. It is
// injected into the gateway, the sync channel and the registry store instead
// of being looked up ambiently, so invalidation has a single well-defined
// path: the gateway's authorization-failure handling and explicit logout.
type Session struct {
	mu    sync.RWMutex
	token string

	onInvalidate []func()
}

// New creates a session holding the given token. An empty token means
// "not yet authenticated".
func New(token string) *Session {
	return &Session{token: token}
}

// Token returns the current credential, or "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a credential is currently held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken installs a fresh credential after external authentication.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// OnInvalidate registers a callback fired when the credential is destroyed.
// Callbacks run outside the session lock.
func (s *Session) OnInvalidate(fn func()) {
	s.mu.Lock()
	s.onInvalidate = append(s.onInvalidate, fn)
	s.mu.Unlock()
}

// Invalidate destroys the credential and fires the registered callbacks.
// Invalidating an already-empty session is a no-op, so a burst of concurrent
// 401 responses tears the session down only once.
func (s *Session) Invalidate() {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	callbacks := make([]func(), len(s.onInvalidate))
	copy(callbacks, s.onInvalidate)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

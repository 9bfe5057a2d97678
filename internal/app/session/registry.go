/*
Package session tracks live connections and the mapping from authenticated
identities to their active connection.

This file defines the Registry. It is mutated concurrently by every
connection's dispatcher goroutine and read concurrently during broadcast, so
all access takes the Registry's lock internally.
*/
package session

import (
	"sync"

	"github.com/rs/zerolog"

	"rasel/internal/pkg/logx"
)

// Registry tracks live sessions and the authenticated-identity mapping.
// The identity map never holds two sessions for the same user ID: a re-auth
// from a second connection displaces the prior binding (last writer wins).
type Registry struct {
	mu sync.RWMutex

	// sessions holds every live session keyed by session ID.
	sessions map[string]*Session

	// identities maps an authenticated user ID to its active session.
	identities map[string]*Session

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		identities: make(map[string]*Session),
		logger:     logx.Logger().With().Str("component", "session_registry").Logger(),
	}
}

// Register records a newly accepted session.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	r.logger.Debug().Str("session_id", s.ID).Int("total_sessions", len(r.sessions)).Msg("Session registered.")
}

// Unregister removes a session on disconnect. The identity binding is cleared
// only if it still points at this session; a displaced session must not tear
// down its successor's binding.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, s.ID)

	if user := s.User(); user != nil {
		if bound, ok := r.identities[user.ID()]; ok && bound == s {
			delete(r.identities, user.ID())
			r.logger.Debug().Str("session_id", s.ID).Str("user_id", user.ID()).Msg("Identity unbound on disconnect.")
		}
	}

	r.logger.Debug().Str("session_id", s.ID).Int("total_sessions", len(r.sessions)).Msg("Session unregistered.")
}

// BindIdentity maps an authenticated user ID to its session, overwriting any
// prior binding for that ID. The displaced session stays connected but stops
// receiving broadcasts.
func (r *Registry) BindIdentity(userID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.identities[userID]; ok && prior != s {
		r.logger.Warn().
			Str("user_id", userID).
			Str("displaced_session_id", prior.ID).
			Str("session_id", s.ID).
			Msg("Identity rebound; prior session displaced.")
	}

	r.identities[userID] = s
}

// UnbindIdentity removes the binding for a user ID.
func (r *Registry) UnbindIdentity(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.identities, userID)
}

// SessionForIdentity returns the live session of an authenticated user, used
// by the dispatcher to locate group members during broadcast. Offline members
// simply have no binding.
func (r *Registry) SessionForIdentity(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.identities[userID]
	return s, ok
}

// All returns a snapshot of every live session, used at shutdown.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IdentityCount returns the number of authenticated identities online.
func (r *Registry) IdentityCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

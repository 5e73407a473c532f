package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds the live attempt sessions, keyed by attempt id. Exactly one
// session is live per attempt; storing a new session for an existing id
// replaces the old one wholesale (there is no merge).
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*AttemptSession
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*AttemptSession)}
}

// Put registers (or replaces) the live session for an attempt.
func (r *Registry) Put(attemptID uuid.UUID, s *AttemptSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[attemptID] = s
}

// Get returns the live session for an attempt, if any.
func (r *Registry) Get(attemptID uuid.UUID) (*AttemptSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[attemptID]
	return s, ok
}

// Delete discards a live session. Abandoning an attempt is exactly this:
// the session is dropped wholesale, never transitioned.
func (r *Registry) Delete(attemptID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, attemptID)
}

// Range calls fn for each live session. fn must not call back into the
// registry. Used by the checkpoint sweeper.
func (r *Registry) Range(fn func(attemptID uuid.UUID, s *AttemptSession)) {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.sessions))
	list := make([]*AttemptSession, 0, len(r.sessions))
	for id, s := range r.sessions {
		ids = append(ids, id)
		list = append(list, s)
	}
	r.mu.RUnlock()

	for i, s := range list {
		fn(ids[i], s)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

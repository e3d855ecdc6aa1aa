package session

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry holds the sessions that are connecting, connected or
// disconnecting. Callers only ever see copies.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]ActiveSession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]ActiveSession)}
}

// Record adds a session. A live session with the same id is an error.
func (r *Registry) Record(s ActiveSession) error {
	if s.Status == "" {
		s.Status = StatusConnected
	}
	if s.Kind == "" {
		s.Kind = KindExternal
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("%s: %w", s.ID, ErrDuplicateSession)
	}
	r.sessions[s.ID] = s
	return nil
}

// Get returns a copy of the session with the given id.
func (r *Registry) Get(id string) (ActiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns all sessions ordered by start time.
func (r *Registry) List() []ActiveSession {
	r.mu.RLock()
	out := make([]ActiveSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Remove deletes the session and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// MarkStatus updates a session's status. StatusDisconnected removes it.
func (r *Registry) MarkStatus(id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	if status == StatusDisconnected {
		delete(r.sessions, id)
		return nil
	}
	s.Status = status
	r.sessions[id] = s
	return nil
}

// MarkConnected moves a connecting session to StatusConnected and records
// its pid and start time. A session that already left StatusConnecting is
// not touched.
func (r *Registry) MarkConnected(id string, pid int, start time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	if s.Status != StatusConnecting {
		return fmt.Errorf("%s is %s: %w", id, s.Status, ErrAlreadyDisconnecting)
	}
	s.Status = StatusConnected
	s.TerminalPID = pid
	s.StartTime = start
	r.sessions[id] = s
	return nil
}

// Claim moves a session to StatusDisconnecting and returns it. Only one
// caller can claim a session; the rest get ErrAlreadyDisconnecting.
func (r *Registry) Claim(id string) (ActiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ActiveSession{}, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	if s.Status == StatusDisconnecting {
		return s, ErrAlreadyDisconnecting
	}
	s.Status = StatusDisconnecting
	r.sessions[id] = s
	return s, nil
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

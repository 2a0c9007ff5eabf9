package remotelab

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry holds named sessions so a host application can route operations
// to an explicit session handle instead of process-wide state.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register adds a session under name. Names are unique.
func (r *Registry) Register(name string, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[name]; exists {
		return fmt.Errorf("session %q already registered", name)
	}

	r.sessions[name] = s

	return nil
}

// Get returns the session registered under name.
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[name]

	return s, ok
}

// Remove deregisters and returns the named session, if present.
// The session is not disconnected.
func (r *Registry) Remove(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[name]
	if ok {
		delete(r.sessions, name)
	}

	return s, ok
}

// Names returns the registered session names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// CloseAll disconnects every registered session and empties the registry.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var errs []error

	for name, s := range sessions {
		if err := s.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %q: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

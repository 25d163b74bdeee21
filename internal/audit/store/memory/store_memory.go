// Package memory provides an in-memory audit store for tests and development.
package memory

import (
	"context"
	"sync"

	"pakngate/internal/audit"
)

// Store appends audit events to an in-memory slice.
type Store struct {
	mu     sync.Mutex
	events []audit.Event
}

// New constructs an empty in-memory audit store.
func New() *Store {
	return &Store{}
}

// Emit appends the event.
func (s *Store) Emit(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *Store) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

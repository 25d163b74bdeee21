// Package throttle guards OTP issuance per case code.
//
// The challenge state machine keeps its own countdown for rendering, but the
// resend guard must hold even when the rendering layer misbehaves or when
// several gateway instances serve the same citizen. Stores answer one
// question: how long until this case code may trigger issuance again.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pakngate/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this pattern:
// - Remaining returns the leftover wait, zero when the window is closed
// - Reserve opens a fresh window unconditionally (callers decide eligibility)
// - Clear removes any window for the case code
// - Infrastructure failures are returned as wrapped errors

// MemoryStore keeps issuance windows in memory. Single-instance deployments
// only; distributed deployments use RedisStore.
type MemoryStore struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
}

// NewMemory constructs an empty in-memory issuance throttle.
func NewMemory() *MemoryStore {
	return &MemoryStore{deadlines: make(map[string]time.Time)}
}

// Remaining reports how long the issuance window for caseCode stays open.
// The time parameter is injected for testability (no hidden time.Now() calls).
func (s *MemoryStore) Remaining(_ context.Context, caseCode string, now time.Time) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.deadlines[caseCode]
	if !ok || !deadline.After(now) {
		delete(s.deadlines, caseCode)
		return 0, nil
	}
	return deadline.Sub(now), nil
}

// Reserve opens an issuance window for caseCode lasting the given duration.
func (s *MemoryStore) Reserve(_ context.Context, caseCode string, window time.Duration, now time.Time) error {
	if window <= 0 {
		return fmt.Errorf("window must be positive: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadlines[caseCode] = now.Add(window)
	return nil
}

// Clear removes the issuance window for caseCode.
func (s *MemoryStore) Clear(_ context.Context, caseCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deadlines, caseCode)
	return nil
}

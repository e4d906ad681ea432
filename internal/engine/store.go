package engine

import (
	"sync"
	"time"

	"building_automation/internal/models"
)

// StateStore holds the last committed DeviceState. Only the Controller commits;
// any goroutine may read.
type StateStore struct {
	mu    sync.RWMutex
	state models.DeviceState
}

// NewStateStore returns a store seeded with initial.
func NewStateStore(initial models.DeviceState) *StateStore {
	return &StateStore{state: initial}
}

// Current returns a copy of the committed state.
func (s *StateStore) Current() models.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// commit replaces the state atomically and records at as LastUpdated.
func (s *StateStore) commit(state models.DeviceState, at time.Time) {
	state.LastUpdated = at
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

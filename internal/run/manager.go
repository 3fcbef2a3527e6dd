package run

import (
	"errors"
	"sync"
)

// ErrRunNotFound is returned by Manager lookups for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// ErrRunActive is returned when starting a run while another is still
// in a non-terminal state.
var ErrRunActive = errors.New("a run is already active")

// Manager tracks runners by ID so transport handlers can address them.
// One active (non-terminal) run is allowed at a time; finished runs stay
// addressable for status queries.
type Manager struct {
	mu      sync.Mutex
	runners map[string]*Runner
	active  *Runner
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		runners: make(map[string]*Runner),
	}
}

// Register records a runner as the active run. It fails when another run is
// still in a non-terminal state.
func (m *Manager) Register(r *Runner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && !m.active.Status().State.Terminal() {
		return ErrRunActive
	}

	m.runners[r.ID()] = r
	m.active = r
	return nil
}

// Get returns the runner with the given ID.
func (m *Manager) Get(id string) (*Runner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runners[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}

// Statuses returns a snapshot of every known run.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	runners := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.mu.Unlock()

	statuses := make([]Status, len(runners))
	for i, r := range runners {
		statuses[i] = r.Status()
	}
	return statuses
}

// StopAll stops every non-terminal run. Used during server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	runners := make([]*Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.mu.Unlock()

	for _, r := range runners {
		if !r.Status().State.Terminal() {
			r.Stop()
		}
	}
}

// Package lifecycle runs the two-pass register/boot lifecycle of an
// ordered set of providers.
package lifecycle

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of the whole provider set.
type State int32

const (
	// Idle means Run has not been called.
	Idle State = iota

	// Booting means Run is executing provider callbacks.
	Booting

	// Booted means every provider has been registered and booted.
	Booted

	// Failed means a provider callback panicked during Run.
	Failed
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Booting:
		return "Booting"
	case Booted:
		return "Booted"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Hooks are the callbacks Run and Add invoke for each provider.
type Hooks[P any] struct {
	Register func(P)
	Boot     func(P)
}

type entry[P any] struct {
	provider   P
	registered bool
	booted     bool
}

// Manager owns an ordered provider list. No provider's Boot runs
// before every provider known at that point has been registered.
type Manager[P any] struct {
	mu      sync.Mutex
	state   State
	entries []*entry[P]
}

// New creates an idle manager.
func New[P any]() *Manager[P] {
	return &Manager[P]{}
}

// State returns the current state.
func (m *Manager[P]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Add appends p. Before Run, p waits for the register pass. During Run,
// the running passes pick it up. After Run, p is registered and booted
// before Add returns.
func (m *Manager[P]) Add(p P, h Hooks[P]) {
	m.add(p, false, h)
}

// AddRegistered appends p whose Register step has already run. Once
// booted, p is booted before AddRegistered returns.
func (m *Manager[P]) AddRegistered(p P, h Hooks[P]) {
	m.add(p, true, h)
}

func (m *Manager[P]) add(p P, registered bool, h Hooks[P]) {
	m.mu.Lock()
	e := &entry[P]{provider: p, registered: registered}
	m.entries = append(m.entries, e)

	late := m.state == Booted
	runRegister := late && !e.registered
	if late {
		e.registered, e.booted = true, true
	}
	m.mu.Unlock()

	if runRegister {
		h.Register(p)
	}
	if late {
		h.Boot(p)
	}
}

// Run executes Register on every provider in insertion order, then Boot on
// every provider in insertion order. It returns false without calling
// anything when the manager is not idle. A panicking callback leaves the
// manager Failed and the panic propagates.
func (m *Manager[P]) Run(h Hooks[P]) bool {
	m.mu.Lock()
	if m.state != Idle {
		m.mu.Unlock()
		return false
	}
	m.state = Booting
	m.mu.Unlock()

	completed := false
	defer func() {
		if !completed {
			m.mu.Lock()
			m.state = Failed
			m.mu.Unlock()
		}
	}()

	for i := 0; ; i++ {
		m.mu.Lock()
		if i >= len(m.entries) {
			m.mu.Unlock()
			break
		}
		e := m.entries[i]
		claim := !e.registered
		e.registered = true
		m.mu.Unlock()

		if claim {
			h.Register(e.provider)
		}
	}

	for i := 0; ; i++ {
		m.mu.Lock()
		if i >= len(m.entries) {
			m.state = Booted
			m.mu.Unlock()
			break
		}
		e := m.entries[i]
		register := !e.registered
		boot := !e.booted
		e.registered, e.booted = true, true
		m.mu.Unlock()

		if register {
			h.Register(e.provider)
		}
		if boot {
			h.Boot(e.provider)
		}
	}

	completed = true
	return true
}

// Providers returns the providers in insertion order.
func (m *Manager[P]) Providers() []P {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]P, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.provider
	}
	return out
}

// Len returns the number of providers.
func (m *Manager[P]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

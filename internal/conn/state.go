package conn

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gigwire/gigwire/internal/bus"
)

// State represents the process-wide connection state. It drives the
// connection banner in the UI and the drain trigger.
type State string

const (
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
	Disconnected State = "DISCONNECTED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Connecting:   {Connected, Disconnected},
	Connected:    {Connecting, Disconnected},
	Disconnected: {Connecting},
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Connecting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Connecting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindConnStatusChanged,
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}

package statemachine

import "sync"

// Guard decides whether a transition may fire given caller supplied data.
type Guard[S, E comparable, D any] func(from S, event E, data D) bool

type key[S, E comparable] struct {
	from  S
	event E
}

type transition[S, E comparable, D any] struct {
	to     S
	guards []Guard[S, E, D]
}

// Table is an immutable transition table. Next is a pure function of
// (state, event, data), so a Table is safe for concurrent use.
type Table[S, E comparable, D any] struct {
	transitions map[key[S, E]][]transition[S, E, D]
	events      []E
}

// Next returns the target of the first registered transition for (from, event)
// whose guards all pass.
func (t *Table[S, E, D]) Next(from S, event E, data D) (S, error) {
	candidates, ok := t.transitions[key[S, E]{from, event}]
	if !ok {
		return from, &ErrNoTransition{State: from, Event: event}
	}
	for _, tr := range candidates {
		if allow(tr.guards, from, event, data) {
			return tr.to, nil
		}
	}
	return from, &ErrTransitionRejected{State: from, Event: event}
}

// CanFire reports whether Next would succeed.
func (t *Table[S, E, D]) CanFire(from S, event E, data D) bool {
	_, err := t.Next(from, event, data)
	return err == nil
}

// Available lists the events that can fire from state, in registration order.
func (t *Table[S, E, D]) Available(from S, data D) []E {
	var out []E
	for _, e := range t.events {
		if t.CanFire(from, e, data) {
			out = append(out, e)
		}
	}
	return out
}

func allow[S, E comparable, D any](guards []Guard[S, E, D], from S, event E, data D) bool {
	for _, g := range guards {
		if !g(from, event, data) {
			return false
		}
	}
	return true
}

// Machine tracks a current state on top of a Table.
type Machine[S, E comparable, D any] struct {
	table   *Table[S, E, D]
	initial S

	mu      sync.RWMutex
	current S
}

func NewMachine[S, E comparable, D any](table *Table[S, E, D], initial S) *Machine[S, E, D] {
	return &Machine[S, E, D]{table: table, initial: initial, current: initial}
}

func (m *Machine[S, E, D]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Fire moves to the next state or leaves the machine untouched on error.
func (m *Machine[S, E, D]) Fire(event E, data D) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.table.Next(m.current, event, data)
	if err != nil {
		return err
	}
	m.current = next
	return nil
}

func (m *Machine[S, E, D]) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
}

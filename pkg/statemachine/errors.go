package statemachine

import "fmt"

// ErrNoTransition means no rule is registered for the state and event.
type ErrNoTransition struct {
	State any
	Event any
}

func (e *ErrNoTransition) Error() string {
	return fmt.Sprintf("statemachine: no transition from %v on %v", e.State, e.Event)
}

// ErrTransitionRejected means rules exist but every one was blocked by a guard.
type ErrTransitionRejected struct {
	State any
	Event any
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("statemachine: transition from %v on %v rejected by guards", e.State, e.Event)
}

// Package statemachine implements finite state machines as guarded
// transition tables over comparable state and event types.
//
// A Table is built once and never changes; its Next method is a pure
// function, which makes it suitable for request-scoped UI state that lives
// on the client. Machine adds a mutable current state for long-lived
// objects.
package statemachine

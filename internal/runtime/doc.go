// Package runtime wires the world registry to the move validator, the state
// manager, the problem compiler and the external planner.
//
// An Engine never owns dialogue states. Callers (the root package, the session
// manager, transports) hand a state in and persist it afterwards.
package runtime

package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrMalformedMove is returned when a move token has the wrong shape for its verb.
var ErrMalformedMove = errors.New("malformed move")

// ErrUnknownVerb is returned when a move token starts with an unrecognised verb.
var ErrUnknownVerb = errors.New("unknown move verb")

// ErrIllegalMove is returned when strict mode rejects a move that is not currently legal.
var ErrIllegalMove = errors.New("illegal move")

// ErrUnknownContext is returned when a move or state references a context the world does not define.
var ErrUnknownContext = errors.New("unknown context")

// ErrUnknownPersona is returned when a persona id is not defined by the world.
var ErrUnknownPersona = errors.New("unknown persona")

// ErrNoStartContext is returned when neither the persona nor the world declares a start context.
var ErrNoStartContext = errors.New("no start context")

// ErrNoPlanFound is returned by planners when the goal is unreachable.
var ErrNoPlanFound = errors.New("no plan found")

// ErrPlannerTimeout is returned when the solver exceeds its time budget.
var ErrPlannerTimeout = errors.New("planner timed out")

// ErrNoPlanner is returned when planning is requested but no solver is configured.
var ErrNoPlanner = errors.New("no planner configured")

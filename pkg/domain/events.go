package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventMoveApplied  EventType = "move_applied"
	EventMoveRejected EventType = "move_rejected"
	EventPlanFinished EventType = "plan_finished"
	EventWorldLoaded  EventType = "world_loaded"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// MoveEvent reports the outcome of applying a move.
type MoveEvent struct {
	EventBase
	Move    string     `json:"move"`
	Verb    string     `json:"verb"`
	Persona string     `json:"persona,omitempty"`
	Diff    *StateDiff `json:"diff,omitempty"`
	Err     error      `json:"-"`
}

// PlanOutcome classifies a planning attempt.
type PlanOutcome string

const (
	PlanSolved     PlanOutcome = "solved"
	PlanUnsolvable PlanOutcome = "unsolvable"
	PlanTimeout    PlanOutcome = "timeout"
	PlanError      PlanOutcome = "error"
)

// PlanEvent reports a finished call to the planner.
type PlanEvent struct {
	EventBase
	Goal     string        `json:"goal"`
	Steps    int           `json:"steps"`
	Outcome  PlanOutcome   `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// WorldEvent reports a (re)load of the world content.
type WorldEvent struct {
	EventBase
	Contexts  int `json:"contexts"`
	Triggers  int `json:"triggers"`
	Personas  int `json:"personas"`
	Locations int `json:"locations"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnMoveApplied  func(context.Context, *MoveEvent)
	OnMoveRejected func(context.Context, *MoveEvent)
	OnPlanFinished func(context.Context, *PlanEvent)
	OnWorldLoaded  func(context.Context, *WorldEvent)
}

// Merge returns hooks that call h first and then other, for every callback either defines.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnMoveApplied:  chain(h.OnMoveApplied, other.OnMoveApplied),
		OnMoveRejected: chain(h.OnMoveRejected, other.OnMoveRejected),
		OnPlanFinished: chain(h.OnPlanFinished, other.OnPlanFinished),
		OnWorldLoaded:  chain(h.OnWorldLoaded, other.OnWorldLoaded),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

package ports

import "context"

// Planner is an external STRIPS-style solver.
// Solve returns the plan as one action token per step, or domain.ErrNoPlanFound
// when the problem has no solution. Implementations must honour ctx cancellation.
type Planner interface {
	Solve(ctx context.Context, domainText, problemText string) ([]string, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, domainText, problemText string) ([]string, error)

func (f PlannerFunc) Solve(ctx context.Context, domainText, problemText string) ([]string, error) {
	return f(ctx, domainText, problemText)
}

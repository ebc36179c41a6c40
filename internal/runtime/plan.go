package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/compiler"
	"github.com/VasyaLutiy/daqs-v5.0/internal/diagnostics"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PlanResult is the outcome of a planning request. On failure Diagnosis
// explains it when possible.
type PlanResult struct {
	Goal  string        `json:"goal"`
	Moves []domain.Move `json:"-"`
	// Route holds the steps of a navigation plan, which are not dialogue moves.
	Route     []string               `json:"route,omitempty"`
	Diagnosis *diagnostics.Diagnosis `json:"diagnosis,omitempty"`
	Duration  time.Duration          `json:"duration"`
}

// Tokens renders the plan steps.
func (r *PlanResult) Tokens() []string {
	if r.Route != nil {
		return r.Route
	}
	return domain.Tokens(r.Moves)
}

// Plan asks the planner for a sequence of moves reaching goal from state.
// The result is returned even on failure: domain.ErrNoPlanFound and
// domain.ErrPlannerTimeout come with a diagnosis.
func (e *Engine) Plan(ctx context.Context, state *domain.DialogueState, goal compiler.Goal) (*PlanResult, error) {
	ctx, span := e.tracer.Start(ctx, "daqs.plan", trace.WithAttributes(
		attribute.String("daqs.goal", goal.String()),
		attribute.String("daqs.persona", state.ActivePersona),
		attribute.String("daqs.context", state.CurrentContext),
	))
	defer span.End()

	comp, err := e.Compile(state, goal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return e.solve(ctx, span, state.SessionID, comp, nil)
}

// PlanNavigation plans a physical route for player toward goal, a location id
// or a goal expression.
func (e *Engine) PlanNavigation(ctx context.Context, player domain.PlayerState, goal string) (*PlanResult, error) {
	ctx, span := e.tracer.Start(ctx, "daqs.plan_navigation", trace.WithAttributes(
		attribute.String("daqs.goal", goal),
		attribute.String("daqs.location", player.CurrentLocation),
	))
	defer span.End()

	comp, err := e.CompileNavigation(player, goal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return e.solve(ctx, span, "", comp, &player)
}

func (e *Engine) solve(ctx context.Context, span trace.Span, session string, comp *compiler.Compilation, player *domain.PlayerState) (*PlanResult, error) {
	goal := comp.Problem.Goal
	res := &PlanResult{Goal: goal}
	if e.planner == nil {
		span.SetStatus(codes.Error, domain.ErrNoPlanner.Error())
		return res, domain.ErrNoPlanner
	}

	solveCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	lines, err := e.await(solveCtx, comp)
	res.Duration = time.Since(start)

	outcome := domain.PlanSolved
	switch {
	case err == nil && player != nil:
		res.Route = routeSteps(comp.Canonical(lines))
	case err == nil:
		res.Moves, err = domain.ParsePlan(comp.Canonical(lines))
		if err != nil {
			outcome = domain.PlanError
			err = fmt.Errorf("parse plan: %w", err)
		}
	case errors.Is(err, domain.ErrPlannerTimeout) || errors.Is(solveCtx.Err(), context.DeadlineExceeded):
		outcome = domain.PlanTimeout
		d := diagnostics.Timeout(goal, e.timeout)
		res.Diagnosis = &d
		err = fmt.Errorf("%w after %s", domain.ErrPlannerTimeout, e.timeout)
	case errors.Is(err, domain.ErrNoPlanFound):
		outcome = domain.PlanUnsolvable
		d := e.explainer.Explain(comp.Domain, comp.ProblemText(), player)
		res.Diagnosis = &d
	default:
		outcome = domain.PlanError
		err = fmt.Errorf("planner: %w", err)
	}

	span.SetAttributes(
		attribute.String("daqs.outcome", string(outcome)),
		attribute.Int("daqs.steps", len(res.Tokens())),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Info("planning failed", "goal", goal, "outcome", outcome, "err", err)
	} else {
		e.logger.Debug("plan found", "goal", goal, "steps", len(res.Tokens()), "duration", res.Duration)
	}

	if e.hooks.OnPlanFinished != nil {
		e.hooks.OnPlanFinished(ctx, &domain.PlanEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventPlanFinished, SessionID: session},
			Goal:      goal,
			Steps:     len(res.Tokens()),
			Outcome:   outcome,
			Duration:  res.Duration,
		})
	}
	return res, err
}

type solution struct {
	lines []string
	err   error
}

// await runs the planner and returns when it answers or ctx ends, whichever
// comes first. A planner that ignores ctx keeps running in the background and
// its late answer is dropped.
func (e *Engine) await(ctx context.Context, comp *compiler.Compilation) ([]string, error) {
	problem := comp.ProblemText()
	done := make(chan solution, 1)
	go func() {
		lines, err := e.planner.Solve(ctx, comp.Domain, problem)
		done <- solution{lines: lines, err: err}
	}()
	select {
	case s := <-done:
		return s.lines, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// routeSteps drops comments and blank lines and strips the parentheses.
func routeSteps(lines []string) []string {
	out := []string{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		out = append(out, strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "("), ")")))
	}
	return out
}

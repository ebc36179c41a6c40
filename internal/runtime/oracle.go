package runtime

import (
	"context"
	"fmt"

	"github.com/VasyaLutiy/daqs-v5.0/internal/compiler"
	"github.com/VasyaLutiy/daqs-v5.0/internal/diagnostics"
	"github.com/VasyaLutiy/daqs-v5.0/internal/pathfind"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// MapKind selects the graph an oracle query runs on.
type MapKind string

const (
	MapContexts MapKind = "contexts"
	MapWorld    MapKind = "world_map"
)

// Requirements answers "what does it take to get from start to goal".
type Requirements struct {
	// Requirements are the concepts acquired along the way, in plan order.
	Requirements []string `json:"requirements"`
	// Path lists the nodes entered, start first.
	Path      []string               `json:"path"`
	Moves     []string               `json:"moves,omitempty"`
	Diagnosis *diagnostics.Diagnosis `json:"diagnosis,omitempty"`
}

// PathRequirements is the hint oracle. On the context graph it first looks for
// a route over contexts that are already open and only asks the planner when
// locks are in the way. On the world map it runs a plain A* search.
// state is optional and supplies persona, concepts and opened contexts.
func (e *Engine) PathRequirements(ctx context.Context, kind MapKind, start, goal string, state *domain.DialogueState) (*Requirements, error) {
	store, err := e.registry.Current()
	if err != nil {
		return nil, err
	}

	switch kind {
	case MapWorld:
		path, ok := pathfind.NavigationPath(store, start, goal, nil)
		if !ok {
			return nil, fmt.Errorf("%w: no route from %q to %q", domain.ErrNoPlanFound, start, goal)
		}
		return &Requirements{Requirements: []string{}, Path: path}, nil
	case MapContexts, "":
	default:
		return nil, fmt.Errorf("unknown map kind %q", kind)
	}

	var s *domain.DialogueState
	if state == nil {
		s = domain.NewDialogueState("", start)
	} else {
		s = state.Clone()
		s.Normalize()
		s.CurrentContext = start
		s.Visited.Add(start)
	}
	view := store.ForPersona(s.ActivePersona)
	if !view.HasContext(start) || !view.HasContext(goal) {
		return nil, fmt.Errorf("%w: %q -> %q", domain.ErrUnknownContext, start, goal)
	}

	if path, ok := pathfind.DialoguePath(view, start, goal, s.UnlockedContexts, s.Visited); ok {
		return &Requirements{Requirements: []string{}, Path: path}, nil
	}
	if e.planner == nil {
		return nil, fmt.Errorf("no open route from %q to %q: %w", start, goal, domain.ErrNoPlanner)
	}

	res, err := e.Plan(ctx, s, compiler.Goal{Context: goal})
	if err != nil {
		out := &Requirements{}
		if res != nil {
			out.Diagnosis = res.Diagnosis
		}
		return out, err
	}

	out := &Requirements{Requirements: []string{}, Path: []string{start}, Moves: res.Tokens()}
	seen := domain.NewSet()
	gain := func(k string) {
		if seen.Add(k) {
			out.Requirements = append(out.Requirements, k)
		}
	}
	for _, mv := range res.Moves {
		switch m := mv.(type) {
		case domain.ConceptLearn:
			gain(m.Concept)
		case domain.TriggerActivate:
			gain(m.Concept)
		case domain.NpcOffer:
			gain(m.Concept)
		case domain.NpcFlirt:
			gain(m.Concept)
		case domain.ContextShift:
			out.Path = append(out.Path, m.To)
		case domain.ConceptUnlock:
			out.Path = append(out.Path, m.To)
		case domain.ComboUnlock:
			out.Path = append(out.Path, m.To)
		case domain.ComplexUnlock:
			out.Path = append(out.Path, m.To)
		}
	}
	return out, nil
}

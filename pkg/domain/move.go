package domain

import (
	"fmt"
	"strings"
)

// Verbs of the move grammar. Complex unlocks use the "deploy-" prefix and
// persona behaviors the "do_" prefix followed by the action or rule id.
const (
	VerbShiftContext    = "shift-context"
	VerbLearnConcept    = "learn-concept"
	VerbActivateTrigger = "activate-trigger"
	VerbApplyConcept    = "apply-concept"
	VerbApplyCombo      = "apply-combo-concept"
	VerbNpcOffer        = "npc-offer"
	VerbNpcFlirt        = "npc-flirt"
	PrefixDeploy        = "deploy-"
	PrefixBehavior      = "do_"
)

// Move is one legal action in the dialogue. The set of implementations is closed:
// every move knows its verb and renders itself in the token grammar shared with
// the planner ("verb arg1 arg2 ...").
type Move interface {
	Verb() string
	String() string
	isMove()
}

// ContextShift moves the agent along an open connection.
type ContextShift struct {
	Agent, From, To string
}

// ConceptLearn acquires the concept provided by the current context.
type ConceptLearn struct {
	Agent, Context, Concept string
}

// TriggerActivate fires a trigger and acquires the concept it yields.
type TriggerActivate struct {
	Agent, Context, Trigger, Concept string
}

// ConceptUnlock opens a locked context with its required concept and enters it.
type ConceptUnlock struct {
	Agent, From, To, Concept string
}

// ComboUnlock opens a context gated by two concepts and enters it.
type ComboUnlock struct {
	Agent, From, To, First, Second string
}

// ComplexUnlock is a named multi-requirement unlock ("deploy-*").
// Requires is informational; tokens coming back from a planner omit it.
type ComplexUnlock struct {
	Action          string
	Agent, From, To string
	Requires        []string
}

// NpcOffer is an NPC-initiated partnership offer that grants a concept.
type NpcOffer struct {
	Agent, Context, Trigger, Concept string
}

// NpcFlirt is an NPC-initiated flirt that grants a concept.
type NpcFlirt struct {
	Agent, Context, Trigger, Concept string
}

// PersonaBehavior performs a mood-gated persona rule, optionally with a tagged item.
type PersonaBehavior struct {
	Rule, Agent string
	Item, Tag   string
}

func (ContextShift) isMove()    {}
func (ConceptLearn) isMove()    {}
func (TriggerActivate) isMove() {}
func (ConceptUnlock) isMove()   {}
func (ComboUnlock) isMove()     {}
func (ComplexUnlock) isMove()   {}
func (NpcOffer) isMove()        {}
func (NpcFlirt) isMove()        {}
func (PersonaBehavior) isMove() {}

func (ContextShift) Verb() string    { return VerbShiftContext }
func (ConceptLearn) Verb() string    { return VerbLearnConcept }
func (TriggerActivate) Verb() string { return VerbActivateTrigger }
func (ConceptUnlock) Verb() string   { return VerbApplyConcept }
func (ComboUnlock) Verb() string     { return VerbApplyCombo }
func (m ComplexUnlock) Verb() string { return m.Action }
func (NpcOffer) Verb() string        { return VerbNpcOffer }
func (NpcFlirt) Verb() string        { return VerbNpcFlirt }
func (m PersonaBehavior) Verb() string {
	return PrefixBehavior + m.Rule
}

func (m ContextShift) String() string { return join(m.Verb(), m.Agent, m.From, m.To) }
func (m ConceptLearn) String() string { return join(m.Verb(), m.Agent, m.Context, m.Concept) }
func (m TriggerActivate) String() string {
	return join(m.Verb(), m.Agent, m.Context, m.Trigger, m.Concept)
}
func (m ConceptUnlock) String() string { return join(m.Verb(), m.Agent, m.From, m.To, m.Concept) }
func (m ComboUnlock) String() string {
	return join(m.Verb(), m.Agent, m.From, m.To, m.First, m.Second)
}
func (m ComplexUnlock) String() string {
	return join(append([]string{m.Verb(), m.Agent, m.From, m.To}, m.Requires...)...)
}
func (m NpcOffer) String() string { return join(m.Verb(), m.Agent, m.Context, m.Trigger, m.Concept) }
func (m NpcFlirt) String() string { return join(m.Verb(), m.Agent, m.Context, m.Trigger, m.Concept) }
func (m PersonaBehavior) String() string {
	if m.Item == "" {
		return join(m.Verb(), m.Agent)
	}
	return join(m.Verb(), m.Agent, m.Item, m.Tag)
}

func join(tokens ...string) string {
	return strings.Join(tokens, " ")
}

// ParseMove parses a move token. Surrounding parentheses, as printed by most
// planners, are accepted. Malformed tokens yield ErrMalformedMove and unknown
// verbs ErrUnknownVerb.
func ParseMove(token string) (Move, error) {
	s := strings.TrimSpace(token)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	f := strings.Fields(s)
	if len(f) == 0 {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedMove)
	}
	verb, args := f[0], f[1:]

	arity := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s wants %d arguments, got %d in %q", ErrMalformedMove, verb, n, len(args), token)
		}
		return nil
	}

	switch {
	case verb == VerbShiftContext:
		if err := arity(3); err != nil {
			return nil, err
		}
		return ContextShift{Agent: args[0], From: args[1], To: args[2]}, nil
	case verb == VerbLearnConcept:
		if err := arity(3); err != nil {
			return nil, err
		}
		return ConceptLearn{Agent: args[0], Context: args[1], Concept: args[2]}, nil
	case verb == VerbActivateTrigger:
		if err := arity(4); err != nil {
			return nil, err
		}
		return TriggerActivate{Agent: args[0], Context: args[1], Trigger: args[2], Concept: args[3]}, nil
	case verb == VerbApplyConcept:
		if err := arity(4); err != nil {
			return nil, err
		}
		return ConceptUnlock{Agent: args[0], From: args[1], To: args[2], Concept: args[3]}, nil
	case verb == VerbApplyCombo:
		if err := arity(5); err != nil {
			return nil, err
		}
		return ComboUnlock{Agent: args[0], From: args[1], To: args[2], First: args[3], Second: args[4]}, nil
	case verb == VerbNpcOffer:
		if err := arity(4); err != nil {
			return nil, err
		}
		return NpcOffer{Agent: args[0], Context: args[1], Trigger: args[2], Concept: args[3]}, nil
	case verb == VerbNpcFlirt:
		if err := arity(4); err != nil {
			return nil, err
		}
		return NpcFlirt{Agent: args[0], Context: args[1], Trigger: args[2], Concept: args[3]}, nil
	case strings.HasPrefix(verb, PrefixDeploy) && len(verb) > len(PrefixDeploy):
		if len(args) < 3 {
			return nil, fmt.Errorf("%w: %s wants at least 3 arguments in %q", ErrMalformedMove, verb, token)
		}
		m := ComplexUnlock{Action: verb, Agent: args[0], From: args[1], To: args[2]}
		if len(args) > 3 {
			m.Requires = append([]string(nil), args[3:]...)
		}
		return m, nil
	case strings.HasPrefix(verb, PrefixBehavior) && len(verb) > len(PrefixBehavior):
		m := PersonaBehavior{Rule: strings.TrimPrefix(verb, PrefixBehavior)}
		switch len(args) {
		case 1:
			m.Agent = args[0]
		case 3:
			m.Agent, m.Item, m.Tag = args[0], args[1], args[2]
		default:
			return nil, fmt.Errorf("%w: %s wants 1 or 3 arguments, got %d in %q", ErrMalformedMove, verb, len(args), token)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVerb, verb)
}

// ParsePlan parses planner output lines into moves. Blank lines and ";" comments
// (e.g. the cost footer many planners print) are skipped.
func ParsePlan(lines []string) ([]Move, error) {
	moves := make([]Move, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		m, err := ParseMove(line)
		if err != nil {
			return nil, fmt.Errorf("plan step %d: %w", i+1, err)
		}
		moves = append(moves, m)
	}
	return moves, nil
}

// Tokens renders moves back to their string form.
func Tokens(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

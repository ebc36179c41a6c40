package moves

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
)

// DefaultAgent is the agent id used in move tokens.
const DefaultAgent = "player"

// Validator enumerates the legal moves of a dialogue state.
// It mirrors the preconditions of the planning domain so that every move it
// emits is also applicable for the planner, and vice versa.
type Validator struct {
	store  *world.Store
	agent  string
	policy NPCPolicy
	logger *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithAgent sets the agent id written into move tokens.
func WithAgent(agent string) Option {
	return func(v *Validator) { v.agent = agent }
}

// WithNPCPolicy replaces the NPC initiative policy.
func WithNPCPolicy(p NPCPolicy) Option {
	return func(v *Validator) { v.policy = p }
}

// New creates a Validator over the base store. Persona views are resolved per call.
func New(store *world.Store, opts ...Option) *Validator {
	v := &Validator{
		store:  store,
		agent:  DefaultAgent,
		policy: DefaultNPCPolicy(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Agent returns the agent id used in tokens.
func (v *Validator) Agent() string { return v.agent }

// Policy returns the NPC initiative policy.
func (v *Validator) Policy() NPCPolicy { return v.policy }

// LegalMoves returns every legal move in a deterministic order: per neighbor
// unlocks then shift, then learning, triggers, NPC initiative and behaviors.
// An unknown current context yields no moves.
func (v *Validator) LegalMoves(state *domain.DialogueState) []domain.Move {
	view := v.store.ForPersona(state.ActivePersona)
	cur, ok := view.Context(state.CurrentContext)
	if !ok {
		v.logger.Warn("current context not found", "context", state.CurrentContext)
		return nil
	}
	persona, _ := view.ActivePersona()
	owned := state.OwnedConcepts

	var out []domain.Move

	for _, id := range view.Neighbors(cur.ID) {
		target, _ := view.Context(id)
		out = append(out, v.unlocks(cur.ID, target, state)...)
		if view.Open(id, state.UnlockedContexts) {
			out = append(out, domain.ContextShift{Agent: v.agent, From: cur.ID, To: id})
		}
	}

	if k := cur.Properties.ProvidesConcept; k != "" && !owned.Has(k) {
		out = append(out, domain.ConceptLearn{Agent: v.agent, Context: cur.ID, Concept: k})
	}

	for _, id := range view.TriggerIDs() {
		t, _ := view.Trigger(id)
		if TriggerEnabled(t, cur.ID, persona, owned) {
			out = append(out, domain.TriggerActivate{Agent: v.agent, Context: cur.ID, Trigger: t.ID, Concept: t.Yields})
		}
	}

	if m, ok := v.policy.Initiative(v.agent, persona, state); ok {
		out = append(out, m)
	}

	// The first declaration of a rule id wins, as in the compiled domain.
	seen := domain.NewSet()
	for _, rule := range persona.BehaviorRules {
		if rule.ID == "" || !seen.Add(rule.ID) {
			continue
		}
		out = append(out, v.behaviors(rule, persona, state)...)
	}
	return out
}

func (v *Validator) unlocks(from string, target domain.Context, state *domain.DialogueState) []domain.Move {
	var out []domain.Move
	owned := state.OwnedConcepts
	p := target.Properties

	if p.IsLocked && !state.UnlockedContexts.Has(target.ID) {
		if p.RequiredConcept != "" && owned.Has(p.RequiredConcept) {
			out = append(out, domain.ConceptUnlock{Agent: v.agent, From: from, To: target.ID, Concept: p.RequiredConcept})
		}
		if p.HasCombo() && owned.Has(p.RequiredCombo[0]) && owned.Has(p.RequiredCombo[1]) {
			out = append(out, domain.ComboUnlock{
				Agent: v.agent, From: from, To: target.ID,
				First: p.RequiredCombo[0], Second: p.RequiredCombo[1],
			})
		}
	}

	for _, ua := range p.UnlockActions {
		if !ValidUnlockAction(ua.Action) {
			v.logger.Debug("skipping unlock action without deploy- prefix", "context", target.ID, "action", ua.Action)
			continue
		}
		if !ownsAll(owned, ua.Requires) {
			continue
		}
		out = append(out, domain.ComplexUnlock{
			Action: ua.Action, Agent: v.agent, From: from, To: target.ID,
			Requires: append([]string(nil), ua.Requires...),
		})
	}
	return out
}

// behaviors grounds rule once per equipped item carrying its tag.
func (v *Validator) behaviors(rule domain.BehaviorRule, persona domain.Persona, state *domain.DialogueState) []domain.Move {
	if rule.Mood != "" && rule.Mood != state.CurrentMood {
		return nil
	}
	tag := rule.Tag()
	if tag == "" {
		return []domain.Move{domain.PersonaBehavior{Rule: rule.ID, Agent: v.agent}}
	}
	var out []domain.Move
	for _, item := range persona.Equipment.ItemsByTag(tag, rule.Worn()) {
		out = append(out, domain.PersonaBehavior{Rule: rule.ID, Agent: v.agent, Item: item.ID, Tag: tag})
	}
	return out
}

// TriggerEnabled reports whether t can fire from context cur for persona given owned concepts.
func TriggerEnabled(t domain.Trigger, cur string, persona domain.Persona, owned domain.Set) bool {
	if t.Yields == "" || owned.Has(t.Yields) {
		return false
	}
	if !t.Global() && t.ParentContext != cur {
		return false
	}
	if t.Requires != "" && !owned.Has(t.Requires) {
		return false
	}
	return t.RequiredTag == "" || persona.HasTag(t.RequiredTag)
}

// ValidUnlockAction reports whether name can be used as a complex unlock verb.
func ValidUnlockAction(name string) bool {
	return strings.HasPrefix(name, domain.PrefixDeploy) && len(name) > len(domain.PrefixDeploy) && !strings.ContainsAny(name, " \t()")
}

func ownsAll(owned domain.Set, ids []string) bool {
	for _, id := range ids {
		if !owned.Has(id) {
			return false
		}
	}
	return true
}

// IsLegal reports whether m is among the legal moves of state. Requirement
// lists of complex unlocks are ignored, as planners do not print them.
func (v *Validator) IsLegal(state *domain.DialogueState, m domain.Move) bool {
	want := Key(m)
	for _, legal := range v.LegalMoves(state) {
		if Key(legal) == want {
			return true
		}
	}
	return false
}

// Key renders m in a canonical form for comparison. Combo concepts compare
// as an unordered pair.
func Key(m domain.Move) string {
	switch mv := m.(type) {
	case domain.ComplexUnlock:
		mv.Requires = nil
		return mv.String()
	case domain.ComboUnlock:
		if mv.Second < mv.First {
			mv.First, mv.Second = mv.Second, mv.First
		}
		return mv.String()
	}
	return m.String()
}

// AvailableContexts returns the distinct contexts reachable by a plain shift, sorted.
func (v *Validator) AvailableContexts(state *domain.DialogueState) []string {
	set := domain.NewSet()
	for _, m := range v.LegalMoves(state) {
		if s, ok := m.(domain.ContextShift); ok {
			set.Add(s.To)
		}
	}
	return set.Sorted()
}

// AvailableTriggers returns the triggers that can be activated now, in id order.
func (v *Validator) AvailableTriggers(state *domain.DialogueState) []string {
	var out []string
	for _, m := range v.LegalMoves(state) {
		if t, ok := m.(domain.TriggerActivate); ok {
			out = append(out, t.Trigger)
		}
	}
	return out
}

// Analysis summarises what a move costs and what it opens.
type Analysis struct {
	Verb         string   `json:"verb"`
	Complexity   int      `json:"complexity"`
	Requirements []string `json:"requirements,omitempty"`
	Unlocks      []string `json:"unlocks,omitempty"`
}

// Analyze rates the complexity of a move, from plain shifts (1) to complex unlocks (4).
func Analyze(m domain.Move) Analysis {
	a := Analysis{Verb: m.Verb(), Complexity: 1}
	switch mv := m.(type) {
	case domain.TriggerActivate:
		a.Complexity = 2
		a.Requirements = []string{mv.Concept}
	case domain.NpcOffer, domain.NpcFlirt, domain.ConceptLearn:
		a.Complexity = 2
	case domain.ConceptUnlock:
		a.Complexity = 3
		a.Requirements = []string{mv.Concept}
		a.Unlocks = []string{mv.To}
	case domain.ComboUnlock:
		a.Complexity = 3
		a.Requirements = []string{mv.First, mv.Second}
		a.Unlocks = []string{mv.To}
	case domain.ComplexUnlock:
		a.Complexity = 4
		a.Requirements = append([]string(nil), mv.Requires...)
		sort.Strings(a.Requirements)
		a.Unlocks = []string{mv.To}
	}
	return a
}

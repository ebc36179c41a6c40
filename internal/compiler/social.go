package compiler

import (
	"fmt"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
)

// Goal selects what the planner must achieve. Context compiles to
// (visited Context); Expr, when set, is used verbatim instead.
type Goal struct {
	Context string
	Expr    string
}

// String renders the goal expression.
func (g Goal) String() string {
	if g.Expr != "" {
		return g.Expr
	}
	return "(visited " + g.Context + ")"
}

var socialTypes = []string{"context", "concept", "trigger", "agent", "item", "tag", "mood"}

// Social compiles the dialogue graph, the persona and state into the social
// domain and a problem whose goal is g. The persona's world overrides are in
// effect. The goal context is never compiled as locked.
func (c *Compiler) Social(state *domain.DialogueState, g Goal) (*Compilation, error) {
	view := c.store.ForPersona(state.ActivePersona)
	persona, _ := view.ActivePersona()

	if g.Expr == "" && !view.HasContext(g.Context) {
		return nil, fmt.Errorf("%w: goal %q", domain.ErrUnknownContext, g.Context)
	}
	g.Expr = strings.TrimSpace(g.Expr)

	current := state.CurrentContext
	if current == "" {
		start, err := view.StartContext(state.ActivePersona)
		if err != nil {
			return nil, err
		}
		current = start
	}
	if !view.HasContext(current) {
		return nil, fmt.Errorf("%w: current %q", domain.ErrUnknownContext, current)
	}

	consts := constantsFor(view, persona)
	domainText, err := renderSocialDomain(consts)
	if err != nil {
		return nil, err
	}

	b := newBuilder(socialTypes, consts.names())
	b.object("agent", c.agent)

	c.graphFacts(b, view, state, g)
	c.triggerFacts(b, view, persona)
	c.npcFacts(b, view, persona, state)

	b.fact("active-context", c.agent, current)
	for _, k := range state.OwnedConcepts.Sorted() {
		b.object("concept", k)
		b.fact("has-concept", c.agent, k)
	}
	for _, id := range state.Visited.Sorted() {
		if view.HasContext(id) {
			b.fact("visited", id)
		}
	}
	for _, id := range state.ExhaustedTriggers.Sorted() {
		if b.declared("trigger", id) {
			b.fact("exhausted", id)
		}
	}

	mood := state.CurrentMood
	if mood == "" {
		mood = domain.MoodNeutral
	}
	b.object("mood", mood)
	b.fact("current-mood", c.agent, mood)

	c.equipmentFacts(b, persona, consts.Tags)

	name := "dialogue"
	if persona.ID != "" {
		name += "-" + persona.ID
	}
	return &Compilation{
		Domain:  domainText,
		Problem: b.problem(name, SocialDomain, g.String()),
	}, nil
}

func (c *Compiler) graphFacts(b *builder, view *world.Store, state *domain.DialogueState, g Goal) {
	for _, id := range view.ContextIDs() {
		ctx, _ := view.Context(id)
		p := ctx.Properties
		b.object("context", id)

		for _, n := range view.Neighbors(id) {
			b.fact("connected", id, n)
		}
		if p.IsLocked && !state.UnlockedContexts.Has(id) && id != g.Context {
			b.fact("locked", id)
		}
		if p.RequiredConcept != "" {
			b.object("concept", p.RequiredConcept)
			b.fact("requires-concept", id, p.RequiredConcept)
		}
		if p.HasCombo() {
			b.object("concept", p.RequiredCombo...)
			b.fact("requires-combo", id, p.RequiredCombo[0], p.RequiredCombo[1])
		}
		if p.ProvidesConcept != "" {
			b.object("concept", p.ProvidesConcept)
			b.fact("provides-concept", id, p.ProvidesConcept)
		}
		if p.InducesMood != "" {
			b.object("mood", p.InducesMood)
			b.fact("induces-mood", id, p.InducesMood)
			b.fact("mood-inducing", id)
		}
		for _, ua := range p.UnlockActions {
			if !b.declared("unlock", ua.Action) {
				continue
			}
			b.fact("unlock-offered", id, ua.Action)
			for _, k := range ua.Requires {
				b.object("concept", k)
				b.fact("unlock-requires", id, ua.Action, k)
			}
		}
	}
	for _, k := range view.ConceptIDs() {
		b.object("concept", k)
	}
}

func (c *Compiler) triggerFacts(b *builder, view *world.Store, persona domain.Persona) {
	for _, id := range view.TriggerIDs() {
		t, _ := view.Trigger(id)
		if t.Yields == "" {
			c.logger.Warn("trigger yields nothing, skipped", "trigger", id)
			continue
		}
		if !t.Global() && !view.HasContext(t.ParentContext) {
			c.logger.Warn("trigger parent context not found, skipped", "trigger", id, "context", t.ParentContext)
			continue
		}
		b.object("trigger", id)
		b.object("concept", t.Yields)
		if t.Global() {
			b.fact("global-trigger", id)
		} else {
			b.fact("in-context", id, t.ParentContext)
		}
		b.fact("trigger-yields", id, t.Yields)
		if t.Requires != "" {
			b.object("concept", t.Requires)
			b.fact("trigger-requires", id, t.Requires)
		}
		if t.RequiredTag == "" || persona.HasTag(t.RequiredTag) {
			b.fact("trigger-enabled", id)
		}
	}
}

func (c *Compiler) npcFacts(b *builder, view *world.Store, persona domain.Persona, state *domain.DialogueState) {
	social := c.policy.SocialContext
	if persona.ID == "" || !view.HasContext(social) {
		return
	}
	if c.policy.WillOffer(persona, state) {
		trig, k := c.policy.OfferTrigger(persona.ID), c.policy.OfferConcept(persona.ID)
		b.object("trigger", trig)
		b.object("concept", k)
		b.fact("offers", trig, social, k)
	}
	if c.policy.FlirtInclined(persona) {
		trig, k := c.policy.FlirtTrigger(persona.ID), c.policy.FlirtConcept(persona.ID)
		b.object("trigger", trig)
		b.object("concept", k)
		b.fact("flirts", trig, social, k)
		for _, q := range c.policy.QuestConcepts {
			b.object("concept", q)
			b.fact("quest-concept", q)
		}
		if state.Gold > 0 {
			b.fact("has-gold", c.agent)
		}
	}
}

func (c *Compiler) equipmentFacts(b *builder, persona domain.Persona, ruleTags []string) {
	tags := domain.NewSet(ruleTags...)
	for _, cat := range persona.Equipment {
		rel := "holding"
		if cat.Worn() {
			rel = "wearing"
		}
		for _, item := range cat.Items {
			b.object("item", item.ID)
			b.fact(rel, c.agent, item.ID)
			for _, tag := range item.PDDLTags {
				b.object("tag", tag)
				tags.Add(tag)
				b.fact("has-tag", item.ID, tag)
			}
		}
	}
	for _, tag := range tags.Sorted() {
		b.fact("is-tag", tag, tag)
	}
}

package moves

import (
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// NPCPolicy decides when the persona takes the initiative. The same policy
// feeds move generation and problem compilation so both agree on NPC moves.
type NPCPolicy struct {
	// SocialContext is the only context where initiatives happen.
	SocialContext string `yaml:"social_context" json:"social_context"`

	// OfferTags must all be carried by the persona for it to offer a partnership.
	OfferTags []string `yaml:"offer_tags" json:"offer_tags"`

	// FlirtTags must all be carried by the persona for it to flirt.
	FlirtTags []string `yaml:"flirt_tags" json:"flirt_tags"`

	// QuestConcepts signal a player worth flirting with when owned.
	QuestConcepts []string `yaml:"quest_concepts" json:"quest_concepts"`
}

// DefaultNPCPolicy returns the tavern policy.
func DefaultNPCPolicy() NPCPolicy {
	return NPCPolicy{
		SocialContext: "ctx_tavern_intro",
		OfferTags:     []string{"proactive", "mercenary"},
		FlirtTags:     []string{"proactive"},
		QuestConcepts: []string{"cpt_quest_easy", "cpt_quest_hard"},
	}
}

// OfferTrigger names the synthetic trigger of persona's partnership offer.
func (p NPCPolicy) OfferTrigger(persona string) string { return "trig_" + persona + "_offers_partnership" }

// OfferConcept names the concept the player gains when persona offers.
func (p NPCPolicy) OfferConcept(persona string) string { return "cpt_" + persona + "_offer" }

// FlirtTrigger names the synthetic trigger of persona's flirt.
func (p NPCPolicy) FlirtTrigger(persona string) string { return "trig_" + persona + "_flirts" }

// FlirtConcept names the concept the player gains when persona flirts.
func (p NPCPolicy) FlirtConcept(persona string) string { return "cpt_" + persona + "_flirt" }

// WillOffer reports whether persona is inclined to offer, given the player's quest.
// It does not look at the current context.
func (p NPCPolicy) WillOffer(persona domain.Persona, state *domain.DialogueState) bool {
	return p.SocialContext != "" && hasAll(persona, p.OfferTags) && state.ActiveQuest != ""
}

// FlirtInclined reports whether persona's tags allow flirting at all.
func (p NPCPolicy) FlirtInclined(persona domain.Persona) bool {
	return p.SocialContext != "" && hasAll(persona, p.FlirtTags)
}

// Attractive reports whether the player shows enough promise to be flirted with.
func (p NPCPolicy) Attractive(state *domain.DialogueState) bool {
	if state.Gold > 0 {
		return true
	}
	for _, c := range p.QuestConcepts {
		if state.OwnedConcepts.Has(c) {
			return true
		}
	}
	return false
}

// Initiative returns at most one NPC-initiated move. An offer takes priority over a flirt.
func (p NPCPolicy) Initiative(agent string, persona domain.Persona, state *domain.DialogueState) (domain.Move, bool) {
	if persona.ID == "" || state.CurrentContext != p.SocialContext {
		return nil, false
	}
	if p.WillOffer(persona, state) && !state.OwnedConcepts.Has(p.OfferConcept(persona.ID)) {
		return domain.NpcOffer{
			Agent:   agent,
			Context: state.CurrentContext,
			Trigger: p.OfferTrigger(persona.ID),
			Concept: p.OfferConcept(persona.ID),
		}, true
	}
	if p.FlirtInclined(persona) && p.Attractive(state) && !state.OwnedConcepts.Has(p.FlirtConcept(persona.ID)) {
		return domain.NpcFlirt{
			Agent:   agent,
			Context: state.CurrentContext,
			Trigger: p.FlirtTrigger(persona.ID),
			Concept: p.FlirtConcept(persona.ID),
		}, true
	}
	return nil, false
}

func hasAll(persona domain.Persona, tags []string) bool {
	if len(tags) == 0 {
		return false
	}
	for _, t := range tags {
		if !persona.HasTag(t) {
			return false
		}
	}
	return true
}

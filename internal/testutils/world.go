package testutils

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
	"github.com/stretchr/testify/require"
)

// ScenarioWorld is the minimal locked-door dialogue: A is the start and
// connects to B, which is locked behind concept K. Trigger T in A yields K.
func ScenarioWorld() domain.World {
	return domain.World{
		Contexts: []domain.Context{
			{
				ID:          "A",
				Connections: []domain.Connection{{To: "B"}},
				Properties:  domain.ContextProperties{IsStart: true},
			},
			{
				ID:         "B",
				Properties: domain.ContextProperties{IsLocked: true, RequiredConcept: "K"},
			},
		},
		Triggers: []domain.Trigger{{ID: "T", ParentContext: "A", Yields: "K"}},
		Concepts: []domain.Concept{{ID: "K", Name: "The Knock"}},
		Personas: []domain.Persona{{ID: "lyra", Name: "Lyra", StartContext: "A"}},
	}
}

// RichWorld exercises every gate kind: single concept, combo, complex unlock,
// tag-gated triggers, mood induction, NPC initiatives and tagged equipment.
func RichWorld() domain.World {
	return domain.World{
		Contexts: []domain.Context{
			{
				ID:   "ctx_tavern_intro",
				Name: "Tavern",
				Connections: []domain.Connection{
					{To: "ctx_cellar"},
					{To: "ctx_backroom", Direction: domain.DirectionBidirectional},
					{To: "ctx_vault"},
				},
				Properties: domain.ContextProperties{IsStart: true, ProvidesConcept: "cpt_rumor", Difficulty: 1},
			},
			{
				ID:          "ctx_cellar",
				Name:        "Cellar",
				Connections: []domain.Connection{{To: "ctx_tavern_intro"}},
				Properties:  domain.ContextProperties{IsLocked: true, RequiredConcept: "cpt_key", InducesMood: "tense", Difficulty: 2},
			},
			{
				ID:         "ctx_backroom",
				Name:       "Back room",
				Properties: domain.ContextProperties{IsLocked: true, RequiredCombo: []string{"cpt_rumor", "cpt_password"}},
			},
			{
				ID:   "ctx_vault",
				Name: "Vault",
				Properties: domain.ContextProperties{
					IsLocked:      true,
					UnlockActions: []domain.UnlockAction{{Action: "deploy-charm", Requires: []string{"cpt_rumor", "cpt_trust"}}},
				},
			},
		},
		Triggers: []domain.Trigger{
			{ID: "trig_barkeep", ParentContext: "ctx_tavern_intro", Yields: "cpt_password", Properties: domain.TriggerProperties{ProvidesSharedItems: []string{"map"}}},
			{ID: "trig_key", ParentContext: "ctx_backroom", Yields: "cpt_key"},
			{ID: "trig_whisper", Requires: "cpt_rumor", RequiredTag: "perceptive", Yields: "cpt_trust"},
			{ID: "trig_brute", RequiredTag: "brutish", Yields: "cpt_fear"},
		},
		Concepts: []domain.Concept{
			{ID: "cpt_key"}, {ID: "cpt_password"}, {ID: "cpt_rumor"}, {ID: "cpt_trust"},
		},
		Personas: []domain.Persona{
			{
				ID:   "lyra",
				Name: "Lyra",
				Tags: []string{"proactive", "mercenary", "perceptive"},
				BehaviorRules: []domain.BehaviorRule{
					{ID: "brandish", Mood: domain.MoodNeutral, RequiresHoldingTag: "sharp"},
					{ID: "preen", Mood: domain.MoodNeutral, RequiresWearingTag: "fancy"},
					{ID: "shiver", Mood: "tense"},
					{ID: "juggle", Mood: domain.MoodNeutral, RequiresHoldingTag: "round"},
				},
				Equipment: domain.Equipment{
					{Category: "weapons", Items: []domain.Item{{ID: "dagger", PDDLTags: []string{"sharp"}}, {ID: "sword", PDDLTags: []string{"sharp"}}}},
					{Category: domain.CategoryClothes, Items: []domain.Item{{ID: "gown", PDDLTags: []string{"fancy"}}}},
				},
				WorldOverrides: map[string]map[string]any{
					"ctx_vault": {"name": "The Vault", "difficulty": 4},
				},
			},
			{ID: "bram", Name: "Bram", Tags: []string{"shy"}},
		},
		Locations: []domain.Location{
			{
				ID:          "gate",
				Connections: []domain.Connection{{To: "road", Direction: domain.DirectionBidirectional}},
				Properties:  domain.LocationProperties{Position: &domain.Position{X: 0, Y: 0}},
			},
			{
				ID:          "road",
				Connections: []domain.Connection{{To: "keep"}},
				Contains:    []string{"iron_key"},
				Properties:  domain.LocationProperties{Position: &domain.Position{X: 1, Y: 0}},
			},
			{
				ID:         "keep",
				Contains:   []string{"artifact"},
				Properties: domain.LocationProperties{IsLocked: true, RequiredConcept: "iron_key", Position: &domain.Position{X: 2, Y: 0}},
			},
			{
				ID:         "ruins",
				Contains:   []string{"relic"},
				Properties: domain.LocationProperties{Position: &domain.Position{X: 5, Y: 5}},
			},
		},
	}
}

// NewStore indexes w and fails the test on error.
func NewStore(t testing.TB, w domain.World) *world.Store {
	t.Helper()
	s, err := world.NewStore(w)
	require.NoError(t, err)
	return s
}

// RandomWorld builds a pseudo-random dialogue graph of n contexts from rng.
// Context c0 is the start; roughly a third of the others are locked behind a
// single concept, some behind a combo, and triggers spread the concepts around.
func RandomWorld(rng *rand.Rand, n int) domain.World {
	var w domain.World
	concepts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		concepts = append(concepts, fmt.Sprintf("k%d", i))
		w.Concepts = append(w.Concepts, domain.Concept{ID: concepts[i]})
	}

	for i := 0; i < n; i++ {
		c := domain.Context{ID: fmt.Sprintf("c%d", i)}
		if i == 0 {
			c.Properties.IsStart = true
		}
		edges := 1 + rng.Intn(3)
		for e := 0; e < edges; e++ {
			to := fmt.Sprintf("c%d", rng.Intn(n))
			if to == c.ID {
				continue
			}
			conn := domain.Connection{To: to}
			if rng.Intn(4) == 0 {
				conn.Direction = domain.DirectionBidirectional
			}
			c.Connections = append(c.Connections, conn)
		}
		if i > 0 {
			switch rng.Intn(6) {
			case 0, 1:
				c.Properties.IsLocked = true
				c.Properties.RequiredConcept = concepts[rng.Intn(n)]
			case 2:
				c.Properties.IsLocked = true
				c.Properties.RequiredCombo = []string{concepts[rng.Intn(n)], concepts[rng.Intn(n)]}
			}
		}
		if rng.Intn(3) == 0 {
			c.Properties.ProvidesConcept = concepts[rng.Intn(n)]
		}
		w.Contexts = append(w.Contexts, c)
	}

	for i := 0; i < n; i++ {
		t := domain.Trigger{ID: fmt.Sprintf("t%d", i), Yields: concepts[rng.Intn(n)]}
		if rng.Intn(4) != 0 {
			t.ParentContext = fmt.Sprintf("c%d", rng.Intn(n))
		}
		w.Triggers = append(w.Triggers, t)
	}
	w.Personas = []domain.Persona{{ID: "p", StartContext: "c0"}}
	return w
}

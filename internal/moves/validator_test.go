package moves

import (
	"strings"
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0/internal/testutils"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(moves []domain.Move) []string {
	return domain.Tokens(moves)
}

func TestLegalMoves_LockedScenario(t *testing.T) {
	v := New(testutils.NewStore(t, testutils.ScenarioWorld()))
	state := domain.NewDialogueState("lyra", "A")

	got := tokens(v.LegalMoves(state))
	assert.Contains(t, got, "activate-trigger player A T K")
	assert.NotContains(t, got, "shift-context player A B")

	state.OwnedConcepts.Add("K")
	got = tokens(v.LegalMoves(state))
	assert.Contains(t, got, "apply-concept player A B K")
	assert.NotContains(t, got, "activate-trigger player A T K", "yielded concept already owned")
	assert.NotContains(t, got, "shift-context player A B", "locked target needs the unlock move")
}

func TestLegalMoves_RichWorldOrder(t *testing.T) {
	v := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")

	assert.Equal(t, []string{
		"learn-concept player ctx_tavern_intro cpt_rumor",
		"activate-trigger player ctx_tavern_intro trig_barkeep cpt_password",
		"do_brandish player dagger sharp",
		"do_brandish player sword sharp",
		"do_preen player gown fancy",
	}, tokens(v.LegalMoves(state)))
}

func TestLegalMoves_Deterministic(t *testing.T) {
	v := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
	state.OwnedConcepts = domain.NewSet("cpt_rumor", "cpt_password", "cpt_trust", "cpt_key")
	state.ActiveQuest = "q"

	first := tokens(v.LegalMoves(state))
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, tokens(v.LegalMoves(state.Clone())))
	}
}

func TestLegalMoves_UnlockKinds(t *testing.T) {
	v := New(testutils.NewStore(t, testutils.RichWorld()))

	t.Run("combo needs both concepts", func(t *testing.T) {
		state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
		state.OwnedConcepts.Add("cpt_rumor")
		assert.NotContains(t, tokens(v.LegalMoves(state)), "apply-combo-concept player ctx_tavern_intro ctx_backroom cpt_rumor cpt_password")

		state.OwnedConcepts.Add("cpt_password")
		got := tokens(v.LegalMoves(state))
		assert.Contains(t, got, "apply-combo-concept player ctx_tavern_intro ctx_backroom cpt_rumor cpt_password")
		assert.Contains(t, got, "activate-trigger player ctx_tavern_intro trig_whisper cpt_trust", "global trigger gated by persona tag")

		swapped := domain.ComboUnlock{Agent: "player", From: "ctx_tavern_intro", To: "ctx_backroom", First: "cpt_password", Second: "cpt_rumor"}
		assert.True(t, v.IsLegal(state, swapped), "combo pair is unordered")
	})

	t.Run("complex unlock lists its requirements", func(t *testing.T) {
		state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
		state.OwnedConcepts = domain.NewSet("cpt_rumor", "cpt_trust")
		assert.Contains(t, tokens(v.LegalMoves(state)), "deploy-charm player ctx_tavern_intro ctx_vault cpt_rumor cpt_trust")
	})

	t.Run("unlocked context is shifted into directly", func(t *testing.T) {
		state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
		state.OwnedConcepts.Add("cpt_key")
		state.UnlockedContexts.Add("ctx_cellar")
		got := tokens(v.LegalMoves(state))
		assert.Contains(t, got, "shift-context player ctx_tavern_intro ctx_cellar")
		assert.NotContains(t, got, "apply-concept player ctx_tavern_intro ctx_cellar cpt_key")
	})

	t.Run("bidirectional reverse edge", func(t *testing.T) {
		state := domain.NewDialogueState("lyra", "ctx_backroom")
		assert.Contains(t, tokens(v.LegalMoves(state)), "shift-context player ctx_backroom ctx_tavern_intro")
	})
}

func TestLegalMoves_TagGatesAndMood(t *testing.T) {
	v := New(testutils.NewStore(t, testutils.RichWorld()))

	state := domain.NewDialogueState("bram", "ctx_tavern_intro")
	state.OwnedConcepts.Add("cpt_rumor")
	got := tokens(v.LegalMoves(state))
	assert.NotContains(t, got, "activate-trigger player ctx_tavern_intro trig_whisper cpt_trust", "bram is not perceptive")
	for _, tok := range got {
		assert.NotContains(t, tok, "do_")
	}

	state = domain.NewDialogueState("lyra", "ctx_cellar")
	state.CurrentMood = "tense"
	got = tokens(v.LegalMoves(state))
	assert.Contains(t, got, "do_shiver player")
	assert.NotContains(t, got, "do_brandish player dagger sharp")
}

func TestLegalMoves_BehaviorPerTaggedItem(t *testing.T) {
	w := testutils.RichWorld()
	lyra := &w.Personas[0]
	require.Equal(t, "lyra", lyra.ID)
	lyra.BehaviorRules = append(lyra.BehaviorRules,
		domain.BehaviorRule{ID: "brandish", Mood: "tense"},
		domain.BehaviorRule{ID: "flaunt", Mood: domain.MoodNeutral, RequiresWearingTag: "sharp"},
	)
	lyra.Equipment = append(lyra.Equipment,
		domain.EquipmentCategory{Category: "spare", Items: []domain.Item{{ID: "dagger", PDDLTags: []string{"sharp"}}}},
		domain.EquipmentCategory{Category: domain.CategoryClothes, Items: []domain.Item{{ID: "spiked_collar", PDDLTags: []string{"sharp"}}}},
	)
	v := New(testutils.NewStore(t, w))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")

	var behaviors []string
	for _, tok := range tokens(v.LegalMoves(state)) {
		if strings.HasPrefix(tok, domain.PrefixBehavior) {
			behaviors = append(behaviors, tok)
		}
	}
	assert.Equal(t, []string{
		"do_brandish player dagger sharp",
		"do_brandish player sword sharp",
		"do_preen player gown fancy",
		"do_flaunt player spiked_collar sharp",
	}, behaviors, "one move per held item, worn items only for wearing rules")

	assert.True(t, v.IsLegal(state, domain.PersonaBehavior{Rule: "brandish", Agent: "player", Item: "sword", Tag: "sharp"}))
	assert.False(t, v.IsLegal(state, domain.PersonaBehavior{Rule: "brandish", Agent: "player", Item: "spiked_collar", Tag: "sharp"}))

	state.CurrentMood = "tense"
	assert.NotContains(t, tokens(v.LegalMoves(state)), "do_brandish player", "a repeated rule id does not override the first")
}

func TestLegalMoves_NPCInitiative(t *testing.T) {
	v := New(testutils.NewStore(t, testutils.RichWorld()))

	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
	state.ActiveQuest = "find_the_relic"
	state.Gold = 3
	got := tokens(v.LegalMoves(state))
	assert.Contains(t, got, "npc-offer player ctx_tavern_intro trig_lyra_offers_partnership cpt_lyra_offer")
	assert.NotContains(t, got, "npc-flirt player ctx_tavern_intro trig_lyra_flirts cpt_lyra_flirt", "offer takes priority")

	state.OwnedConcepts.Add("cpt_lyra_offer")
	got = tokens(v.LegalMoves(state))
	assert.Contains(t, got, "npc-flirt player ctx_tavern_intro trig_lyra_flirts cpt_lyra_flirt")

	state.Gold = 0
	assert.NotContains(t, tokens(v.LegalMoves(state)), "npc-flirt player ctx_tavern_intro trig_lyra_flirts cpt_lyra_flirt")
	state.OwnedConcepts.Add("cpt_quest_easy")
	assert.Contains(t, tokens(v.LegalMoves(state)), "npc-flirt player ctx_tavern_intro trig_lyra_flirts cpt_lyra_flirt")

	away := domain.NewDialogueState("lyra", "ctx_backroom")
	away.ActiveQuest = "find_the_relic"
	for _, tok := range tokens(v.LegalMoves(away)) {
		assert.NotContains(t, tok, "npc-")
	}
}

func TestLegalMoves_UnknownContext(t *testing.T) {
	v := New(testutils.NewStore(t, testutils.ScenarioWorld()))
	assert.Empty(t, v.LegalMoves(domain.NewDialogueState("lyra", "nowhere")))
}

func TestOptions(t *testing.T) {
	policy := DefaultNPCPolicy()
	policy.SocialContext = "A"
	v := New(testutils.NewStore(t, testutils.ScenarioWorld()), WithAgent("hero"), WithNPCPolicy(policy))

	assert.Equal(t, "hero", v.Agent())
	assert.Equal(t, "A", v.Policy().SocialContext)
	assert.Equal(t, []string{"activate-trigger hero A T K"}, tokens(v.LegalMoves(domain.NewDialogueState("lyra", "A"))))
}

func TestIsLegalAndHelpers(t *testing.T) {
	v := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
	state.OwnedConcepts = domain.NewSet("cpt_rumor", "cpt_trust")
	state.UnlockedContexts.Add("ctx_cellar")

	assert.True(t, v.IsLegal(state, domain.ComplexUnlock{Action: "deploy-charm", Agent: "player", From: "ctx_tavern_intro", To: "ctx_vault"}))
	assert.False(t, v.IsLegal(state, domain.ContextShift{Agent: "player", From: "ctx_tavern_intro", To: "ctx_vault"}))
	assert.Equal(t, []string{"ctx_cellar"}, v.AvailableContexts(state))
	assert.Equal(t, []string{"trig_barkeep"}, v.AvailableTriggers(state))
}

func TestAnalyze(t *testing.T) {
	assert.Equal(t, 1, Analyze(domain.ContextShift{}).Complexity)
	a := Analyze(domain.ConceptUnlock{To: "b", Concept: "k"})
	assert.Equal(t, 3, a.Complexity)
	assert.Equal(t, []string{"k"}, a.Requirements)
	assert.Equal(t, []string{"b"}, a.Unlocks)
	assert.Equal(t, 4, Analyze(domain.ComplexUnlock{Action: "deploy-x", Requires: []string{"z", "a"}}).Complexity)
	assert.Equal(t, []string{"a", "z"}, Analyze(domain.ComplexUnlock{Action: "deploy-x", Requires: []string{"z", "a"}}).Requirements)
}

func TestValidUnlockAction(t *testing.T) {
	assert.True(t, ValidUnlockAction("deploy-charm"))
	assert.False(t, ValidUnlockAction("charm"))
	assert.False(t, ValidUnlockAction("deploy-"))
}

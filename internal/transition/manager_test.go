package transition

import (
	"math/rand"
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0/internal/moves"
	"github.com/VasyaLutiy/daqs-v5.0/internal/testutils"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_LockedScenarioEndToEnd(t *testing.T) {
	store := testutils.NewStore(t, testutils.ScenarioWorld())
	v := moves.New(store)
	m := New(store)
	state := domain.NewDialogueState("lyra", "A")

	diff, err := m.ApplyToken(state, "activate-trigger player A T K")
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, []string{"K"}, diff.Concepts)
	assert.Equal(t, domain.NewSet("K"), state.OwnedConcepts)
	assert.True(t, state.ExhaustedTriggers.Has("T"))
	assert.Contains(t, domain.Tokens(v.LegalMoves(state)), "apply-concept player A B K")

	diff, err = m.ApplyToken(state, "apply-concept player A B K")
	require.NoError(t, err)
	assert.Equal(t, "B", state.CurrentContext)
	assert.Equal(t, domain.NewSet("B"), state.UnlockedContexts)
	assert.True(t, state.Visited.Has("B"))
	require.NotNil(t, diff.CurrentContext)
	assert.Equal(t, "B", *diff.CurrentContext)
	assert.Equal(t, []string{"B"}, diff.Unlocked)
}

func TestApply_MalformedLeavesStateUnchanged(t *testing.T) {
	m := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
	state.OwnedConcepts.Add("cpt_rumor")
	before := state.Clone()

	for _, tok := range []string{
		"",
		"shift-context player ctx_tavern_intro",
		"apply-combo-concept player a b k1",
		"teleport player ctx_vault",
		"do_brandish player dagger",
	} {
		_, err := m.ApplyToken(state, tok)
		assert.Error(t, err, tok)
		assert.Equal(t, before, state, tok)
	}
}

func TestApply_UnknownTargetRejected(t *testing.T) {
	m := New(testutils.NewStore(t, testutils.ScenarioWorld()))
	state := domain.NewDialogueState("lyra", "A")
	before := state.Clone()

	_, err := m.Apply(state, domain.ContextShift{Agent: "player", From: "A", To: "Z"})
	assert.ErrorIs(t, err, domain.ErrUnknownContext)
	assert.Equal(t, before, state)

	_, err = m.Apply(state, domain.ConceptUnlock{Agent: "player", From: "A", To: "Z", Concept: "K"})
	assert.ErrorIs(t, err, domain.ErrUnknownContext)
	assert.Equal(t, before, state)
}

func TestApply_LearnIsIdempotent(t *testing.T) {
	m := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
	learn := domain.ConceptLearn{Agent: "player", Context: "ctx_tavern_intro", Concept: "cpt_rumor"}

	diff, err := m.Apply(state, learn)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpt_rumor"}, diff.Concepts)
	once := state.Clone()

	diff, err = m.Apply(state, learn)
	require.NoError(t, err)
	assert.Nil(t, diff)
	assert.Equal(t, once, state)
}

func TestApply_TriggerSharesItems(t *testing.T) {
	m := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")

	diff, err := m.ApplyToken(state, "activate-trigger player ctx_tavern_intro trig_barkeep cpt_password")
	require.NoError(t, err)
	assert.Equal(t, []string{"map"}, diff.SharedItems)
	assert.Equal(t, []string{"trig_barkeep"}, diff.Exhausted)
	assert.True(t, state.OwnedConcepts.Has("cpt_password"))
}

func TestApply_ComboRequiresBothConcepts(t *testing.T) {
	m := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
	state.OwnedConcepts.Add("cpt_rumor")
	before := state.Clone()

	combo := domain.ComboUnlock{Agent: "player", From: "ctx_tavern_intro", To: "ctx_backroom", First: "cpt_rumor", Second: "cpt_password"}
	_, err := m.Apply(state, combo)
	assert.ErrorIs(t, err, domain.ErrIllegalMove)
	assert.Equal(t, before, state)

	state.OwnedConcepts.Add("cpt_password")
	_, err = m.Apply(state, combo)
	require.NoError(t, err)
	assert.Equal(t, "ctx_backroom", state.CurrentContext)
	assert.True(t, state.UnlockedContexts.Has("ctx_backroom"))
}

func TestApply_MoodInductionAndComplexUnlock(t *testing.T) {
	m := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
	state.OwnedConcepts.Add("cpt_key")

	diff, err := m.ApplyToken(state, "apply-concept player ctx_tavern_intro ctx_cellar cpt_key")
	require.NoError(t, err)
	assert.Equal(t, "tense", state.CurrentMood)
	require.NotNil(t, diff.CurrentMood)
	assert.Equal(t, "tense", *diff.CurrentMood)

	// Returning to an unlocked, mood-neutral context keeps the induced mood.
	_, err = m.ApplyToken(state, "shift-context player ctx_cellar ctx_tavern_intro")
	require.NoError(t, err)
	assert.Equal(t, "tense", state.CurrentMood)

	_, err = m.ApplyToken(state, "deploy-charm player ctx_tavern_intro ctx_vault")
	require.NoError(t, err)
	assert.Equal(t, "ctx_vault", state.CurrentContext)
	assert.True(t, state.UnlockedContexts.Has("ctx_vault"))
}

func TestApply_UnlockOfOpenContextDoesNotGrowUnlockedSet(t *testing.T) {
	m := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_backroom")

	_, err := m.Apply(state, domain.ComplexUnlock{Action: "deploy-x", Agent: "player", From: "ctx_backroom", To: "ctx_tavern_intro"})
	require.NoError(t, err)
	assert.Equal(t, "ctx_tavern_intro", state.CurrentContext)
	assert.Empty(t, state.UnlockedContexts)
}

func TestApply_BehaviorIsNoOp(t *testing.T) {
	m := New(testutils.NewStore(t, testutils.RichWorld()))
	state := domain.NewDialogueState("lyra", "ctx_tavern_intro")
	before := state.Clone()

	diff, err := m.ApplyToken(state, "do_brandish player dagger sharp")
	require.NoError(t, err)
	assert.Nil(t, diff)
	assert.Equal(t, before, state)
}

// Random walks over random worlds: every legal move keeps the state sound.
func TestApply_RandomWalkSoundness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for world := 0; world < 25; world++ {
		store := testutils.NewStore(t, testutils.RandomWorld(rng, 8+rng.Intn(8)))
		v := moves.New(store)
		m := New(store)
		state := domain.NewDialogueState("p", "c0")

		for step := 0; step < 40; step++ {
			legal := v.LegalMoves(state)
			if len(legal) == 0 {
				break
			}
			mv := legal[rng.Intn(len(legal))]
			before := state.Clone()

			_, err := m.Apply(state, mv)
			require.NoError(t, err, mv.String())

			assert.True(t, store.HasContext(state.CurrentContext), mv.String())
			for _, id := range before.UnlockedContexts.Sorted() {
				assert.True(t, state.UnlockedContexts.Has(id))
			}
			for _, id := range before.OwnedConcepts.Sorted() {
				assert.True(t, state.OwnedConcepts.Has(id))
			}
			for _, id := range state.UnlockedContexts.Sorted() {
				assert.True(t, store.Locked(id), "only locked contexts are ever unlocked")
			}
		}
	}
}

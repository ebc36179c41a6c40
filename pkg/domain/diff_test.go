package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	base := NewDialogueState("lyra", "ctx_a")
	base.SessionID = "sess-1"

	t.Run("Initial Load (Old is Nil)", func(t *testing.T) {
		d := Diff(nil, base)
		require.NotNil(t, d)
		assert.Equal(t, "sess-1", d.SessionID)
		require.NotNil(t, d.CurrentContext)
		assert.Equal(t, "ctx_a", *d.CurrentContext)
		require.NotNil(t, d.CurrentMood)
		assert.Equal(t, MoodNeutral, *d.CurrentMood)
		assert.Equal(t, []string{"ctx_a"}, d.Visited)
	})

	t.Run("No Changes", func(t *testing.T) {
		assert.Nil(t, Diff(base, base.Clone()))
	})

	t.Run("Shift With Unlock And Mood", func(t *testing.T) {
		next := base.Clone()
		next.CurrentContext = "ctx_b"
		next.Visited.Add("ctx_b")
		next.UnlockedContexts.Add("ctx_b")
		next.CurrentMood = "tense"

		d := Diff(base, next)
		require.NotNil(t, d)
		assert.Equal(t, "ctx_b", *d.CurrentContext)
		assert.Equal(t, "tense", *d.CurrentMood)
		assert.Equal(t, []string{"ctx_b"}, d.Visited)
		assert.Equal(t, []string{"ctx_b"}, d.Unlocked)
		assert.Empty(t, d.Concepts)
	})

	t.Run("Trigger Side Effects", func(t *testing.T) {
		next := base.Clone()
		next.OwnedConcepts.Add("k")
		next.ExhaustedTriggers.Add("t")
		next.SharedItems.Add("map")
		next.SharedItems.Add("key")

		d := Diff(base, next)
		require.NotNil(t, d)
		assert.Nil(t, d.CurrentContext)
		assert.Equal(t, []string{"k"}, d.Concepts)
		assert.Equal(t, []string{"t"}, d.Exhausted)
		assert.Equal(t, []string{"key", "map"}, d.SharedItems)
	})
}

func TestDiffJSONSerialization(t *testing.T) {
	next := NewDialogueState("lyra", "ctx_a")
	next.OwnedConcepts.Add("k")

	d := Diff(NewDialogueState("lyra", "ctx_a"), next)
	require.NotNil(t, d)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"concepts":["k"]}`, string(raw))
}

func TestDialogueStateJSON(t *testing.T) {
	s := NewDialogueState("lyra", "ctx_a")
	s.OwnedConcepts.Add("zeta")
	s.OwnedConcepts.Add("alpha")

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"owned_concepts":["alpha","zeta"]`)

	var back DialogueState
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.OwnedConcepts.Has("alpha"))
	assert.True(t, back.Visited.Has("ctx_a"))
	assert.Equal(t, s.CurrentMood, back.CurrentMood)
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewDialogueState("lyra", "ctx_a")
	c := s.Clone()
	c.OwnedConcepts.Add("k")
	c.Visited.Add("ctx_b")

	assert.False(t, s.OwnedConcepts.Has("k"))
	assert.False(t, s.Visited.Has("ctx_b"))
}

func TestNormalizeFillsSparseState(t *testing.T) {
	var s DialogueState
	require.NoError(t, json.Unmarshal([]byte(`{"current_context":"ctx_a"}`), &s))
	s.Normalize()

	assert.NotNil(t, s.OwnedConcepts)
	assert.NotNil(t, s.SharedItems)
	assert.Equal(t, MoodNeutral, s.CurrentMood)
}

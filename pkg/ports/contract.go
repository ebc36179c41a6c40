package ports

import (
	"context"
	"testing"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewDialogueState("lyra", "start")
		state.SessionID = sessionID
		state.OwnedConcepts.Add("k")
		state.UnlockedContexts.Add("vault")
		state.CurrentMood = "tense"
		state.Gold = 7

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentContext, loaded.CurrentContext)
		assert.Equal(t, state.OwnedConcepts, loaded.OwnedConcepts)
		assert.Equal(t, state.UnlockedContexts, loaded.UnlockedContexts)
		assert.Equal(t, "tense", loaded.CurrentMood)
		assert.Equal(t, 7, loaded.Gold)
		assert.True(t, loaded.Visited.Has("start"))
	})

	t.Run("Load returns an independent copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.OwnedConcepts.Add("mutated")

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, again.OwnedConcepts.Has("mutated"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewDialogueState("lyra", "start"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewDialogueState("lyra", "start"))
		_ = store.Save(ctx, id2, domain.NewDialogueState("lyra", "start"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

package middleware_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/memory"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/persistence/middleware"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sealed(key []byte, fallbacks ...[]byte) middleware.Middleware {
	return middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key, FallbackKeys: fallbacks})
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	store := sealed(generateKey(t))(underlying)

	state := domain.NewDialogueState("lyra", "ctx_bar")
	state.OwnedConcepts.Add("cpt_password")
	require.NoError(t, store.Save(ctx, "s1", state))

	raw, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)
	assert.Empty(t, raw.CurrentContext)
	assert.False(t, raw.OwnedConcepts.Has("cpt_password"))
	assert.Equal(t, "lyra", raw.ActivePersona, "persona stays visible for listing")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ctx_bar", loaded.CurrentContext)
	assert.True(t, loaded.OwnedConcepts.Has("cpt_password"))
	assert.Empty(t, loaded.Sealed)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	require.NoError(t, sealed(oldKey)(underlying).Save(ctx, "s1", domain.NewDialogueState("", "A")))

	_, err := sealed(newKey)(underlying).Load(ctx, "s1")
	assert.ErrorContains(t, err, "decryption failed")

	rotated := sealed(newKey, oldKey)(underlying)
	state, err := rotated.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "A", state.CurrentContext)

	// Saving again re-seals under the new key.
	require.NoError(t, rotated.Save(ctx, "s1", state))
	_, err = sealed(newKey)(underlying).Load(ctx, "s1")
	assert.NoError(t, err)
}

func TestEncryptionMiddleware_RejectsPlainState(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(ctx, "plain", domain.NewDialogueState("", "A")))

	_, err := sealed(generateKey(t))(underlying).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestNewEncryptionConfig(t *testing.T) {
	_, err := middleware.NewEncryptionConfig(nil)
	assert.Error(t, err)

	_, err = middleware.NewEncryptionConfig([][]byte{[]byte("short")})
	assert.ErrorContains(t, err, "32 bytes")

	a, b := bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 32)
	cfg, err := middleware.NewEncryptionConfig([][]byte{a, b})
	require.NoError(t, err)
	assert.Equal(t, a, cfg.ActiveKey)
	assert.Equal(t, [][]byte{b}, cfg.FallbackKeys)

	assert.Panics(t, func() { middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{}) })
}

func TestChain(t *testing.T) {
	var order []string
	trace := func(name string) middleware.Middleware {
		return func(next ports.StateStore) ports.StateStore {
			order = append(order, name)
			return next
		}
	}
	middleware.Chain(memory.NewStore(), trace("outer"), trace("inner"))
	assert.Equal(t, []string{"inner", "outer"}, order)
}

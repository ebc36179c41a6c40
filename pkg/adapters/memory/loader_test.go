package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/testutils"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/memory"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Watchable = (*memory.Loader)(nil)

func TestLoader_LoadAndSet(t *testing.T) {
	l := memory.NewLoader(testutils.ScenarioWorld())

	w, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, w.Contexts, 2)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := l.Watch(ctx)
	require.NoError(t, err)

	l.Set(testutils.RichWorld())
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("watcher not signalled")
	}

	w, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, w.Contexts, 4)

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := memory.NewLoader(testutils.ScenarioWorld()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/memory"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore(), nil)
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.Save(ctx, sid, domain.NewDialogueState("", "start"))
		_ = mgr.Delete(ctx, sid)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}

func TestManager_DistributedLock(t *testing.T) {
	var held []string
	var released int
	locker := ports.LockerFunc(func(ctx context.Context, sessionID string, ttl time.Duration) (ports.UnlockFunc, error) {
		if sessionID == "busy" {
			return nil, errors.New("lock held elsewhere")
		}
		held = append(held, fmt.Sprintf("%s/%s", sessionID, ttl))
		return func(ctx context.Context) error {
			require.NoError(t, ctx.Err(), "release must survive a cancelled request")
			released++
			return nil
		}, nil
	})
	mgr := NewManager(memory.NewStore(), nil, WithLocker(locker), WithLockTTL(3*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	err := mgr.WithLock(ctx, "hero", func(context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hero/3s"}, held)
	assert.Equal(t, 1, released)

	err = mgr.WithLock(context.Background(), "busy", func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
	assert.Empty(t, mgr.locks)
}

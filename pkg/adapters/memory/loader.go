package memory

import (
	"context"
	"sync"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// Loader implements ports.WorldLoader over a world held in memory.
// Set replaces the content and signals watchers, which makes it handy for
// tests and for embedding hosts that build worlds in code.
type Loader struct {
	mu       sync.RWMutex
	world    domain.World
	watchers []chan struct{}
}

// NewLoader creates a loader serving w.
func NewLoader(w domain.World) *Loader {
	return &Loader{world: w}
}

// Load returns the current world.
func (l *Loader) Load(ctx context.Context) (domain.World, error) {
	if err := ctx.Err(); err != nil {
		return domain.World{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.world, nil
}

// Set replaces the world and notifies watchers without blocking.
func (l *Loader) Set(w domain.World) {
	l.mu.Lock()
	l.world = w
	watchers := append([]chan struct{}(nil), l.watchers...)
	l.mu.Unlock()

	for _, ch := range watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch implements ports.Watchable. The channel is closed when ctx ends.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.watchers = append(l.watchers, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, w := range l.watchers {
			if w == ch {
				l.watchers = append(l.watchers[:i], l.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

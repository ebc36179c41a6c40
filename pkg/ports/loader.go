package ports

import (
	"context"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// WorldLoader defines how the engine retrieves world content.
// This allows the storage layer (YAML atlases, Loam, Memory) to be decoupled.
type WorldLoader interface {
	// Load reads the complete world. It is called at start-up and on every reload.
	Load(ctx context.Context) (domain.World, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying content changes.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// LoaderFunc adapts a function to the WorldLoader interface.
type LoaderFunc func(ctx context.Context) (domain.World, error)

func (f LoaderFunc) Load(ctx context.Context) (domain.World, error) { return f(ctx) }

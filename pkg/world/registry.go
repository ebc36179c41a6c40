package world

import (
	"errors"
	"sync/atomic"
)

// ErrNotLoaded is returned when the registry is read before the first load.
var ErrNotLoaded = errors.New("world not loaded")

// Registry holds the current Store. Readers take a snapshot with Current and
// keep using it for the duration of one request; Swap replaces it atomically.
type Registry struct {
	current atomic.Pointer[Store]
}

// NewRegistry creates a registry, optionally seeded with an initial store.
func NewRegistry(initial *Store) *Registry {
	r := &Registry{}
	if initial != nil {
		r.current.Store(initial)
	}
	return r
}

// Current returns the active store.
func (r *Registry) Current() (*Store, error) {
	s := r.current.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s, nil
}

// Swap installs next and returns the store it replaced (nil on first load).
func (r *Registry) Swap(next *Store) *Store {
	return r.current.Swap(next)
}

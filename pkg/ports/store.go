package ports

import (
	"context"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// StateStore defines the interface for persisting dialogue state.
// This allows a conversation to be stopped on one replica and resumed on another.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.DialogueState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.DialogueState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns all active session IDs.
	List(ctx context.Context) ([]string, error)
}

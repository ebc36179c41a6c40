package transition

import (
	"fmt"
	"log/slog"

	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
)

// Manager applies moves to dialogue states.
type Manager struct {
	store  *world.Store
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager over the base store. Persona views are resolved per call.
func New(store *world.Store, opts ...Option) *Manager {
	m := &Manager{store: store, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ApplyToken parses token and applies it. A token that does not parse leaves
// state untouched and returns domain.ErrMalformedMove or domain.ErrUnknownVerb.
func (m *Manager) ApplyToken(state *domain.DialogueState, token string) (*domain.StateDiff, error) {
	mv, err := domain.ParseMove(token)
	if err != nil {
		m.logger.Warn("ignoring unparseable move", "move", token, "err", err)
		return nil, err
	}
	return m.Apply(state, mv)
}

// Apply mutates state according to mv and returns the side effects.
// The move is worked out on a copy; state is only updated when it succeeds,
// so a rejected move never leaves a partial change behind.
// Apply does not check legality; callers that need it ask the move validator first.
func (m *Manager) Apply(state *domain.DialogueState, mv domain.Move) (*domain.StateDiff, error) {
	view := m.store.ForPersona(state.ActivePersona)
	next := state.Clone()
	next.Normalize()

	var err error
	switch mv := mv.(type) {
	case domain.ContextShift:
		err = m.enter(view, next, mv.To)
	case domain.ConceptLearn:
		next.OwnedConcepts.Add(mv.Concept)
	case domain.TriggerActivate:
		next.ExhaustedTriggers.Add(mv.Trigger)
		if t, ok := view.Trigger(mv.Trigger); ok {
			for _, item := range t.Properties.ProvidesSharedItems {
				next.SharedItems.Add(item)
			}
		}
		next.OwnedConcepts.Add(mv.Concept)
	case domain.NpcOffer:
		next.ExhaustedTriggers.Add(mv.Trigger)
		next.OwnedConcepts.Add(mv.Concept)
	case domain.NpcFlirt:
		next.ExhaustedTriggers.Add(mv.Trigger)
		next.OwnedConcepts.Add(mv.Concept)
	case domain.ConceptUnlock:
		err = m.unlock(view, next, mv.To)
	case domain.ComboUnlock:
		if !next.OwnedConcepts.Has(mv.First) || !next.OwnedConcepts.Has(mv.Second) {
			err = fmt.Errorf("%w: combo %s needs both %s and %s", domain.ErrIllegalMove, mv.To, mv.First, mv.Second)
			break
		}
		err = m.unlock(view, next, mv.To)
	case domain.ComplexUnlock:
		err = m.unlock(view, next, mv.To)
	case domain.PersonaBehavior:
		m.logger.Info("persona behavior", "move", mv.String(), "persona", state.ActivePersona)
	default:
		err = fmt.Errorf("%w: %T", domain.ErrUnknownVerb, mv)
	}
	if err != nil {
		m.logger.Warn("move not applied", "move", mv.String(), "err", err)
		return nil, err
	}

	diff := domain.Diff(state, next)
	*state = *next
	return diff, nil
}

// unlock opens target (when it is statically locked) and enters it.
func (m *Manager) unlock(view *world.Store, s *domain.DialogueState, target string) error {
	if !view.HasContext(target) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownContext, target)
	}
	if view.Locked(target) {
		s.UnlockedContexts.Add(target)
	}
	return m.enter(view, s, target)
}

// enter moves the player into target, marks it visited and applies mood induction.
func (m *Manager) enter(view *world.Store, s *domain.DialogueState, target string) error {
	c, ok := view.Context(target)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownContext, target)
	}
	s.CurrentContext = target
	s.Visited.Add(target)
	if mood := c.Properties.InducesMood; mood != "" {
		s.CurrentMood = mood
	}
	return nil
}

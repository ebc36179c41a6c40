package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// ErrDuplicateID is returned when two records of the same kind share an id.
var ErrDuplicateID = errors.New("duplicate id")

// Store is an immutable, id-indexed view of the world content.
// It is safe for concurrent use; reloads build a new Store and swap it in a Registry.
type Store struct {
	contexts  map[string]domain.Context
	triggers  map[string]domain.Trigger
	concepts  map[string]domain.Concept
	personas  map[string]domain.Persona
	locations map[string]domain.Location

	contextIDs  []string
	triggerIDs  []string
	conceptIDs  []string
	personaIDs  []string
	locationIDs []string

	neighbors    map[string][]string
	locNeighbors map[string][]string

	// persona is set on overlay views returned by ForPersona.
	persona  *domain.Persona
	overlays map[string]*Store
}

// NewStore indexes w. Persona overlays are computed eagerly so that every
// consumer of a persona view sees the same merged properties.
func NewStore(w domain.World) (*Store, error) {
	s := &Store{
		contexts:  make(map[string]domain.Context, len(w.Contexts)),
		triggers:  make(map[string]domain.Trigger, len(w.Triggers)),
		concepts:  make(map[string]domain.Concept, len(w.Concepts)),
		personas:  make(map[string]domain.Persona, len(w.Personas)),
		locations: make(map[string]domain.Location, len(w.Locations)),
	}

	for _, c := range w.Contexts {
		if err := put(s.contexts, "context", c.ID, c); err != nil {
			return nil, err
		}
	}
	for _, t := range w.Triggers {
		if err := put(s.triggers, "trigger", t.ID, t); err != nil {
			return nil, err
		}
	}
	for _, c := range w.Concepts {
		if err := put(s.concepts, "concept", c.ID, c); err != nil {
			return nil, err
		}
	}
	for _, p := range w.Personas {
		if err := put(s.personas, "persona", p.ID, p); err != nil {
			return nil, err
		}
	}
	for _, l := range w.Locations {
		if err := put(s.locations, "location", l.ID, l); err != nil {
			return nil, err
		}
	}

	s.contextIDs = sortedKeys(s.contexts)
	s.triggerIDs = sortedKeys(s.triggers)
	s.conceptIDs = sortedKeys(s.concepts)
	s.personaIDs = sortedKeys(s.personas)
	s.locationIDs = sortedKeys(s.locations)

	s.neighbors = adjacency(s.contextIDs, func(id string) []domain.Connection {
		return s.contexts[id].Connections
	})
	s.locNeighbors = adjacency(s.locationIDs, func(id string) []domain.Connection {
		return s.locations[id].Connections
	})

	s.overlays = make(map[string]*Store, len(s.personas))
	for _, id := range s.personaIDs {
		view, err := s.overlay(s.personas[id])
		if err != nil {
			return nil, fmt.Errorf("persona %q: %w", id, err)
		}
		s.overlays[id] = view
	}
	return s, nil
}

func put[T any](m map[string]T, kind, id string, v T) error {
	if id == "" {
		return fmt.Errorf("%s without id", kind)
	}
	if _, ok := m[id]; ok {
		return fmt.Errorf("%w: %s %q", ErrDuplicateID, kind, id)
	}
	m[id] = v
	return nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// adjacency lists, for every node, its declared connections in order followed by
// reverse edges of bidirectional connections (sorted by source). Dangling targets are dropped.
func adjacency(ids []string, conns func(string) []domain.Connection) map[string][]string {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	out := make(map[string][]string, len(ids))
	seen := make(map[[2]string]bool)
	add := func(from, to string) {
		if !known[to] || seen[[2]string{from, to}] {
			return
		}
		seen[[2]string{from, to}] = true
		out[from] = append(out[from], to)
	}
	for _, id := range ids {
		for _, c := range conns(id) {
			add(id, c.To)
		}
	}
	for _, id := range ids {
		for _, c := range conns(id) {
			if c.Bidirectional() {
				add(c.To, id)
			}
		}
	}
	return out
}

// Context returns the context with id.
func (s *Store) Context(id string) (domain.Context, bool) {
	c, ok := s.contexts[id]
	return c, ok
}

// HasContext reports whether id names a context.
func (s *Store) HasContext(id string) bool {
	_, ok := s.contexts[id]
	return ok
}

// ContextIDs returns all context ids in ascending order.
func (s *Store) ContextIDs() []string { return s.contextIDs }

// Neighbors returns the contexts reachable in one step from id, in deterministic order.
func (s *Store) Neighbors(id string) []string { return s.neighbors[id] }

// Trigger returns the trigger with id.
func (s *Store) Trigger(id string) (domain.Trigger, bool) {
	t, ok := s.triggers[id]
	return t, ok
}

// TriggerIDs returns all trigger ids in ascending order.
func (s *Store) TriggerIDs() []string { return s.triggerIDs }

// Concept returns the concept with id.
func (s *Store) Concept(id string) (domain.Concept, bool) {
	c, ok := s.concepts[id]
	return c, ok
}

// ConceptIDs returns all declared concept ids in ascending order.
func (s *Store) ConceptIDs() []string { return s.conceptIDs }

// Persona returns the persona with id.
func (s *Store) Persona(id string) (domain.Persona, bool) {
	p, ok := s.personas[id]
	return p, ok
}

// PersonaIDs returns all persona ids in ascending order.
func (s *Store) PersonaIDs() []string { return s.personaIDs }

// Location returns the map location with id.
func (s *Store) Location(id string) (domain.Location, bool) {
	l, ok := s.locations[id]
	return l, ok
}

// LocationIDs returns all location ids in ascending order.
func (s *Store) LocationIDs() []string { return s.locationIDs }

// LocationNeighbors returns the locations reachable in one step from id.
func (s *Store) LocationNeighbors(id string) []string { return s.locNeighbors[id] }

// ActivePersona returns the persona this view was built for, if any.
func (s *Store) ActivePersona() (domain.Persona, bool) {
	if s.persona == nil {
		return domain.Persona{}, false
	}
	return *s.persona, true
}

// ForPersona returns the view of the world with the persona's overrides applied.
// Unknown or empty ids yield the base store.
func (s *Store) ForPersona(id string) *Store {
	if s.overlays == nil {
		return s
	}
	if v, ok := s.overlays[id]; ok {
		return v
	}
	return s
}

// StartContext resolves where a dialogue with persona begins: the persona's
// start context when it exists, else the first context flagged is_start.
func (s *Store) StartContext(persona string) (string, error) {
	if p, ok := s.personas[persona]; ok && p.StartContext != "" {
		if s.HasContext(p.StartContext) {
			return p.StartContext, nil
		}
		return "", fmt.Errorf("%w: persona %q starts at %q", domain.ErrUnknownContext, persona, p.StartContext)
	}
	for _, id := range s.contextIDs {
		if s.contexts[id].Properties.IsStart {
			return id, nil
		}
	}
	return "", domain.ErrNoStartContext
}

// Locked reports whether the context is statically locked.
func (s *Store) Locked(id string) bool {
	return s.contexts[id].Properties.IsLocked
}

// Open reports whether the context can be entered by a plain shift given the unlocked set.
func (s *Store) Open(id string, unlocked domain.Set) bool {
	return !s.Locked(id) || unlocked.Has(id)
}

// Stats summarises the content for load events.
func (s *Store) Stats() domain.WorldEvent {
	return domain.WorldEvent{
		Contexts:  len(s.contexts),
		Triggers:  len(s.triggers),
		Personas:  len(s.personas),
		Locations: len(s.locations),
	}
}

// World returns the records back in id order. Overlay views return overridden contexts.
func (s *Store) World() domain.World {
	var w domain.World
	for _, id := range s.contextIDs {
		w.Contexts = append(w.Contexts, s.contexts[id])
	}
	for _, id := range s.triggerIDs {
		w.Triggers = append(w.Triggers, s.triggers[id])
	}
	for _, id := range s.conceptIDs {
		w.Concepts = append(w.Concepts, s.concepts[id])
	}
	for _, id := range s.personaIDs {
		w.Personas = append(w.Personas, s.personas[id])
	}
	for _, id := range s.locationIDs {
		w.Locations = append(w.Locations, s.locations[id])
	}
	return w
}

package atlas

import "github.com/VasyaLutiy/daqs-v5.0/pkg/domain"

// table keeps records in first-seen order while letting later records with
// the same id replace earlier ones.
type table[T any] struct {
	index map[string]int
	rows  []T
}

func (t *table[T]) put(id string, v T) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[id]; ok {
		t.rows[i] = v
		return
	}
	t.index[id] = len(t.rows)
	t.rows = append(t.rows, v)
}

type builder struct {
	contexts  table[domain.Context]
	triggers  table[domain.Trigger]
	concepts  table[domain.Concept]
	personas  table[domain.Persona]
	locations table[domain.Location]
}

func newBuilder() *builder { return &builder{} }

func (b *builder) context(c domain.Context)   { b.contexts.put(c.ID, c) }
func (b *builder) trigger(t domain.Trigger)   { b.triggers.put(t.ID, t) }
func (b *builder) concept(c domain.Concept)   { b.concepts.put(c.ID, c) }
func (b *builder) location(l domain.Location) { b.locations.put(l.ID, l) }

// persona stores p and the records nested under it.
func (b *builder) persona(p personaEntry) {
	b.personas.put(p.ID, p.Persona)
	for _, c := range p.Contexts {
		b.context(c)
	}
	for _, t := range p.Triggers {
		b.trigger(t)
	}
	for _, c := range p.Concepts {
		b.concept(c)
	}
}

func (b *builder) world() domain.World {
	return domain.World{
		Contexts:  b.contexts.rows,
		Triggers:  b.triggers.rows,
		Concepts:  b.concepts.rows,
		Personas:  b.personas.rows,
		Locations: b.locations.rows,
	}
}

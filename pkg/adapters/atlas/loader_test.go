package atlas_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/atlas"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const tavernAtlas = `
type: persona_group
concepts:
  - {id: cpt_password, name: Password}
personas:
  - id: lyra
    name: Lyra
    tags: [proactive, mercenary]
    start_context: ctx_tavern_intro
    behavior_rules:
      - {id: brandish, mood: neutral, requires_holding_tag: sharp}
    equipment:
      weapons:
        - {id: dagger, pddl_tags: [sharp]}
      clothes:
        - {id: gown, pddl_tags: [fancy]}
    world_overrides:
      ctx_cellar: {is_locked: false}
    contexts:
      - id: ctx_tavern_intro
        connections: [{to: ctx_cellar}]
        properties: {is_start: true}
      - id: ctx_cellar
        properties: {is_locked: true, required_concept: cpt_password}
    triggers:
      - {id: trig_barkeep, parent_context: ctx_tavern_intro, yields: cpt_password}
  - id: bram
    tags: [shy]
`

func TestLoader_FlatLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "personas/tavern.yaml", tavernAtlas)
	writeFile(t, dir, "personas/mira.yaml", "name: Mira\ntags: [perceptive]\n")
	writeFile(t, dir, "contexts/ctx_yard.yaml", "connections: [{to: ctx_tavern_intro, direction: bidirectional}]\n")
	writeFile(t, dir, "triggers/trig_gossip.yml", "yields: cpt_rumor\n")
	writeFile(t, dir, "concepts.yaml", "- {id: cpt_rumor}\n")
	writeFile(t, dir, "regions/north.yaml", `
locations:
  - id: gate
    connections: [{to: road, direction: bidirectional}]
    contains:
      items: [{id: lantern}]
      npcs: [guard]
    properties: {position: [0, 0]}
  - id: road
    contains: [iron_key]
    properties: {position: {x: 1, y: 0}}
  - name: nameless
`)
	writeFile(t, dir, "notes.txt", "ignored")

	w, err := atlas.New(dir).Load(context.Background())
	require.NoError(t, err)

	ids := func(n int, id func(int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = id(i)
		}
		return out
	}
	assert.Equal(t, []string{"bram", "lyra", "mira"}, sortedPersonas(w))
	assert.Equal(t, []string{"ctx_tavern_intro", "ctx_cellar", "ctx_yard"},
		ids(len(w.Contexts), func(i int) string { return w.Contexts[i].ID }))
	assert.Equal(t, []string{"trig_barkeep", "trig_gossip"},
		ids(len(w.Triggers), func(i int) string { return w.Triggers[i].ID }))
	assert.Equal(t, []string{"cpt_password", "cpt_rumor"},
		ids(len(w.Concepts), func(i int) string { return w.Concepts[i].ID }))

	require.Len(t, w.Locations, 2)
	assert.Equal(t, []string{"lantern", "guard"}, w.Locations[0].Contains)
	assert.Equal(t, []string{"iron_key"}, w.Locations[1].Contains)
	assert.Equal(t, &domain.Position{X: 1, Y: 0}, w.Locations[1].Properties.Position)

	var lyra domain.Persona
	for _, p := range w.Personas {
		if p.ID == "lyra" {
			lyra = p
		}
	}
	require.Len(t, lyra.Equipment, 2)
	assert.Equal(t, "weapons", lyra.Equipment[0].Category)
	assert.True(t, lyra.Equipment[1].Worn())
	assert.Equal(t, false, lyra.WorldOverrides["ctx_cellar"]["is_locked"])

	store, err := world.NewStore(w)
	require.NoError(t, err)
	assert.True(t, store.HasContext("ctx_yard"))
}

func TestLoader_NestedLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "social_world/nodes/personas/tavern.yaml", tavernAtlas)
	writeFile(t, dir, "social_world/nodes/contexts/ctx_cellar.yaml",
		"properties: {is_locked: true, required_concept: cpt_key}\n")
	writeFile(t, dir, "world/nodes/regions/r.yaml", "locations: [{id: gate}]\n")

	w, err := atlas.New(dir).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, w.Contexts, 2)
	assert.Equal(t, "ctx_cellar", w.Contexts[1].ID)
	assert.Equal(t, "cpt_key", w.Contexts[1].Properties.RequiredConcept, "single files replace atlas records")
	require.Len(t, w.Locations, 1)
}

func TestLoader_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contexts/good.yaml", "name: Good\n")
	writeFile(t, dir, "contexts/bad.yaml", "connections: {oops\n")

	_, err := atlas.New(dir).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")

	w, err := atlas.New(dir, atlas.WithStrict(false)).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, w.Contexts, 1)
	assert.Equal(t, "good", w.Contexts[0].ID)
}

func TestLoader_Errors(t *testing.T) {
	_, err := atlas.New(filepath.Join(t.TempDir(), "missing")).Load(context.Background())
	assert.Error(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "contexts/a.yaml", "name: A\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = atlas.New(dir).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	writeFile(t, dir, "personas/group.yaml", "type: persona_group\npersonas: [{name: anonymous}]\n")
	_, err = atlas.New(dir).Load(context.Background())
	assert.ErrorContains(t, err, "without id")
}

func TestLoader_Watch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contexts/a.yaml", "name: A\n")

	ctx, cancel := context.WithCancel(context.Background())
	l := atlas.New(dir)
	ch, err := l.Watch(ctx)
	require.NoError(t, err)

	writeFile(t, dir, "contexts/a.yaml", "name: A2\n")
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change signal")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func sortedPersonas(w domain.World) []string {
	store, err := world.NewStore(w)
	if err != nil {
		return nil
	}
	return store.PersonaIDs()
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPersonaYAMLKeepsEquipmentOrder(t *testing.T) {
	src := `
id: lyra
tags: [proactive, mercenary]
equipment:
  weapons:
    - id: dagger
      pddl_tags: [sharp]
  clothes:
    - id: cloak
      pddl_tags: [dark]
  accessories:
    - id: ring
      pddl_tags: [sharp]
world_overrides:
  ctx_a:
    difficulty: 3
`
	var p Persona
	require.NoError(t, yaml.Unmarshal([]byte(src), &p))

	require.Len(t, p.Equipment, 3)
	assert.Equal(t, "weapons", p.Equipment[0].Category)
	assert.Equal(t, "clothes", p.Equipment[1].Category)
	assert.Equal(t, "accessories", p.Equipment[2].Category)
	assert.True(t, p.HasTag("mercenary"))
	assert.Equal(t, 3, p.WorldOverrides["ctx_a"]["difficulty"])
}

func TestEquipmentSequenceForm(t *testing.T) {
	src := `
- category: clothes
  items:
    - id: cloak
`
	var eq Equipment
	require.NoError(t, yaml.Unmarshal([]byte(src), &eq))
	require.Len(t, eq, 1)
	assert.True(t, eq[0].Worn())
}

func TestPositionYAML(t *testing.T) {
	var loc Location
	require.NoError(t, yaml.Unmarshal([]byte("id: gate\nproperties:\n  position: [3, 4]\n"), &loc))
	require.NotNil(t, loc.Properties.Position)
	assert.Equal(t, Position{X: 3, Y: 4}, *loc.Properties.Position)

	require.NoError(t, yaml.Unmarshal([]byte("id: gate\nproperties:\n  position: {x: 1, y: 2}\n"), &loc))
	assert.Equal(t, Position{X: 1, Y: 2}, *loc.Properties.Position)

	assert.Error(t, yaml.Unmarshal([]byte("id: gate\nproperties:\n  position: [1]\n"), &loc))
}

package validator

import (
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0/internal/testutils"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(issues []Issue) map[string]string {
	out := make(map[string]string, len(issues))
	for _, i := range issues {
		out[i.ID+"/"+i.Kind] = i.Message
	}
	return out
}

func TestValidate_Clean(t *testing.T) {
	r := Validate(testutils.NewStore(t, testutils.ScenarioWorld()))
	assert.Empty(t, r.Issues)
	assert.NoError(t, r.Err())
}

func TestValidate_RichWorldWarnsOnly(t *testing.T) {
	r := Validate(testutils.NewStore(t, testutils.RichWorld()))
	require.NoError(t, r.Err())

	got := kinds(r.Warnings())
	assert.Contains(t, got, "trig_brute/undeclared_concept")
	assert.Len(t, got, 1)
}

func TestValidate_Broken(t *testing.T) {
	w := domain.World{
		Contexts: []domain.Context{
			{ID: "start", Connections: []domain.Connection{{To: "ghost"}, {To: "door"}}, Properties: domain.ContextProperties{IsStart: true}},
			{ID: "door", Properties: domain.ContextProperties{
				IsLocked:      true,
				RequiredCombo: []string{"a"},
				UnlockActions: []domain.UnlockAction{{Action: "charm", Requires: []string{"a"}}},
			}},
			{ID: "island"},
			{ID: "sealed", Properties: domain.ContextProperties{IsLocked: true}},
		},
		Triggers: []domain.Trigger{
			{ID: "t_empty", ParentContext: "start"},
			{ID: "t_orphan", ParentContext: "nowhere", Yields: "a"},
		},
		Concepts: []domain.Concept{{ID: "a"}},
		Personas: []domain.Persona{
			{ID: "lost", StartContext: "atlantis", WorldOverrides: map[string]map[string]any{"void": {"name": "x"}}},
		},
		Locations: []domain.Location{{ID: "gate", Connections: []domain.Connection{{To: "moon"}}}},
	}
	r := Validate(testutils.NewStore(t, w))

	got := kinds(r.Issues)
	for _, key := range []string{
		"start/dangling_connection",
		"door/bad_combo",
		"door/bad_unlock_action",
		"island/unreachable",
		"sealed/unreachable",
		"sealed/sealed",
		"t_empty/empty_yield",
		"t_orphan/dangling_trigger",
		"lost/unknown_start",
		"lost/dangling_override",
		"gate/dangling_connection",
	} {
		assert.Contains(t, got, key)
	}
	assert.NotContains(t, got, "door/unreachable")

	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 1 errors")
	assert.Contains(t, err.Error(), `start context "atlantis" not found`)
}

func TestValidate_NoStart(t *testing.T) {
	r := Validate(testutils.NewStore(t, domain.World{Contexts: []domain.Context{{ID: "a"}}}))
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, "no_start", r.Errors()[0].Kind)
}

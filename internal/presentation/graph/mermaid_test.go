package graph_test

import (
	"strings"
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/graph"
	"github.com/VasyaLutiy/daqs-v5.0/internal/testutils"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid_Shapes(t *testing.T) {
	store := testutils.NewStore(t, testutils.RichWorld())
	out := graph.GenerateMermaid(store, nil)

	tests := []struct {
		name, want string
	}{
		{"start is a circle", `ctx_tavern_intro(("Tavern<br/>ctx_tavern_intro"))`},
		{"locked is a hexagon", `ctx_cellar{{"Cellar<br/>ctx_cellar"}}`},
		{"single concept label", `ctx_tavern_intro -->|"cpt_key"| ctx_cellar`},
		{"combo label on a two-way edge", `ctx_tavern_intro <-->|"cpt_rumor + cpt_password"| ctx_backroom`},
		{"complex unlock label", `ctx_tavern_intro -->|"deploy-charm"| ctx_vault`},
		{"locked style", "class ctx_vault locked;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, out, tt.want)
		})
	}
	assert.NotContains(t, out, "classDef visited")
}

func TestGenerateMermaid_TwoWayEdgeDrawnOnce(t *testing.T) {
	store := testutils.NewStore(t, testutils.RichWorld())
	out := graph.GenerateMermaid(store, nil)
	assert.Equal(t, 1, strings.Count(out, "<-->|\"cpt_rumor + cpt_password\"| ctx_backroom"))
	assert.NotContains(t, out, "ctx_backroom <-->")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	store := testutils.NewStore(t, testutils.RichWorld())
	out := graph.GenerateMermaid(store, &graph.GraphOverlay{
		VisitedNodes: []string{"ctx_tavern_intro", "ctx_cellar", "ctx_tavern_intro"},
		CurrentNode:  "ctx_cellar",
		Unlocked:     []string{"ctx_cellar"},
	})

	assert.Equal(t, 1, strings.Count(out, "class ctx_tavern_intro visited;"))
	assert.Contains(t, out, "class ctx_cellar current;")
	assert.NotContains(t, out, "class ctx_cellar visited;")
	assert.NotContains(t, out, "class ctx_cellar locked;")
	assert.Contains(t, out, "class ctx_vault locked;")
}

func TestGenerateWorldMermaid(t *testing.T) {
	store := testutils.NewStore(t, testutils.RichWorld())
	out := graph.GenerateWorldMermaid(store, &graph.GraphOverlay{CurrentNode: "gate"})

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, `road["road<br/>(iron_key)"]`)
	assert.Contains(t, out, `keep{{"keep<br/>(artifact)"}}`)
	assert.Contains(t, out, "gate <--> road")
	assert.Contains(t, out, `road -->|"iron_key"| keep`)
	assert.Contains(t, out, "class gate current;")
}

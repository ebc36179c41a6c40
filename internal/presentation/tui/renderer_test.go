package tui

import (
	"bytes"
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0/internal/diagnostics"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMarkdown(t *testing.T) {
	state := domain.NewDialogueState("lyra", "A")
	state.OwnedConcepts.Add("K")
	moves := []domain.Move{
		domain.ContextShift{Agent: "player", From: "A", To: "B"},
		domain.TriggerActivate{Agent: "player", Context: "A", Trigger: "T", Concept: "K"},
	}

	md := StateMarkdown(domain.Context{ID: "A", Name: "Gate", Description: "A wooden gate."}, state, moves)
	assert.Contains(t, md, "## Gate")
	assert.Contains(t, md, "A wooden gate.")
	assert.Contains(t, md, "- **concepts**: `K`")
	assert.Contains(t, md, "1. `shift-context player A B`")
	assert.Contains(t, md, "2. `activate-trigger player A T K`")

	empty := StateMarkdown(domain.Context{ID: "A"}, state, nil)
	assert.Contains(t, empty, "## A")
	assert.Contains(t, empty, "No legal moves")
}

func TestPlanMarkdown(t *testing.T) {
	ok := PlanMarkdown("(visited B)", []string{"activate-trigger player A T K"}, nil)
	assert.Contains(t, ok, "1. `activate-trigger player A T K`")

	failed := PlanMarkdown("(visited B)", nil, &diagnostics.Diagnosis{
		Kind:    diagnostics.KindPreconditionUnmet,
		Message: "B needs K",
		Missing: []string{"K"},
	})
	assert.Contains(t, failed, "B needs K")
	assert.Contains(t, failed, "missing: `K`")
}

func TestDiffMarkdown(t *testing.T) {
	to := "B"
	md := DiffMarkdown(&domain.StateDiff{CurrentContext: &to, Unlocked: []string{"B"}})
	assert.Contains(t, md, "entered `B`")
	assert.Contains(t, md, "unlocked `B`")
	assert.Contains(t, DiffMarkdown(nil), "Nothing changed")
}

func TestNewRenderer_Plain(t *testing.T) {
	out, err := NewRenderer(true)("# title")
	require.NoError(t, err)
	assert.Equal(t, "# title", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "dialogue & quest planner")
}

package daqs_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0"
	"github.com/VasyaLutiy/daqs-v5.0/internal/testutils"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/memory"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScenarioEngine(t *testing.T) *daqs.Engine {
	t.Helper()
	eng, err := daqs.New("", daqs.WithLoader(memory.NewLoader(testutils.ScenarioWorld())), daqs.WithStrictMoves(true))
	require.NoError(t, err)
	return eng
}

func TestRunner_PlaysByNumberAndToken(t *testing.T) {
	eng := newScenarioEngine(t)
	state, err := eng.NewState("lyra")
	require.NoError(t, err)

	var out bytes.Buffer
	saves := 0
	r := &daqs.Runner{
		Input:    strings.NewReader("1\napply-concept player A B K\nquit\nnever read\n"),
		Output:   &out,
		Headless: true,
		OnChange: func(context.Context, *domain.DialogueState) error {
			saves++
			return nil
		},
	}

	final, err := r.Run(context.Background(), eng, state)
	require.NoError(t, err)
	assert.Equal(t, "B", final.CurrentContext)
	assert.True(t, final.OwnedConcepts.Has("K"))
	assert.Equal(t, 2, saves)
	assert.Contains(t, out.String(), "1. `activate-trigger player A T K`")
	assert.NotContains(t, out.String(), "> ")
}

func TestRunner_RejectsAndKeepsGoing(t *testing.T) {
	eng := newScenarioEngine(t)
	state, err := eng.NewState("lyra")
	require.NoError(t, err)

	var out bytes.Buffer
	r := &daqs.Runner{
		Input:    strings.NewReader("shift-context player A B\n7\nfrobnicate\nhelp\n"),
		Output:   &out,
		Headless: true,
	}
	final, err := r.Run(context.Background(), eng, state)
	require.NoError(t, err, "EOF ends the loop cleanly")
	assert.Equal(t, "A", final.CurrentContext)

	text := out.String()
	assert.Contains(t, text, "rejected: illegal move")
	assert.Contains(t, text, "_No move 7._")
	assert.Contains(t, text, "rejected: unknown move verb")
	assert.Contains(t, text, "Commands:")
}

func TestRunner_PlanAndHint(t *testing.T) {
	planner := ports.PlannerFunc(func(context.Context, string, string) ([]string, error) {
		return []string{"(activate-trigger player A T K)", "(apply-concept player A B K)"}, nil
	})
	eng, err := daqs.New("", daqs.WithLoader(memory.NewLoader(testutils.ScenarioWorld())), daqs.WithPlanner(planner))
	require.NoError(t, err)
	state, err := eng.NewState("lyra")
	require.NoError(t, err)

	var out bytes.Buffer
	r := &daqs.Runner{
		Input:    strings.NewReader("plan B\nhint B\nplan\n"),
		Output:   &out,
		Headless: true,
	}
	final, err := r.Run(context.Background(), eng, state)
	require.NoError(t, err)
	assert.Equal(t, "A", final.CurrentContext, "planning does not move the player")

	text := out.String()
	assert.Contains(t, text, "1. `activate-trigger player A T K`\n2. `apply-concept player A B K`")
	assert.Contains(t, text, "Path: A → B")
	assert.Contains(t, text, "Needs: K")
	assert.Contains(t, text, "Usage: plan <context>")
}

func TestRunner_PlanWithoutPlanner(t *testing.T) {
	eng := newScenarioEngine(t)
	state, err := eng.NewState("lyra")
	require.NoError(t, err)

	var out bytes.Buffer
	r := &daqs.Runner{Input: strings.NewReader("plan B\nhint B\n"), Output: &out, Headless: true}
	_, err = r.Run(context.Background(), eng, state)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "plan failed: no planner configured")
	assert.Contains(t, out.String(), "no hint: no open route")
}

func TestRunner_RequiresIO(t *testing.T) {
	eng := newScenarioEngine(t)
	state, _ := eng.NewState("")
	_, err := (&daqs.Runner{Output: &bytes.Buffer{}}).Run(context.Background(), eng, state)
	assert.ErrorContains(t, err, "input")
	_, err = (&daqs.Runner{Input: strings.NewReader("")}).Run(context.Background(), eng, state)
	assert.ErrorContains(t, err, "output")
}

func TestRunner_StopsOnCancel(t *testing.T) {
	eng := newScenarioEngine(t)
	state, _ := eng.NewState("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&daqs.Runner{Input: strings.NewReader("1\n"), Output: &bytes.Buffer{}, Headless: true}).Run(ctx, eng, state)
	assert.ErrorIs(t, err, context.Canceled)
}

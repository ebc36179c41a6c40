package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/VasyaLutiy/daqs-v5.0/internal/runtime"
	"github.com/VasyaLutiy/daqs-v5.0/internal/testutils"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/memory"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func newServer(t *testing.T, planner ports.Planner) *Server {
	t.Helper()
	opts := []runtime.EngineOption{runtime.WithStrictMoves(true)}
	if planner != nil {
		opts = append(opts, runtime.WithPlanner(planner))
	}
	engine := runtime.NewEngine(memory.NewLoader(testutils.ScenarioWorld()), opts...)
	_, err := engine.Reload(context.Background())
	require.NoError(t, err)
	return NewServer(engine, "test", WithSessions(session.NewManager(memory.NewStore(), engine)))
}

func inlineState() map[string]any {
	return map[string]any{"current_context": "A", "active_persona": "lyra", "visited": []any{"A"}}
}

func TestNewServerConfigures(t *testing.T) {
	s := newServer(t, nil)
	require.NotNil(t, s.mcpServer)
}

func TestValidMoves(t *testing.T) {
	s := newServer(t, nil)
	res, err := s.handleValidMoves(context.Background(), newCallToolRequest("valid_moves", map[string]any{"state": inlineState()}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out, ok := res.StructuredContent.(MovesResult)
	require.True(t, ok, "got %T", res.StructuredContent)
	assert.Equal(t, []string{"activate-trigger player A T K"}, out.Moves)

	res, err = s.handleValidMoves(context.Background(), newCallToolRequest("valid_moves", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestApplyMove_Session(t *testing.T) {
	s := newServer(t, nil)
	started, err := s.handleStartSession(context.Background(), newCallToolRequest("start_session", map[string]any{"persona": "lyra", "session_id": "s1"}))
	require.NoError(t, err)
	require.False(t, started.IsError)

	res, err := s.handleApplyMove(context.Background(), newCallToolRequest("apply_move", map[string]any{
		"session_id": "s1", "move": "activate-trigger player A T K",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := res.StructuredContent.(ApplyResult)
	assert.True(t, out.State.OwnedConcepts.Has("K"))
	assert.Equal(t, []string{"K"}, out.Diff.Concepts)

	stored, err := s.sessions.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, stored.ExhaustedTriggers.Has("T"))
}

func TestApplyMove_Rejected(t *testing.T) {
	s := newServer(t, nil)
	for _, move := range []string{"", "shift-context player A B", "fly player"} {
		res, err := s.handleApplyMove(context.Background(), newCallToolRequest("apply_move", map[string]any{
			"state": inlineState(), "move": move,
		}))
		require.NoError(t, err)
		assert.True(t, res.IsError, move)
	}
}

func TestPlanGoal(t *testing.T) {
	planner := ports.PlannerFunc(func(context.Context, string, string) ([]string, error) {
		return []string{"(activate-trigger player A T K)", "(apply-concept player A B K)"}, nil
	})
	s := newServer(t, planner)

	res, err := s.handlePlanGoal(context.Background(), newCallToolRequest("plan_goal", map[string]any{
		"state": inlineState(), "goal_context": "B",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := res.StructuredContent.(PlanResult)
	assert.Len(t, out.Steps, 2)
}

func TestPlanGoal_UnsolvableIsAnAnswer(t *testing.T) {
	planner := ports.PlannerFunc(func(context.Context, string, string) ([]string, error) {
		return nil, domain.ErrNoPlanFound
	})
	s := newServer(t, planner)

	res, err := s.handlePlanGoal(context.Background(), newCallToolRequest("plan_goal", map[string]any{
		"state": inlineState(), "goal_context": "B",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	out := res.StructuredContent.(PlanResult)
	assert.NotNil(t, out.Diagnosis)
	assert.NotEmpty(t, out.Error)
}

func TestPathRequirements(t *testing.T) {
	s := newServer(t, nil)
	res, err := s.handlePathRequirements(context.Background(), newCallToolRequest("path_requirements", map[string]any{
		"start": "A", "goal": "A",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := res.StructuredContent.(*runtime.Requirements)
	assert.Equal(t, []string{"A"}, out.Path)

	res, err = s.handlePathRequirements(context.Background(), newCallToolRequest("path_requirements", map[string]any{
		"start": "A", "goal": "B",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "B is locked and no planner is configured")
}

func TestResources(t *testing.T) {
	s := newServer(t, nil)

	contents, err := s.readWorld(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents)
	assert.Equal(t, WorldURI, text.URI)
	var w domain.World
	require.NoError(t, json.Unmarshal([]byte(text.Text), &w))
	assert.Len(t, w.Contexts, 2)

	contents, err = s.readGraph(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	assert.Contains(t, contents[0].(mcp.TextResourceContents).Text, "graph TD")
}

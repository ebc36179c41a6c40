package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/runtime"
	"github.com/VasyaLutiy/daqs-v5.0/internal/testutils"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/memory"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler  http.Handler
	sessions *session.Manager
	loader   *memory.Loader
}

func newFixture(t *testing.T, planner ports.Planner) *fixture {
	t.Helper()
	loader := memory.NewLoader(testutils.ScenarioWorld())
	opts := []runtime.EngineOption{runtime.WithStrictMoves(true)}
	if planner != nil {
		opts = append(opts, runtime.WithPlanner(planner))
	}
	engine := runtime.NewEngine(loader, opts...)
	_, err := engine.Reload(context.Background())
	require.NoError(t, err)

	sessions := session.NewManager(memory.NewStore(), engine)
	return &fixture{
		handler:  NewHandler(engine, WithSessions(sessions), WithWatcher(loader)),
		sessions: sessions,
		loader:   loader,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMoves_InlineState(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, "POST", "/moves", StateRequest{State: domain.NewDialogueState("lyra", "A")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decodeBody[map[string][]string](t, w)
	assert.Equal(t, []string{"activate-trigger player A T K"}, got["moves"])

	w = f.do(t, "POST", "/moves", StateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions_ApplyFlow(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "POST", "/sessions", map[string]string{"persona": "lyra"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	started := decodeBody[domain.DialogueState](t, w)
	require.NotEmpty(t, started.SessionID)
	assert.Equal(t, "A", started.CurrentContext)

	w = f.do(t, "POST", "/apply", ApplyRequest{StateRequest: StateRequest{SessionID: started.SessionID}, Move: "(activate-trigger player A T K)"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[ApplyResponse](t, w)
	assert.Equal(t, []string{"K"}, resp.Diff.Concepts)

	w = f.do(t, "POST", "/apply", ApplyRequest{StateRequest: StateRequest{SessionID: started.SessionID}, Move: "shift-context player A B"})
	assert.Equal(t, http.StatusConflict, w.Code, "B is still locked")

	w = f.do(t, "POST", "/apply", ApplyRequest{StateRequest: StateRequest{SessionID: started.SessionID}, Move: "apply-concept player A B K"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, "GET", "/sessions/"+started.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored := decodeBody[domain.DialogueState](t, w)
	assert.Equal(t, "B", stored.CurrentContext)
	assert.True(t, stored.UnlockedContexts.Has("B"))

	w = f.do(t, "GET", "/sessions", nil)
	assert.Contains(t, decodeBody[map[string][]string](t, w)["sessions"], started.SessionID)

	w = f.do(t, "DELETE", "/sessions/"+started.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, "GET", "/sessions/"+started.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApply_Errors(t *testing.T) {
	f := newFixture(t, nil)
	state := domain.NewDialogueState("lyra", "A")

	tests := []struct {
		name string
		body ApplyRequest
		want int
	}{
		{"missing move", ApplyRequest{StateRequest: StateRequest{State: state}}, http.StatusBadRequest},
		{"malformed", ApplyRequest{StateRequest: StateRequest{State: state}, Move: "shift-context player"}, http.StatusBadRequest},
		{"unknown verb", ApplyRequest{StateRequest: StateRequest{State: state}, Move: "dance player"}, http.StatusBadRequest},
		{"unknown session", ApplyRequest{StateRequest: StateRequest{SessionID: "ghost"}, Move: "activate-trigger player A T K"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", "/apply", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestPlan(t *testing.T) {
	planner := ports.PlannerFunc(func(context.Context, string, string) ([]string, error) {
		return []string{"(activate-trigger player A T K)", "(apply-concept player A B K)"}, nil
	})
	f := newFixture(t, planner)

	w := f.do(t, "POST", "/plan", PlanRequest{StateRequest: StateRequest{State: domain.NewDialogueState("lyra", "A")}, GoalContext: "B"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[PlanResponse](t, w)
	assert.Equal(t, "(visited B)", resp.Goal)
	assert.Equal(t, []string{"activate-trigger player A T K", "apply-concept player A B K"}, resp.Steps)

	w = f.do(t, "POST", "/plan", PlanRequest{StateRequest: StateRequest{State: domain.NewDialogueState("lyra", "A")}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlan_NoPlanCarriesDiagnosis(t *testing.T) {
	planner := ports.PlannerFunc(func(context.Context, string, string) ([]string, error) {
		return nil, domain.ErrNoPlanFound
	})
	f := newFixture(t, planner)

	w := f.do(t, "POST", "/plan", PlanRequest{StateRequest: StateRequest{State: domain.NewDialogueState("lyra", "A")}, GoalContext: "B"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	resp := decodeBody[PlanResponse](t, w)
	require.NotNil(t, resp.Diagnosis)
	assert.NotEmpty(t, resp.Error)
}

func TestPlan_WithoutPlanner(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, "POST", "/plan", PlanRequest{StateRequest: StateRequest{State: domain.NewDialogueState("lyra", "A")}, GoalContext: "B"})
	assert.Equal(t, http.StatusNotImplemented, w.Code, w.Body.String())
}

func TestPathRequirements_OpenRoute(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "POST", "/path-requirements", PathRequest{Start: "A", Goal: "A"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeBody[runtime.Requirements](t, w)
	assert.Equal(t, []string{"A"}, got.Path)

	w = f.do(t, "POST", "/path-requirements", PathRequest{Start: "A", Goal: "Nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, "POST", "/path-requirements", PathRequest{Start: "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraph(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, "GET", "/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph TD")
	assert.Contains(t, w.Body.String(), `A -->|"K"| B`)

	state, err := f.sessions.Start(context.Background(), "lyra")
	require.NoError(t, err)
	w = f.do(t, "GET", "/graph?session_id="+state.SessionID, nil)
	assert.Contains(t, w.Body.String(), "class A current;")

	w = f.do(t, "GET", "/graph?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	world := decodeBody[domain.World](t, w)
	assert.Len(t, world.Contexts, 2)

	w = f.do(t, "GET", "/graph?format=svg", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvents_SessionDiffs(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	state, err := f.sessions.Start(context.Background(), "lyra")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?session_id="+state.SessionID+"&watch=concepts", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	w := f.do(t, "POST", "/apply", ApplyRequest{StateRequest: StateRequest{SessionID: state.SessionID}, Move: "activate-trigger player A T K"})
	require.Equal(t, http.StatusOK, w.Code)

	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			assert.Contains(t, lines.Text(), `"concepts":["K"]`)
			return
		}
	}
	t.Fatal("no diff received")
}

func TestEvents_WorldReload(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	f.loader.Set(testutils.ScenarioWorld())
	for lines.Scan() {
		if lines.Text() == "event: reload" {
			return
		}
	}
	t.Fatal("no reload event received")
}

func TestTouches(t *testing.T) {
	mood := "tense"
	payload, _ := json.Marshal(domain.StateDiff{CurrentMood: &mood})
	assert.True(t, touches(string(payload), []string{"mood"}))
	assert.False(t, touches(string(payload), []string{"context", "concepts"}))
}

func TestCORS(t *testing.T) {
	loader := memory.NewLoader(testutils.ScenarioWorld())
	engine := runtime.NewEngine(loader)
	h := NewHandler(engine, WithCORSOrigins("http://allowed.test"))

	req := httptest.NewRequest("OPTIONS", "/moves", nil)
	req.Header.Set("Origin", "http://allowed.test")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://allowed.test", w.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

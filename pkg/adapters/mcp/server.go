package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/compiler"
	"github.com/VasyaLutiy/daqs-v5.0/internal/diagnostics"
	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/graph"
	"github.com/VasyaLutiy/daqs-v5.0/internal/runtime"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/session"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	WorldURI = "daqs://world"
	GraphURI = "daqs://graph"
)

// Engine is the part of the daqs engine exposed as MCP tools.
type Engine interface {
	NewState(persona string) (*domain.DialogueState, error)
	ValidMoves(state *domain.DialogueState) ([]domain.Move, error)
	ApplyToken(ctx context.Context, state *domain.DialogueState, token string) (*domain.StateDiff, error)
	Plan(ctx context.Context, state *domain.DialogueState, goal compiler.Goal) (*runtime.PlanResult, error)
	PathRequirements(ctx context.Context, kind runtime.MapKind, start, goal string, state *domain.DialogueState) (*runtime.Requirements, error)
	Store() (*world.Store, error)
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithSessions lets tools address stored sessions by session_id and adds
// the start_session tool.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) { s.sessions = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("daqs-mcp", version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// StateInput selects the dialogue state a tool works on.
type StateInput struct {
	SessionID string         `json:"session_id,omitempty" jsonschema_description:"Stored session to use"`
	State     map[string]any `json:"state,omitempty" jsonschema_description:"Inline dialogue state (current_context, owned_concepts, ...)"`
}

type MovesResult struct {
	Moves []string `json:"moves" jsonschema_description:"Legal move tokens"`
}

type ApplyInput struct {
	StateInput
	Move string `json:"move" jsonschema:"required" jsonschema_description:"Move token, e.g. shift-context player a b"`
}

type ApplyResult struct {
	State *domain.DialogueState `json:"state"`
	Diff  *domain.StateDiff     `json:"diff,omitempty"`
}

type PlanInput struct {
	StateInput
	GoalContext string `json:"goal_context,omitempty" jsonschema_description:"Context to reach"`
	GoalExpr    string `json:"goal_expr,omitempty" jsonschema_description:"Raw goal expression, wins over goal_context"`
}

type PlanResult struct {
	Goal      string                 `json:"goal"`
	Steps     []string               `json:"steps"`
	Diagnosis *diagnostics.Diagnosis `json:"diagnosis,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

type PathInput struct {
	StateInput
	Start string `json:"start" jsonschema:"required"`
	Goal  string `json:"goal" jsonschema:"required"`
	Map   string `json:"map,omitempty" jsonschema:"enum=contexts,enum=world_map"`
}

type StartInput struct {
	Persona   string `json:"persona,omitempty"`
	SessionID string `json:"session_id,omitempty" jsonschema_description:"Reuse or create this id"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("valid_moves",
		mcp.WithDescription("List the legal moves of a dialogue state."),
		mcp.WithInputSchema[StateInput](),
		mcp.WithOutputSchema[MovesResult](),
	), s.handleValidMoves)

	s.mcpServer.AddTool(mcp.NewTool("apply_move",
		mcp.WithDescription("Apply one move token and return the new state and its side effects."),
		mcp.WithInputSchema[ApplyInput](),
		mcp.WithOutputSchema[ApplyResult](),
	), s.handleApplyMove)

	s.mcpServer.AddTool(mcp.NewTool("plan_goal",
		mcp.WithDescription("Plan a sequence of moves reaching a goal. Failures come with a diagnosis."),
		mcp.WithInputSchema[PlanInput](),
		mcp.WithOutputSchema[PlanResult](),
	), s.handlePlanGoal)

	s.mcpServer.AddTool(mcp.NewTool("path_requirements",
		mcp.WithDescription("Hint oracle: the concepts needed to get from start to goal, and the path."),
		mcp.WithInputSchema[PathInput](),
		mcp.WithOutputSchema[runtime.Requirements](),
	), s.handlePathRequirements)

	if s.sessions != nil {
		s.mcpServer.AddTool(mcp.NewTool("start_session",
			mcp.WithDescription("Start a stored dialogue session with a persona."),
			mcp.WithInputSchema[StartInput](),
		), s.handleStartSession)
	}
}

func (s *Server) handleValidMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input StateInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	state, err := s.state(ctx, input)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("no state", err), nil
	}
	moves, err := s.engine.ValidMoves(state)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("valid moves failed", err), nil
	}
	return mcp.NewToolResultStructuredOnly(MovesResult{Moves: domain.Tokens(moves)}), nil
}

func (s *Server) handleApplyMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ApplyInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if input.Move == "" {
		return mcp.NewToolResultError("move is required"), nil
	}

	var (
		state *domain.DialogueState
		diff  *domain.StateDiff
		err   error
	)
	if input.SessionID != "" && s.sessions != nil {
		state, err = s.sessions.Update(ctx, input.SessionID, func(ctx context.Context, st *domain.DialogueState) error {
			var applyErr error
			diff, applyErr = s.engine.ApplyToken(ctx, st, input.Move)
			return applyErr
		})
	} else if state, err = s.state(ctx, input.StateInput); err == nil {
		diff, err = s.engine.ApplyToken(ctx, state, input.Move)
	}
	if err != nil {
		s.logger.Debug("mcp move rejected", "move", input.Move, "err", err)
		return mcp.NewToolResultErrorFromErr("move rejected", err), nil
	}
	return mcp.NewToolResultStructuredOnly(ApplyResult{State: state, Diff: diff}), nil
}

func (s *Server) handlePlanGoal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input PlanInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if input.GoalContext == "" && input.GoalExpr == "" {
		return mcp.NewToolResultError("goal_context or goal_expr is required"), nil
	}
	state, err := s.state(ctx, input.StateInput)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("no state", err), nil
	}

	goal := compiler.Goal{Context: input.GoalContext, Expr: input.GoalExpr}
	res, err := s.engine.Plan(ctx, state, goal)
	if res == nil {
		return mcp.NewToolResultErrorFromErr("planning failed", err), nil
	}
	out := PlanResult{Goal: goal.String(), Steps: res.Tokens(), Diagnosis: res.Diagnosis}
	if err != nil {
		out.Error = err.Error()
		// An unsolvable goal is an answer, not a tool failure.
		if !errors.Is(err, domain.ErrNoPlanFound) && !errors.Is(err, domain.ErrPlannerTimeout) {
			result := mcp.NewToolResultStructuredOnly(out)
			result.IsError = true
			return result, nil
		}
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func (s *Server) handlePathRequirements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input PathInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if input.Start == "" || input.Goal == "" {
		return mcp.NewToolResultError("start and goal are required"), nil
	}
	var state *domain.DialogueState
	if input.SessionID != "" || input.State != nil {
		var err error
		if state, err = s.state(ctx, input.StateInput); err != nil {
			return mcp.NewToolResultErrorFromErr("no state", err), nil
		}
	}

	req, err := s.engine.PathRequirements(ctx, runtime.MapKind(input.Map), input.Start, input.Goal, state)
	if err != nil {
		if req != nil && req.Diagnosis != nil {
			result := mcp.NewToolResultStructuredOnly(req)
			result.IsError = true
			return result, nil
		}
		return mcp.NewToolResultErrorFromErr("path requirements failed", err), nil
	}
	return mcp.NewToolResultStructuredOnly(req), nil
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input StartInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	var (
		state *domain.DialogueState
		err   error
	)
	if input.SessionID != "" {
		state, err = s.sessions.LoadOrStart(ctx, input.SessionID, input.Persona)
	} else {
		state, err = s.sessions.Start(ctx, input.Persona)
	}
	if err != nil {
		return mcp.NewToolResultErrorFromErr("start session failed", err), nil
	}
	return mcp.NewToolResultStructuredOnly(state), nil
}

func (s *Server) state(ctx context.Context, input StateInput) (*domain.DialogueState, error) {
	switch {
	case input.SessionID != "" && s.sessions != nil:
		return s.sessions.Load(ctx, input.SessionID)
	case input.State != nil:
		raw, err := json.Marshal(input.State)
		if err != nil {
			return nil, err
		}
		var st domain.DialogueState
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		st.Normalize()
		if st.CurrentContext == "" {
			return nil, errors.New("state.current_context is required")
		}
		return &st, nil
	case input.SessionID != "":
		return nil, fmt.Errorf("%w: sessions are not enabled", domain.ErrSessionNotFound)
	}
	return nil, errors.New("session_id or state is required")
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(WorldURI, "Loaded world records",
		mcp.WithMIMEType("application/json"),
	), s.readWorld)
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Dialogue graph (Mermaid)",
		mcp.WithMIMEType("text/plain"),
	), s.readGraph)
}

func (s *Server) readWorld(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	store, err := s.engine.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to read world: %w", err)
	}
	data, err := json.Marshal(store.World())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: WorldURI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	store, err := s.engine.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to read world: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: GraphURI, MIMEType: "text/plain", Text: graph.GenerateMermaid(store, nil)},
	}, nil
}

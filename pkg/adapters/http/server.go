package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/compiler"
	"github.com/VasyaLutiy/daqs-v5.0/internal/diagnostics"
	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/graph"
	"github.com/VasyaLutiy/daqs-v5.0/internal/runtime"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/session"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the part of the daqs engine served over HTTP.
type Engine interface {
	NewState(persona string) (*domain.DialogueState, error)
	ValidMoves(state *domain.DialogueState) ([]domain.Move, error)
	ApplyToken(ctx context.Context, state *domain.DialogueState, token string) (*domain.StateDiff, error)
	Plan(ctx context.Context, state *domain.DialogueState, goal compiler.Goal) (*runtime.PlanResult, error)
	PathRequirements(ctx context.Context, kind runtime.MapKind, start, goal string, state *domain.DialogueState) (*runtime.Requirements, error)
	Inspect() (runtime.Summary, error)
	Store() (*world.Store, error)
}

// Server serves the engine. Requests name either a stored session
// (session_id) or carry the dialogue state inline (state).
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Streams  *StreamManager

	watcher ports.Watchable
	metrics http.Handler
	origins []string
	logger  *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithSessions enables the /sessions routes and session_id requests.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) { s.Sessions = m }
}

// WithWatcher streams world reloads on /events.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) { s.watcher = w }
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithCORSOrigins restricts the allowed origins. Default is "*".
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", s.Health)
	r.Get("/info", s.Info)
	r.Get("/graph", s.Graph)
	r.Post("/moves", s.Moves)
	r.Post("/apply", s.Apply)
	r.Post("/plan", s.Plan)
	r.Post("/path-requirements", s.PathRequirements)
	r.Get("/events", s.Events)
	if s.Sessions != nil {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.ListSessions)
			r.Post("/", s.StartSession)
			r.Get("/{id}", s.GetSession)
			r.Delete("/{id}", s.DeleteSession)
		})
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.origins) > 0 {
			origin = ""
			for _, o := range s.origins {
				if o == r.Header.Get("Origin") {
					origin = o
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StateRequest selects the dialogue state a request works on.
type StateRequest struct {
	SessionID string                `json:"session_id,omitempty"`
	State     *domain.DialogueState `json:"state,omitempty"`
}

// ApplyRequest is the body of POST /apply.
type ApplyRequest struct {
	StateRequest
	Move string `json:"move"`
}

// ApplyResponse carries the new state and what changed.
type ApplyResponse struct {
	State *domain.DialogueState `json:"state"`
	Diff  *domain.StateDiff     `json:"diff,omitempty"`
}

// PlanRequest is the body of POST /plan. GoalExpr wins over GoalContext.
type PlanRequest struct {
	StateRequest
	GoalContext string `json:"goal_context,omitempty"`
	GoalExpr    string `json:"goal_expr,omitempty"`
}

// PlanResponse lists the plan steps or the diagnosis of a failure.
type PlanResponse struct {
	Goal       string                 `json:"goal"`
	Steps      []string               `json:"steps"`
	Diagnosis  *diagnostics.Diagnosis `json:"diagnosis,omitempty"`
	DurationMS int64                  `json:"duration_ms"`
	Error      string                 `json:"error,omitempty"`
}

// PathRequest is the body of POST /path-requirements.
type PathRequest struct {
	StateRequest
	Start string          `json:"start"`
	Goal  string          `json:"goal"`
	Map   runtime.MapKind `json:"map,omitempty"`
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info handles GET /info with the world summary.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Engine.Inspect()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Graph handles GET /graph. format=mermaid (default) renders the dialogue
// graph, or the world map with map=world_map; format=json returns the world
// records. session_id overlays the session's progress.
func (s *Server) Graph(w http.ResponseWriter, r *http.Request) {
	store, err := s.Engine.Store()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()

	var overlay *graph.GraphOverlay
	if id := q.Get("session_id"); id != "" && s.Sessions != nil {
		state, err := s.Sessions.Load(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		store = store.ForPersona(state.ActivePersona)
		overlay = &graph.GraphOverlay{
			VisitedNodes: state.Visited.Sorted(),
			CurrentNode:  state.CurrentContext,
			Unlocked:     state.UnlockedContexts.Sorted(),
		}
	} else if persona := q.Get("persona"); persona != "" {
		store = store.ForPersona(persona)
	}

	switch q.Get("format") {
	case "json":
		writeJSON(w, http.StatusOK, store.World())
	case "", "mermaid":
		var out string
		if runtime.MapKind(q.Get("map")) == runtime.MapWorld {
			out = graph.GenerateWorldMermaid(store, nil)
		} else {
			out = graph.GenerateMermaid(store, overlay)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(out))
	default:
		http.Error(w, fmt.Sprintf("unknown format %q", q.Get("format")), http.StatusBadRequest)
	}
}

// Moves handles POST /moves.
func (s *Server) Moves(w http.ResponseWriter, r *http.Request) {
	var body StateRequest
	if !s.decode(w, r, &body) {
		return
	}
	state, err := s.state(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	moves, err := s.Engine.ValidMoves(state)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"moves": domain.Tokens(moves)})
}

// Apply handles POST /apply. Session states are updated under the session
// lock and the diff is broadcast to /events subscribers.
func (s *Server) Apply(w http.ResponseWriter, r *http.Request) {
	var body ApplyRequest
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Move) == "" {
		http.Error(w, "move is required", http.StatusBadRequest)
		return
	}

	var (
		state *domain.DialogueState
		diff  *domain.StateDiff
		err   error
	)
	if body.SessionID != "" && s.Sessions != nil {
		state, err = s.Sessions.Update(r.Context(), body.SessionID, func(ctx context.Context, st *domain.DialogueState) error {
			var applyErr error
			diff, applyErr = s.Engine.ApplyToken(ctx, st, body.Move)
			return applyErr
		})
	} else {
		state, err = s.state(r.Context(), body.StateRequest)
		if err == nil {
			diff, err = s.Engine.ApplyToken(r.Context(), state, body.Move)
		}
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if diff != nil && state.SessionID != "" {
		if payload, err := json.Marshal(diff); err == nil {
			s.Streams.Broadcast(state.SessionID, string(payload))
		}
	}
	writeJSON(w, http.StatusOK, ApplyResponse{State: state, Diff: diff})
}

// Plan handles POST /plan. Failures with a diagnosis answer 422 (no plan) or
// 504 (timeout) and still carry the diagnosis.
func (s *Server) Plan(w http.ResponseWriter, r *http.Request) {
	var body PlanRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.GoalContext == "" && body.GoalExpr == "" {
		http.Error(w, "goal_context or goal_expr is required", http.StatusBadRequest)
		return
	}
	state, err := s.state(r.Context(), body.StateRequest)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	goal := compiler.Goal{Context: body.GoalContext, Expr: body.GoalExpr}
	res, err := s.Engine.Plan(r.Context(), state, goal)
	if res == nil {
		if err == nil {
			err = errors.New("planner returned no result")
		}
		s.fail(w, r, err)
		return
	}

	resp := PlanResponse{
		Goal:       goal.String(),
		Steps:      res.Tokens(),
		Diagnosis:  res.Diagnosis,
		DurationMS: res.Duration.Milliseconds(),
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(err)
	}
	writeJSON(w, status, resp)
}

// PathRequirements handles POST /path-requirements.
func (s *Server) PathRequirements(w http.ResponseWriter, r *http.Request) {
	var body PathRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Start == "" || body.Goal == "" {
		http.Error(w, "start and goal are required", http.StatusBadRequest)
		return
	}
	var state *domain.DialogueState
	if body.SessionID != "" || body.State != nil {
		var err error
		if state, err = s.state(r.Context(), body.StateRequest); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	req, err := s.Engine.PathRequirements(r.Context(), body.Map, body.Start, body.Goal, state)
	if err != nil {
		if req != nil && req.Diagnosis != nil {
			writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "diagnosis": req.Diagnosis})
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// StartSession handles POST /sessions. With session_id the session is
// loaded or created under that id; otherwise a fresh id is assigned.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id,omitempty"`
		Persona   string `json:"persona,omitempty"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	var (
		state *domain.DialogueState
		err   error
	)
	if body.SessionID != "" {
		state, err = s.Sessions.LoadOrStart(r.Context(), body.SessionID, body.Persona)
	} else {
		state, err = s.Sessions.Start(r.Context(), body.Persona)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) state(ctx context.Context, req StateRequest) (*domain.DialogueState, error) {
	switch {
	case req.SessionID != "" && s.Sessions != nil:
		return s.Sessions.Load(ctx, req.SessionID)
	case req.State != nil:
		st := req.State.Clone()
		st.Normalize()
		return st, nil
	case req.SessionID != "":
		return nil, fmt.Errorf("%w: sessions are not enabled", domain.ErrSessionNotFound)
	}
	return nil, errBadRequest("session_id or state is required")
}

type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var bad errBadRequest
	switch {
	case errors.As(err, &bad),
		errors.Is(err, domain.ErrMalformedMove),
		errors.Is(err, domain.ErrUnknownVerb):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrUnknownPersona),
		errors.Is(err, domain.ErrUnknownContext):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIllegalMove):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoPlanFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoPlanner):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrPlannerTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

// keepAlive is how often idle SSE streams get a comment line.
const keepAlive = 15 * time.Second

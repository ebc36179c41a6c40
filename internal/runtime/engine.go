package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/compiler"
	"github.com/VasyaLutiy/daqs-v5.0/internal/diagnostics"
	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/internal/moves"
	"github.com/VasyaLutiy/daqs-v5.0/internal/transition"
	"github.com/VasyaLutiy/daqs-v5.0/internal/validator"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPlannerTimeout bounds a single planner call.
const DefaultPlannerTimeout = 10 * time.Second

const tracerName = "github.com/VasyaLutiy/daqs-v5.0/internal/runtime"

// Engine ties the world registry to move generation, transitions, compilation
// and planning. It holds no per-session state and is safe for concurrent use.
type Engine struct {
	loader    ports.WorldLoader
	registry  *world.Registry
	planner   ports.Planner
	timeout   time.Duration
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	agent     string
	policy    moves.NPCPolicy
	strict    bool
	tracer    trace.Tracer
	explainer *diagnostics.Explainer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPlanner sets the external solver used by Plan and PathRequirements.
func WithPlanner(p ports.Planner) EngineOption {
	return func(e *Engine) { e.planner = p }
}

// WithPlannerTimeout bounds each planner call. Non-positive values keep the default.
func WithPlannerTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) EngineOption {
	return func(e *Engine) { e.hooks = e.hooks.Merge(h) }
}

// WithAgent sets the agent id used in move tokens and compiled problems.
func WithAgent(agent string) EngineOption {
	return func(e *Engine) { e.agent = agent }
}

// WithNPCPolicy replaces the NPC initiative policy.
func WithNPCPolicy(p moves.NPCPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithStrictMoves makes Apply reject moves that are not currently legal.
func WithStrictMoves(strict bool) EngineOption {
	return func(e *Engine) { e.strict = strict }
}

// WithTracerProvider sets the OpenTelemetry provider. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// NewEngine creates an engine. The world is not read until Reload is called.
func NewEngine(loader ports.WorldLoader, opts ...EngineOption) *Engine {
	e := &Engine{
		loader:   loader,
		registry: world.NewRegistry(nil),
		timeout:  DefaultPlannerTimeout,
		logger:   logging.NewNop(),
		agent:    moves.DefaultAgent,
		policy:   moves.DefaultNPCPolicy(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.explainer = diagnostics.New(diagnostics.WithLogger(e.logger))
	return e
}

// Reload reads the world, validates it and swaps it in. On any error, including
// an error-level validation issue, the previous world stays active.
func (e *Engine) Reload(ctx context.Context) (validator.Report, error) {
	w, err := e.loader.Load(ctx)
	if err != nil {
		return validator.Report{}, fmt.Errorf("load world: %w", err)
	}
	store, err := world.NewStore(w)
	if err != nil {
		return validator.Report{}, fmt.Errorf("index world: %w", err)
	}
	report := validator.Validate(store)
	for _, issue := range report.Warnings() {
		e.logger.Warn("world inconsistency", "kind", issue.Kind, "id", issue.ID, "msg", issue.Message)
	}
	if err := report.Err(); err != nil {
		return report, fmt.Errorf("validate world: %w", err)
	}

	e.registry.Swap(store)
	stats := store.Stats()
	e.logger.Info("world loaded", "contexts", stats.Contexts, "triggers", stats.Triggers, "personas", stats.Personas)
	if e.hooks.OnWorldLoaded != nil {
		stats.Timestamp = time.Now()
		stats.Type = domain.EventWorldLoaded
		e.hooks.OnWorldLoaded(ctx, &stats)
	}
	return report, nil
}

// Store returns the active world.
func (e *Engine) Store() (*world.Store, error) {
	return e.registry.Current()
}

// Agent returns the agent id used in move tokens.
func (e *Engine) Agent() string { return e.agent }

// kit bundles the components bound to one world snapshot.
type kit struct {
	store     *world.Store
	validator *moves.Validator
	manager   *transition.Manager
	compiler  *compiler.Compiler
}

func (e *Engine) kit() (*kit, error) {
	store, err := e.registry.Current()
	if err != nil {
		return nil, err
	}
	return &kit{
		store:     store,
		validator: moves.New(store, moves.WithLogger(e.logger), moves.WithAgent(e.agent), moves.WithNPCPolicy(e.policy)),
		manager:   transition.New(store, transition.WithLogger(e.logger)),
		compiler:  compiler.New(store, compiler.WithLogger(e.logger), compiler.WithAgent(e.agent), compiler.WithNPCPolicy(e.policy)),
	}, nil
}

// NewState starts a dialogue with persona at its start context.
// An empty persona starts a dialogue with the base world.
func (e *Engine) NewState(persona string) (*domain.DialogueState, error) {
	store, err := e.registry.Current()
	if err != nil {
		return nil, err
	}
	if persona != "" {
		if _, ok := store.Persona(persona); !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPersona, persona)
		}
	}
	start, err := store.StartContext(persona)
	if err != nil {
		return nil, err
	}
	return domain.NewDialogueState(persona, start), nil
}

// ValidMoves lists the legal moves of state.
func (e *Engine) ValidMoves(state *domain.DialogueState) ([]domain.Move, error) {
	k, err := e.kit()
	if err != nil {
		return nil, err
	}
	return k.validator.LegalMoves(state), nil
}

// Apply applies mv to state. With strict moves enabled, illegal moves are
// rejected with domain.ErrIllegalMove. A rejected move leaves state unchanged.
func (e *Engine) Apply(ctx context.Context, state *domain.DialogueState, mv domain.Move) (*domain.StateDiff, error) {
	k, err := e.kit()
	if err != nil {
		return nil, err
	}
	if e.strict && !k.validator.IsLegal(state, mv) {
		err := fmt.Errorf("%w: %s", domain.ErrIllegalMove, mv)
		e.rejected(ctx, state, mv.String(), mv.Verb(), err)
		return nil, err
	}
	diff, err := k.manager.Apply(state, mv)
	if err != nil {
		e.rejected(ctx, state, mv.String(), mv.Verb(), err)
		return nil, err
	}
	if e.hooks.OnMoveApplied != nil {
		e.hooks.OnMoveApplied(ctx, &domain.MoveEvent{
			EventBase: e.base(domain.EventMoveApplied, state),
			Move:      mv.String(),
			Verb:      mv.Verb(),
			Persona:   state.ActivePersona,
			Diff:      diff,
		})
	}
	return diff, nil
}

// ApplyToken parses token and applies it.
func (e *Engine) ApplyToken(ctx context.Context, state *domain.DialogueState, token string) (*domain.StateDiff, error) {
	mv, err := domain.ParseMove(token)
	if err != nil {
		e.rejected(ctx, state, token, "", err)
		return nil, err
	}
	return e.Apply(ctx, state, mv)
}

func (e *Engine) rejected(ctx context.Context, state *domain.DialogueState, move, verb string, err error) {
	e.logger.Debug("move rejected", "move", move, "session_id", state.SessionID, "err", err)
	if e.hooks.OnMoveRejected == nil {
		return
	}
	e.hooks.OnMoveRejected(ctx, &domain.MoveEvent{
		EventBase: e.base(domain.EventMoveRejected, state),
		Move:      move,
		Verb:      verb,
		Persona:   state.ActivePersona,
		Err:       err,
	})
}

func (e *Engine) base(t domain.EventType, state *domain.DialogueState) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: state.SessionID}
}

// Compile builds the social planning problem for reaching goal from state.
func (e *Engine) Compile(state *domain.DialogueState, goal compiler.Goal) (*compiler.Compilation, error) {
	k, err := e.kit()
	if err != nil {
		return nil, err
	}
	return k.compiler.Social(state, goal)
}

// CompileNavigation builds the physical planning problem for player.
func (e *Engine) CompileNavigation(player domain.PlayerState, goal string) (*compiler.Compilation, error) {
	k, err := e.kit()
	if err != nil {
		return nil, err
	}
	return k.compiler.Navigation(player, goal)
}

// Summary describes the loaded world and engine settings.
type Summary struct {
	domain.WorldEvent
	ContextIDs     []string      `json:"context_ids"`
	PersonaIDs     []string      `json:"persona_ids"`
	Planner        bool          `json:"planner"`
	PlannerTimeout time.Duration `json:"planner_timeout"`
	Strict         bool          `json:"strict"`
}

// Inspect summarises the active world.
func (e *Engine) Inspect() (Summary, error) {
	store, err := e.registry.Current()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		WorldEvent:     store.Stats(),
		ContextIDs:     store.ContextIDs(),
		PersonaIDs:     store.PersonaIDs(),
		Planner:        e.planner != nil,
		PlannerTimeout: e.timeout,
		Strict:         e.strict,
	}, nil
}

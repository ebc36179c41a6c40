package daqs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/compiler"
	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/internal/moves"
	"github.com/VasyaLutiy/daqs-v5.0/internal/runtime"
	"github.com/VasyaLutiy/daqs-v5.0/internal/validator"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/atlas"
	loamAdapter "github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/loam"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
	"go.opentelemetry.io/otel/trace"
)

// Goal is a planning goal: a context to visit or a raw goal expression.
type Goal = compiler.Goal

// Compilation is a compiled planning domain and problem.
type Compilation = compiler.Compilation

// PlanResult is the outcome of a planning request.
type PlanResult = runtime.PlanResult

// Requirements is the answer of the hint oracle.
type Requirements = runtime.Requirements

// Report lists world inconsistencies found on load.
type Report = validator.Report

// Summary describes the loaded world.
type Summary = runtime.Summary

// MapKind selects the graph of an oracle query.
type MapKind = runtime.MapKind

const (
	MapContexts = runtime.MapContexts
	MapWorld    = runtime.MapWorld
)

// World formats understood by New.
const (
	FormatAtlas = "atlas"
	FormatLoam  = "loam"
)

// ReloadDebounce is how long AutoReload waits after a change before reloading,
// so editors that write in several steps trigger one reload.
const ReloadDebounce = 100 * time.Millisecond

// Engine is the high-level entry point for the daqs library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	loader      ports.WorldLoader
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	format      string
	lenient     bool
	report      Report
	Name        string

	// reloadMu orders reloads so the active world, the report and the
	// watcher signals always come from the same load.
	reloadMu sync.Mutex

	mu       sync.Mutex
	watchers []chan struct{}
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom WorldLoader, bypassing the directory loaders.
func WithLoader(l ports.WorldLoader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithFormat selects the directory loader: FormatAtlas (default) or FormatLoam.
func WithFormat(format string) Option {
	return func(e *Engine) { e.format = format }
}

// WithLenientLoading makes the atlas loader skip malformed files instead of failing.
func WithLenientLoading() Option {
	return func(e *Engine) { e.lenient = true }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithPlanner sets the planner used by Plan and PathRequirements.
func WithPlanner(p ports.Planner) Option {
	return func(e *Engine) { e.runtimeOpts = append(e.runtimeOpts, runtime.WithPlanner(p)) }
}

// WithPlannerTimeout bounds every planner call.
func WithPlannerTimeout(d time.Duration) Option {
	return func(e *Engine) { e.runtimeOpts = append(e.runtimeOpts, runtime.WithPlannerTimeout(d)) }
}

// WithAgent sets the agent id used in move tokens (default "player").
func WithAgent(agent string) Option {
	return func(e *Engine) { e.runtimeOpts = append(e.runtimeOpts, runtime.WithAgent(agent)) }
}

// WithNPCPolicy replaces the NPC initiative policy.
func WithNPCPolicy(p moves.NPCPolicy) Option {
	return func(e *Engine) { e.runtimeOpts = append(e.runtimeOpts, runtime.WithNPCPolicy(p)) }
}

// WithStrictMoves rejects moves that are not currently legal.
func WithStrictMoves(strict bool) Option {
	return func(e *Engine) { e.runtimeOpts = append(e.runtimeOpts, runtime.WithStrictMoves(strict)) }
}

// WithTracerProvider traces planner calls with tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.runtimeOpts = append(e.runtimeOpts, runtime.WithTracerProvider(tp)) }
}

// New initializes an Engine and loads the world.
// By default, it reads a YAML atlas directory at dir. If WithLoader is
// provided, dir is only used as a label.
// A world that fails to load or validate is an error: there is nothing to
// serve without one.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{format: FormatAtlas}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			eng.Name = filepath.Base(abs)
		}
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("world", eng.Name)
	}

	if eng.loader == nil {
		if dir == "" {
			return nil, errors.New("dir is required when no custom loader is provided")
		}
		switch eng.format {
		case FormatAtlas, "":
			eng.loader = atlas.New(dir, atlas.WithStrict(!eng.lenient), atlas.WithLogger(eng.logger))
		case FormatLoam:
			l, err := loamAdapter.Open(dir, loamAdapter.WithLogger(eng.logger))
			if err != nil {
				return nil, err
			}
			eng.loader = l
		default:
			return nil, fmt.Errorf("unknown world format %q", eng.format)
		}
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(eng.loader, runtimeOpts...)

	if _, err := eng.Reload(context.Background()); err != nil {
		return nil, err
	}
	return eng, nil
}

// Reload reads the world again and swaps it in. On failure the previous world
// stays active. Watch subscribers are signalled after a successful swap.
func (e *Engine) Reload(ctx context.Context) (Report, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	report, err := e.runtime.Reload(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.report = report
	if err != nil {
		return report, err
	}
	for _, ch := range e.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return report, nil
}

// Report returns the validation report of the last load.
func (e *Engine) Report() Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report
}

// Watch returns a channel signalled after every successful reload. It is
// closed when ctx ends.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	e.watchers = append(e.watchers, ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, w := range e.watchers {
			if w == ch {
				e.watchers = append(e.watchers[:i], e.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

// AutoReload reloads the world whenever the loader reports a change, until
// ctx ends. Failed reloads are logged and keep the previous world. It returns
// an error when the loader cannot be watched.
func (e *Engine) AutoReload(ctx context.Context) error {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return errors.New("current loader does not support watching")
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(ReloadDebounce):
		}
		if _, err := e.Reload(ctx); err != nil {
			e.logger.Error("reload failed, keeping previous world", "err", err)
			continue
		}
		e.logger.Info("world reloaded")
	}
}

// NewState starts a dialogue with persona at its start context.
func (e *Engine) NewState(persona string) (*domain.DialogueState, error) {
	return e.runtime.NewState(persona)
}

// ValidMoves lists the legal moves of state.
func (e *Engine) ValidMoves(state *domain.DialogueState) ([]domain.Move, error) {
	return e.runtime.ValidMoves(state)
}

// Apply applies mv to state in place and returns what changed.
func (e *Engine) Apply(ctx context.Context, state *domain.DialogueState, mv domain.Move) (*domain.StateDiff, error) {
	return e.runtime.Apply(ctx, state, mv)
}

// ApplyToken parses a move token and applies it.
func (e *Engine) ApplyToken(ctx context.Context, state *domain.DialogueState, token string) (*domain.StateDiff, error) {
	return e.runtime.ApplyToken(ctx, state, token)
}

// Compile returns the planning domain and problem for goal.
func (e *Engine) Compile(state *domain.DialogueState, goal Goal) (*Compilation, error) {
	return e.runtime.Compile(state, goal)
}

// Plan asks the planner how to reach goal. Failures carry a diagnosis.
func (e *Engine) Plan(ctx context.Context, state *domain.DialogueState, goal Goal) (*PlanResult, error) {
	return e.runtime.Plan(ctx, state, goal)
}

// PlanNavigation plans a physical route for player.
func (e *Engine) PlanNavigation(ctx context.Context, player domain.PlayerState, goal string) (*PlanResult, error) {
	return e.runtime.PlanNavigation(ctx, player, goal)
}

// PathRequirements answers what it takes to get from start to goal.
func (e *Engine) PathRequirements(ctx context.Context, kind MapKind, start, goal string, state *domain.DialogueState) (*Requirements, error) {
	return e.runtime.PathRequirements(ctx, kind, start, goal, state)
}

// Inspect summarises the loaded world.
func (e *Engine) Inspect() (Summary, error) {
	return e.runtime.Inspect()
}

// Store returns the active world.
func (e *Engine) Store() (*world.Store, error) {
	return e.runtime.Store()
}

// Agent returns the agent id used in move tokens.
func (e *Engine) Agent() string {
	return e.runtime.Agent()
}

// Loader returns the underlying WorldLoader used by the engine.
func (e *Engine) Loader() ports.WorldLoader {
	return e.loader
}

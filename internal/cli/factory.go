package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/VasyaLutiy/daqs-v5.0"
	"github.com/VasyaLutiy/daqs-v5.0/internal/config"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/file"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/memory"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/process"
	redisAdapter "github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/redis"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/sqlite"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/observability"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/persistence/middleware"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/ports"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/session"
)

// LockPrefix namespaces distributed session locks in Redis.
const LockPrefix = "daqs:lock:"

// App bundles what the commands share.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Engine   *daqs.Engine
	Sessions *session.Manager
	Metrics  *observability.Metrics
	closers  []func() error
}

// NewApp loads the world and wires planner, session store and collectors
// according to cfg. Close releases what it opened.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	engine, err := app.newEngine()
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Engine = engine

	store, locker, closer, err := NewStore(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	opts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(store, engine, opts...)
	return app, nil
}

func (a *App) newEngine() (*daqs.Engine, error) {
	cfg := a.Config
	hooks := a.Metrics.Hooks()
	opts := []daqs.Option{
		daqs.WithLogger(a.Logger),
		daqs.WithFormat(cfg.Format),
		daqs.WithPlannerTimeout(cfg.PlannerTimeout),
		daqs.WithAgent(cfg.Agent),
		daqs.WithStrictMoves(cfg.StrictMoves),
	}
	if !cfg.Strict {
		opts = append(opts, daqs.WithLenientLoading())
	}
	if a.Logger.Enabled(context.Background(), slog.LevelDebug) {
		hooks = hooks.Merge(debugHooks(a.Logger))
		tp := observability.NewTracerProvider(a.Logger)
		a.closers = append(a.closers, func() error { return tp.Shutdown(context.Background()) })
		opts = append(opts, daqs.WithTracerProvider(tp))
	}
	opts = append(opts, daqs.WithLifecycleHooks(hooks))

	planner, err := NewPlanner(cfg, a.Logger)
	if err != nil {
		return nil, err
	}
	if planner != nil {
		opts = append(opts, daqs.WithPlanner(planner))
	}

	engine, err := daqs.New(cfg.Dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// Close releases every resource the app opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewPlanner builds the solver selected by cfg.Planner from the planner
// config file. Without any configured planner it returns nil and the engine
// answers plan requests with domain.ErrNoPlanner.
func NewPlanner(cfg config.Config, logger *slog.Logger) (ports.Planner, error) {
	planners, err := process.LoadConfig(cfg.PlannerConfig)
	if err != nil {
		return nil, err
	}
	if len(planners.Planners) == 0 {
		if cfg.Planner != "" {
			return nil, fmt.Errorf("planner %q not configured in %s", cfg.Planner, cfg.PlannerConfig)
		}
		return nil, nil
	}
	pc, err := planners.Select(cfg.Planner)
	if err != nil {
		return nil, err
	}
	logger.Debug("planner selected", "planner", pc.Name, "command", pc.Command)
	return process.NewPlanner(pc,
		process.WithBaseDir(filepath.Dir(cfg.PlannerConfig)),
		process.WithDumpDir(cfg.PDDLDumpDir),
		process.WithLogger(logger),
	), nil
}

// NewStore opens the session store selected by cfg.Store, sealed when session
// keys are configured. Redis also yields a distributed locker. The returned
// close function may be nil.
func NewStore(ctx context.Context, cfg config.Config) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	keys, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, nil, nil, err
	}
	store, locker, closer, err := openStore(ctx, cfg)
	if err != nil || len(keys) == 0 {
		return store, locker, closer, err
	}
	enc, err := middleware.NewEncryptionConfig(keys)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, nil, nil, err
	}
	return middleware.Chain(store, middleware.NewEncryptionMiddleware(enc)), locker, closer, nil
}

func openStore(ctx context.Context, cfg config.Config) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	switch cfg.Store {
	case config.StoreMemory, "":
		return memory.NewStore(), nil, nil, nil
	case config.StoreFile:
		return file.New(cfg.SessionDir), nil, nil, nil
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, nil, s.Close, nil
	case config.StoreRedis:
		s := redisAdapter.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisAdapter.WithTTL(cfg.SessionTTL))
		if err := s.Client().Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, nil, nil, fmt.Errorf("redis at %s unreachable: %w", cfg.RedisAddr, err)
		}
		return s, redisAdapter.NewLocker(s.Client(), LockPrefix), s.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnMoveApplied: func(ctx context.Context, e *domain.MoveEvent) {
			logger.Debug("move applied", "move", e.Move, "persona", e.Persona, "session_id", e.SessionID)
		},
		OnMoveRejected: func(ctx context.Context, e *domain.MoveEvent) {
			logger.Debug("move rejected", "move", e.Move, "err", e.Err)
		},
		OnPlanFinished: func(ctx context.Context, e *domain.PlanEvent) {
			logger.Debug("plan finished", "goal", e.Goal, "outcome", e.Outcome, "steps", e.Steps, "duration", e.Duration)
		},
		OnWorldLoaded: func(ctx context.Context, e *domain.WorldEvent) {
			logger.Debug("world loaded", "contexts", e.Contexts, "triggers", e.Triggers, "personas", e.Personas)
		},
	}
}

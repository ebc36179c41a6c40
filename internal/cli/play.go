package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/VasyaLutiy/daqs-v5.0"
	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/tui"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// PlayOptions configures an interactive session.
type PlayOptions struct {
	SessionID string
	Persona   string
	Headless  bool
	Plain     bool
	Watch     bool
	Fresh     bool

	Input  io.Reader
	Output io.Writer
}

// RunPlay runs the play loop until the input ends or ctx is cancelled. With a
// session id the state is resumed from and saved to the session store.
func RunPlay(ctx context.Context, app *App, opts PlayOptions) error {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if !opts.Headless {
		tui.PrintBanner(opts.Output)
	}

	state, err := hydrate(ctx, app, opts)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}

	if opts.Watch {
		watchCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := app.Engine.AutoReload(watchCtx); err != nil {
				app.Logger.Warn("hot reload unavailable", "err", err)
			}
		}()
		reloads, _ := app.Engine.Watch(watchCtx)
		go func() {
			for range reloads {
				printSystemMessage(opts.Output, "World reloaded. Type 'moves' to refresh.")
			}
		}()
	}

	plain := opts.Plain || opts.Headless
	if f, ok := opts.Output.(*os.File); ok && !tui.IsTerminal(f) {
		plain = true
	}
	r := &daqs.Runner{
		Input:    opts.Input,
		Output:   opts.Output,
		Headless: opts.Headless,
		Renderer: daqs.ContentRenderer(tui.NewRenderer(plain)),
	}
	if opts.SessionID != "" {
		r.OnChange = func(ctx context.Context, s *domain.DialogueState) error {
			return app.Sessions.Save(ctx, opts.SessionID, s)
		}
	}

	final, err := r.Run(ctx, app.Engine, state)
	app.Logger.Info("play finished", "session_id", opts.SessionID, "context", final.CurrentContext, "err", err)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func hydrate(ctx context.Context, app *App, opts PlayOptions) (*domain.DialogueState, error) {
	if opts.SessionID == "" {
		return app.Engine.NewState(opts.Persona)
	}
	if opts.Fresh {
		if err := app.Sessions.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	}
	state, err := app.Sessions.LoadOrStart(ctx, opts.SessionID, opts.Persona)
	if err != nil {
		return nil, err
	}
	if !opts.Headless {
		printSystemMessage(opts.Output, "Session '%s' at '%s'.", opts.SessionID, state.CurrentContext)
	}
	return state, nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

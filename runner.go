package daqs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/tui"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// Runner is a line-oriented play loop over an Engine.
// Each line is a move number, a move token or a command (see help).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
	// OnChange runs after every applied move, e.g. to persist the session.
	OnChange func(ctx context.Context, state *domain.DialogueState) error
}

// ContentRenderer transforms markdown before it is written, e.g. to ANSI.
type ContentRenderer func(string) (string, error)

const helpText = `Commands:
- a number applies that move
- any move token is applied as typed
- **plan** <context> asks the planner
- **hint** <context> shows what it takes to get there
- **moves** shows the current context again
- **quit** leaves
`

// Run plays state until the input ends, quit is typed or ctx is cancelled.
// It returns the final state.
func (r *Runner) Run(ctx context.Context, engine *Engine, state *domain.DialogueState) (*domain.DialogueState, error) {
	if r.Input == nil {
		return state, errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return state, errors.New("output writer must be set (use os.Stdout)")
	}

	lines := bufio.NewScanner(r.Input)
	legal, err := r.show(engine, state)
	if err != nil {
		return state, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return state, fmt.Errorf("input error: %w", err)
			}
			return state, nil
		}
		line := strings.TrimSpace(lines.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
			continue
		case "quit", "exit":
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return state, nil
		case "help", "?":
			r.print(helpText)
			continue
		case "moves", "m":
			if legal, err = r.show(engine, state); err != nil {
				return state, err
			}
			continue
		case "plan":
			r.plan(ctx, engine, state, arg)
			continue
		case "hint":
			r.hint(ctx, engine, state, arg)
			continue
		}

		token := line
		if n, err := strconv.Atoi(line); err == nil {
			if n < 1 || n > len(legal) {
				r.print(fmt.Sprintf("_No move %d._\n", n))
				continue
			}
			token = legal[n-1].String()
		}

		diff, err := engine.ApplyToken(ctx, state, token)
		if err != nil {
			r.print(fmt.Sprintf("> rejected: %v\n", err))
			continue
		}
		r.print(tui.DiffMarkdown(diff))
		if r.OnChange != nil {
			if err := r.OnChange(ctx, state); err != nil {
				return state, fmt.Errorf("save state: %w", err)
			}
		}
		if legal, err = r.show(engine, state); err != nil {
			return state, err
		}
	}
}

func (r *Runner) show(engine *Engine, state *domain.DialogueState) ([]domain.Move, error) {
	legal, err := engine.ValidMoves(state)
	if err != nil {
		return nil, err
	}
	store, err := engine.Store()
	if err != nil {
		return nil, err
	}
	c, _ := store.ForPersona(state.ActivePersona).Context(state.CurrentContext)
	if c.ID == "" {
		c.ID = state.CurrentContext
	}
	r.print(tui.StateMarkdown(c, state, legal))
	return legal, nil
}

func (r *Runner) plan(ctx context.Context, engine *Engine, state *domain.DialogueState, target string) {
	if target == "" {
		r.print("_Usage: plan <context>_\n")
		return
	}
	res, err := engine.Plan(ctx, state, Goal{Context: target})
	if res == nil {
		r.print(fmt.Sprintf("> plan failed: %v\n", err))
		return
	}
	if err != nil && res.Diagnosis == nil {
		r.print(fmt.Sprintf("> plan failed: %v\n", err))
		return
	}
	r.print(tui.PlanMarkdown(res.Goal, res.Tokens(), res.Diagnosis))
}

func (r *Runner) hint(ctx context.Context, engine *Engine, state *domain.DialogueState, target string) {
	if target == "" {
		r.print("_Usage: hint <context>_\n")
		return
	}
	req, err := engine.PathRequirements(ctx, MapContexts, state.CurrentContext, target, state)
	if err != nil {
		if req != nil && req.Diagnosis != nil {
			r.print(tui.PlanMarkdown(target, nil, req.Diagnosis))
			return
		}
		r.print(fmt.Sprintf("> no hint: %v\n", err))
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Path: %s\n\n", strings.Join(req.Path, " → "))
	if len(req.Requirements) == 0 {
		sb.WriteString("Nothing to learn on the way.\n")
	} else {
		fmt.Fprintf(&sb, "Needs: %s\n", strings.Join(req.Requirements, ", "))
	}
	r.print(sb.String())
}

func (r *Runner) print(md string) {
	out := md
	if r.Renderer != nil {
		if rendered, err := r.Renderer(md); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimRight(out, "\n"))
}

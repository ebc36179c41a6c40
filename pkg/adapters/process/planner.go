package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// DefaultGracePeriod is how long a cancelled solver gets to exit after the
// interrupt before it is killed.
const DefaultGracePeriod = 2 * time.Second

// Planner implements ports.Planner by running a solver executable.
type Planner struct {
	cfg     PlannerConfig
	baseDir string
	dumpDir string
	grace   time.Duration
	logger  *slog.Logger
}

// Option configures the planner.
type Option func(*Planner)

// WithBaseDir sets the working directory of the solver process.
func WithBaseDir(dir string) Option {
	return func(p *Planner) { p.baseDir = dir }
}

// WithDumpDir keeps a copy of every compiled domain and problem in dir.
func WithDumpDir(dir string) Option {
	return func(p *Planner) { p.dumpDir = dir }
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) Option {
	return func(p *Planner) { p.grace = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPlanner creates a planner running cfg.
func NewPlanner(cfg PlannerConfig, opts ...Option) *Planner {
	p := &Planner{cfg: cfg, grace: DefaultGracePeriod, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the configured planner name.
func (p *Planner) Name() string { return p.cfg.Name }

// Solve writes the texts to a temp dir, runs the solver and returns the plan
// steps. ctx expiry yields domain.ErrPlannerTimeout; exit codes and output
// patterns configured as unsolvable yield domain.ErrNoPlanFound.
func (p *Planner) Solve(ctx context.Context, domainText, problemText string) ([]string, error) {
	if p.cfg.Command == "" {
		return nil, errors.New("planner command not configured")
	}

	work, err := os.MkdirTemp("", "daqs-plan-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	paths := map[string]string{
		PlaceholderDomain:  filepath.Join(work, "domain.pddl"),
		PlaceholderProblem: filepath.Join(work, "problem.pddl"),
		PlaceholderPlan:    filepath.Join(work, "plan.txt"),
	}
	if err := os.WriteFile(paths[PlaceholderDomain], []byte(domainText), 0o644); err != nil {
		return nil, fmt.Errorf("write domain: %w", err)
	}
	if err := os.WriteFile(paths[PlaceholderProblem], []byte(problemText), 0o644); err != nil {
		return nil, fmt.Errorf("write problem: %w", err)
	}
	p.dump(domainText, problemText)

	cmd := exec.CommandContext(ctx, p.cfg.Command, p.args(paths)...)
	cmd.Dir = p.baseDir
	cmd.Env = cmd.Environ()
	for k, v := range p.cfg.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = p.grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	p.logger.Debug("planner finished", "planner", p.cfg.Name, "duration", time.Since(start), "err", runErr)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrPlannerTimeout, ctxErr)
		}
		return nil, ctxErr
	}

	output := stdout.String() + "\n" + stderr.String()
	if p.unsolvable(runErr, output) {
		return nil, domain.ErrNoPlanFound
	}
	if runErr != nil {
		return nil, fmt.Errorf("execution failed: %w. Stderr: %s", runErr, strings.TrimSpace(stderr.String()))
	}

	if p.cfg.UsesPlanFile() {
		data, err := os.ReadFile(paths[PlaceholderPlan])
		if errors.Is(err, os.ErrNotExist) {
			// Most solvers write no plan file when the problem is unsolvable.
			return nil, domain.ErrNoPlanFound
		}
		if err != nil {
			return nil, fmt.Errorf("read plan: %w", err)
		}
		return ExtractPlan(string(data), false), nil
	}
	return ExtractPlan(stdout.String(), true), nil
}

func (p *Planner) args(paths map[string]string) []string {
	out := make([]string, 0, len(p.cfg.Args)+2)
	mentioned := false
	for _, a := range p.cfg.Args {
		for ph, path := range paths {
			if strings.Contains(a, ph) {
				mentioned = mentioned || ph != PlaceholderPlan
				a = strings.ReplaceAll(a, ph, path)
			}
		}
		out = append(out, a)
	}
	if !mentioned {
		out = append(out, paths[PlaceholderDomain], paths[PlaceholderProblem])
	}
	return out
}

func (p *Planner) unsolvable(runErr error, output string) bool {
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		for _, code := range p.cfg.NoPlanExitCodes {
			if exitErr.ExitCode() == code {
				return true
			}
		}
	}
	lower := strings.ToLower(output)
	for _, pattern := range p.cfg.NoPlanPatterns {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func (p *Planner) dump(domainText, problemText string) {
	if p.dumpDir == "" {
		return
	}
	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	if err := os.MkdirAll(p.dumpDir, 0o755); err != nil {
		p.logger.Warn("cannot create pddl dump dir", "dir", p.dumpDir, "err", err)
		return
	}
	for name, text := range map[string]string{"domain": domainText, "problem": problemText} {
		path := filepath.Join(p.dumpDir, fmt.Sprintf("%s_%s.pddl", stamp, name))
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			p.logger.Warn("cannot dump pddl", "path", path, "err", err)
		}
	}
}

var stepPrefix = regexp.MustCompile(`^(?i:step\s*)?\d+(\.\d+)?\s*:\s*`)

// ExtractPlan turns solver output into plan lines. Step numbers ("0:",
// "step 1:") and trailing costs ("[1]") are removed and action names
// lowercased. Arguments keep the solver's case; the engine maps them back
// to world ids with compiler.Compilation.Canonical.
// With actionsOnly, only lines that look like "(action ...)" are kept, which
// filters the log noise solvers print to stdout.
func ExtractPlan(output string, actionsOnly bool) []string {
	var steps []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		line = stepPrefix.ReplaceAllString(line, "")
		if i := strings.LastIndex(line, ")"); i >= 0 && strings.HasPrefix(line, "(") {
			line = line[:i+1]
		}
		if actionsOnly && !strings.HasPrefix(line, "(") {
			continue
		}
		steps = append(steps, lowerVerb(line))
	}
	return steps
}

func lowerVerb(line string) string {
	body := strings.TrimPrefix(line, "(")
	end := strings.IndexAny(body, " \t)")
	if end < 0 {
		end = len(body)
	}
	return line[:len(line)-len(body)] + strings.ToLower(body[:end]) + body[end:]
}

package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/process"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("planner scripts need a POSIX shell")
	}
}

func sh(script string, extra ...string) process.PlannerConfig {
	return process.PlannerConfig{Name: "sh", Command: "sh", Args: append([]string{"-c", script, "planner"}, extra...)}
}

func TestPlanner_ReadsStdout(t *testing.T) {
	requireShell(t)
	cfg := sh(`test -s "$1" && test -s "$2" || exit 9
echo "reading domain"
echo "0: (SHIFT-CONTEXT player A B) [1]"
echo "1: (learn-concept player B K)"
echo "; cost = 2 (unit cost)"`, "{domain}", "{problem}")

	steps, err := process.NewPlanner(cfg).Solve(context.Background(), "(define (domain d))", "(define (problem p))")
	require.NoError(t, err)
	assert.Equal(t, []string{"(shift-context player A B)", "(learn-concept player B K)"}, steps)

	moves, err := domain.ParsePlan(steps)
	require.NoError(t, err)
	assert.Len(t, moves, 2)
}

func TestPlanner_ReadsPlanFile(t *testing.T) {
	requireShell(t)
	cfg := sh(`printf '(shift-context player a b)\n; cost = 1\n' > "$3"`, "{domain}", "{problem}", "{plan}")

	steps, err := process.NewPlanner(cfg).Solve(context.Background(), "d", "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"(shift-context player a b)"}, steps)
}

func TestPlanner_AppendsPathsWithoutPlaceholders(t *testing.T) {
	requireShell(t)
	cfg := sh(`case "$1" in *domain.pddl) ;; *) exit 3 ;; esac
case "$2" in *problem.pddl) ;; *) exit 4 ;; esac
echo "(shift-context p x y)"`)

	steps, err := process.NewPlanner(cfg).Solve(context.Background(), "d", "p")
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestPlanner_Unsolvable(t *testing.T) {
	requireShell(t)

	byCode := sh(`exit 12`)
	byCode.NoPlanExitCodes = []int{12}
	_, err := process.NewPlanner(byCode).Solve(context.Background(), "d", "p")
	assert.ErrorIs(t, err, domain.ErrNoPlanFound)

	byPattern := sh(`echo "Search stopped without finding a solution."`)
	byPattern.NoPlanPatterns = []string{"without finding a solution"}
	_, err = process.NewPlanner(byPattern).Solve(context.Background(), "d", "p")
	assert.ErrorIs(t, err, domain.ErrNoPlanFound)

	noPlanFile := sh(`exit 0`, "{domain}", "{problem}", "{plan}")
	_, err = process.NewPlanner(noPlanFile).Solve(context.Background(), "d", "p")
	assert.ErrorIs(t, err, domain.ErrNoPlanFound)
}

func TestPlanner_Crash(t *testing.T) {
	requireShell(t)
	_, err := process.NewPlanner(sh(`echo "Something went terribly wrong" >&2; exit 123`)).Solve(context.Background(), "d", "p")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoPlanFound)
	assert.Contains(t, err.Error(), "exit status 123")
	assert.Contains(t, err.Error(), "Something went terribly wrong")
}

func TestPlanner_Timeout(t *testing.T) {
	requireShell(t)
	p := process.NewPlanner(sh(`sleep 10`), process.WithGracePeriod(200*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Solve(ctx, "d", "p")
	assert.ErrorIs(t, err, domain.ErrPlannerTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestPlanner_DumpDir(t *testing.T) {
	requireShell(t)
	dump := t.TempDir()
	p := process.NewPlanner(sh(`echo "(shift-context p a b)"`), process.WithDumpDir(dump))

	_, err := p.Solve(context.Background(), "DOMAIN", "PROBLEM")
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(dump, "*.pddl"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, []string{"DOMAIN", "PROBLEM"}, string(data))
}

func TestExtractPlan(t *testing.T) {
	out := process.ExtractPlan("step 0: (DO_Brandish lyra dagger)\nfound plan\n3.5: (shift-context p a b) [2]\n", true)
	assert.Equal(t, []string{"(do_brandish lyra dagger)", "(shift-context p a b)"}, out)

	all := process.ExtractPlan("shift-context p a b\n; done\n", false)
	assert.Equal(t, []string{"shift-context p a b"}, all)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := process.LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Planners)

	yamlPath := filepath.Join(dir, "planners.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
default: fd
planners:
  - name: fd
    command: fast-downward
    args: ["--plan-file", "{plan}", "{domain}", "{problem}", "--search", "astar(lmcut())"]
    no_plan_exit_codes: [12]
  - name: broken
`), 0o644))
	cfg, err = process.LoadConfig(yamlPath)
	require.NoError(t, err)
	require.Len(t, cfg.Planners, 1)

	fd, err := cfg.Select("")
	require.NoError(t, err)
	assert.True(t, fd.UsesPlanFile())
	assert.Equal(t, []int{12}, fd.NoPlanExitCodes)

	_, err = cfg.Select("nope")
	assert.Error(t, err)

	jsonPath := filepath.Join(dir, "planners.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"planners":[{"name":"ff","command":"ff"}]}`), 0o644))
	cfg, err = process.LoadConfig(jsonPath)
	require.NoError(t, err)
	only, err := cfg.Select("")
	require.NoError(t, err)
	assert.Equal(t, "ff", only.Name)
	assert.False(t, only.UsesPlanFile())
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0"
	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/tui"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <goal-context>",
	Short: "Ask the planner how to reach a context",
	Long: `Compiles the world and the dialogue state into PDDL and runs the configured
planner. Without a solution the failure is explained locally.

With --expr the goal is a raw PDDL goal expression instead of "(visited <ctx>)".
With --pddl the compiled domain and problem are printed and nothing is solved.
With --world the goal is a location and the physical map is planned instead,
starting at --from.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		expr, _ := cmd.Flags().GetString("expr")
		if len(args) == 0 && expr == "" {
			return errors.New("a goal context or --expr is required")
		}
		goal := daqs.Goal{Expr: expr}
		if len(args) == 1 {
			goal.Context = args[0]
		}

		app, err := openApp(ctx, cmd, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		if world, _ := cmd.Flags().GetBool("world"); world {
			return planWorld(cmd, app.Engine, goal)
		}

		state, err := sessionState(ctx, cmd, app)
		if err != nil {
			return err
		}

		if dump, _ := cmd.Flags().GetBool("pddl"); dump {
			comp, err := app.Engine.Compile(state, goal)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", comp.Domain, comp.ProblemText())
			return nil
		}

		res, err := app.Engine.Plan(ctx, state, goal)
		return printPlan(cmd, res, err)
	},
}

func planWorld(cmd *cobra.Command, eng *daqs.Engine, goal daqs.Goal) error {
	from, _ := cmd.Flags().GetString("from")
	if from == "" {
		return errors.New("--world needs --from <location>")
	}
	store, err := eng.Store()
	if err != nil {
		return err
	}
	player := domain.PlayerState{
		PlayerID:            eng.Agent(),
		CurrentLocation:     from,
		DiscoveredLocations: domain.NewSet(store.LocationIDs()...),
	}
	target := goal.Context
	if goal.Expr != "" {
		target = goal.Expr
	}
	res, err := eng.PlanNavigation(cmd.Context(), player, target)
	return printPlan(cmd, res, err)
}

// printPlan prints a result whenever there is one: unsolvable goals and
// timeouts carry a diagnosis and are answers, not command failures.
func printPlan(cmd *cobra.Command, res *daqs.PlanResult, err error) error {
	if res == nil || (err != nil && res.Diagnosis == nil) {
		return err
	}
	view := map[string]any{
		"goal":        res.Goal,
		"steps":       res.Tokens(),
		"diagnosis":   res.Diagnosis,
		"duration_ms": res.Duration.Milliseconds(),
	}
	return output(cmd, view, tui.PlanMarkdown(res.Goal, res.Tokens(), res.Diagnosis))
}

var oracleCmd = &cobra.Command{
	Use:   "oracle <start> <goal>",
	Short: "Show what it takes to get from one context to another",
	Long: `Reports the concepts that must be acquired on the way from start to goal,
and the path. Open routes are found without the planner; gated ones need one.
With --map world_map the locations are searched instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, cmd, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		mapKind, _ := cmd.Flags().GetString("map")
		var state *domain.DialogueState
		if id, _ := cmd.Flags().GetString("session"); id != "" || app.Config.Persona != "" {
			if state, err = sessionState(ctx, cmd, app); err != nil {
				return err
			}
		}

		req, err := app.Engine.PathRequirements(ctx, daqs.MapKind(mapKind), args[0], args[1], state)
		if err != nil {
			if req != nil && req.Diagnosis != nil {
				return output(cmd, req, tui.PlanMarkdown(args[1], nil, req.Diagnosis))
			}
			return err
		}

		var md strings.Builder
		fmt.Fprintf(&md, "## %s → %s\n\n", args[0], args[1])
		fmt.Fprintf(&md, "- **path**: %s\n", strings.Join(req.Path, " → "))
		if len(req.Requirements) == 0 {
			md.WriteString("- **requirements**: none\n")
		} else {
			fmt.Fprintf(&md, "- **requirements**: %s\n", strings.Join(req.Requirements, ", "))
		}
		return output(cmd, req, md.String())
	},
}

func init() {
	rootCmd.AddCommand(planCmd, oracleCmd)

	planCmd.Flags().String("expr", "", "Raw PDDL goal expression")
	planCmd.Flags().Bool("pddl", false, "Print the compiled domain and problem instead of planning")
	planCmd.Flags().Bool("world", false, "Plan on the physical map (goal is a location)")
	planCmd.Flags().String("from", "", "Start location for --world")
	addSessionFlag(planCmd)
	addJSONFlag(planCmd)

	oracleCmd.Flags().String("map", string(daqs.MapContexts), "Map to search: contexts or world_map")
	addSessionFlag(oracleCmd)
	addJSONFlag(oracleCmd)
}

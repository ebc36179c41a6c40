package main

import (
	"fmt"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0"
	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [dir]",
	Short: "Export the world as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram of the dialogue contexts (graph TD), or of the
locations with --map world_map. With --session, visited, current and unlocked
contexts are highlighted. --format json dumps the loaded world instead.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"dirArg": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, cmd, args)
		if err != nil {
			return err
		}
		defer app.Close()

		store, err := app.Engine.Store()
		if err != nil {
			return err
		}
		store = store.ForPersona(app.Config.Persona)

		var overlay *graph.GraphOverlay
		if id, _ := cmd.Flags().GetString("session"); id != "" {
			state, err := app.Sessions.Load(ctx, id)
			if err != nil {
				return err
			}
			store = store.ForPersona(state.ActivePersona)
			overlay = &graph.GraphOverlay{
				VisitedNodes: state.Visited.Sorted(),
				CurrentNode:  state.CurrentContext,
				Unlocked:     state.UnlockedContexts.Sorted(),
			}
		}

		format, _ := cmd.Flags().GetString("format")
		mapKind, _ := cmd.Flags().GetString("map")
		switch format {
		case "json":
			return writeJSON(cmd.OutOrStdout(), store.World())
		case "mermaid":
			if daqs.MapKind(mapKind) == daqs.MapWorld {
				fmt.Fprint(cmd.OutOrStdout(), graph.GenerateWorldMermaid(store, nil))
			} else {
				fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(store, overlay))
			}
			return nil
		}
		return fmt.Errorf("unknown format %q (want mermaid or json)", format)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the world for consistency",
	Long: `Loads the world and reports dangling references, sealed or unreachable
contexts and other inconsistencies. Exits non-zero when the world cannot be
served.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"dirArg": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd, args)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		summary, err := app.Engine.Inspect()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d contexts, %d triggers, %d personas, %d locations\n",
			summary.Contexts, summary.Triggers, summary.Personas, summary.Locations)

		warnings := app.Engine.Report().Warnings()
		for _, w := range warnings {
			fmt.Fprintln(out, w.String())
		}
		if len(warnings) == 0 {
			fmt.Fprintln(out, "World is valid! ✅")
		} else {
			fmt.Fprintf(out, "World is usable, with %d %s.\n", len(warnings), plural(len(warnings), "warning"))
		}
		return nil
	},
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of daqs",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "daqs version %s\n", strings.TrimSpace(daqs.Version))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd, validateCmd, versionCmd)

	graphCmd.Flags().String("format", "mermaid", "Output format: mermaid or json")
	graphCmd.Flags().String("map", string(daqs.MapContexts), "Map to draw: contexts or world_map")
	addSessionFlag(graphCmd)
}

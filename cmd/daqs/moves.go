package main

import (
	"context"
	"errors"

	"github.com/VasyaLutiy/daqs-v5.0/internal/config"
	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/tui"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/spf13/cobra"
)

var movesCmd = &cobra.Command{
	Use:   "moves",
	Short: "List the legal moves of a dialogue state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, cmd, args)
		if err != nil {
			return err
		}
		defer app.Close()

		state, err := sessionState(ctx, cmd, app)
		if err != nil {
			return err
		}
		moves, err := app.Engine.ValidMoves(state)
		if err != nil {
			return err
		}
		tokens := make([]string, len(moves))
		for i, mv := range moves {
			tokens[i] = mv.String()
		}

		store, err := app.Engine.Store()
		if err != nil {
			return err
		}
		c, _ := store.ForPersona(state.ActivePersona).Context(state.CurrentContext)
		return output(cmd, map[string]any{"state": state, "moves": tokens}, tui.StateMarkdown(c, state, moves))
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <move>...",
	Short: "Apply moves to a stored session",
	Long: `Applies one or more move tokens, in order, to the session named by --session
and saves the result. Quote tokens containing spaces:

  daqs apply --session hero "activate-trigger player A T K"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx, cmd, nil)
		if err != nil {
			return err
		}
		defer app.Close()
		if app.Config.Store == config.StoreMemory {
			return errors.New("apply needs a persistent session store (--store file, sqlite or redis)")
		}

		id, _ := cmd.Flags().GetString("session")
		persona := app.Config.Persona
		if _, err := app.Sessions.LoadOrStart(ctx, id, persona); err != nil {
			return err
		}

		var md string
		state, err := app.Sessions.Update(ctx, id, func(ctx context.Context, s *domain.DialogueState) error {
			for _, token := range args {
				diff, err := app.Engine.ApplyToken(ctx, s, token)
				if err != nil {
					return err
				}
				md += tui.DiffMarkdown(diff) + "\n"
			}
			return nil
		})
		if err != nil {
			return err
		}
		return output(cmd, state, md)
	},
}

func init() {
	rootCmd.AddCommand(movesCmd, applyCmd)
	addSessionFlag(movesCmd)
	addJSONFlag(movesCmd)

	addSessionFlag(applyCmd)
	addJSONFlag(applyCmd)
	_ = applyCmd.MarkFlagRequired("session")
}

package main

import (
	"errors"

	"github.com/VasyaLutiy/daqs-v5.0/internal/cli"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [dir]",
	Short: "Play the dialogue interactively",
	Long: `Starts a line-oriented session: pick a move by number or type its token,
ask for a plan with "plan <context>" or a hint with "hint <context>".
With --session the state is resumed from and saved to the session store.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"dirArg": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		headless, _ := flags.GetBool("headless")
		watch, _ := flags.GetBool("watch")
		if watch && headless {
			return errors.New("--watch and --headless cannot be used together")
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		app, err := openApp(sigCtx, cmd, args)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := cli.PlayOptions{
			Persona:  app.Config.Persona,
			Headless: headless,
			Watch:    watch,
			Input:    cmd.InOrStdin(),
			Output:   cmd.OutOrStdout(),
		}
		opts.SessionID, _ = flags.GetString("session")
		opts.Plain, _ = flags.GetBool("plain")
		opts.Fresh, _ = flags.GetBool("fresh")
		return cli.RunPlay(sigCtx, app, opts)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Bool("headless", false, "No banner, prompts or styling (for scripts)")
	playCmd.Flags().Bool("plain", false, "Print markdown without terminal styling")
	playCmd.Flags().BoolP("watch", "w", false, "Reload the world when its files change")
	playCmd.Flags().Bool("fresh", false, "Discard the stored session before starting")
	addSessionFlag(playCmd)

	// play is the default command.
	rootCmd.RunE = playCmd.RunE
	rootCmd.Args = playCmd.Args
	rootCmd.Annotations = playCmd.Annotations
	rootCmd.Flags().AddFlagSet(playCmd.Flags())
}

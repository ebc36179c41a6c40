package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/VasyaLutiy/daqs-v5.0/internal/cli"
	"github.com/VasyaLutiy/daqs-v5.0/internal/presentation/tui"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/spf13/cobra"
)

// sessionState resolves the state a one-shot command works on: the stored
// session when --session is set, else a fresh state for the persona.
func sessionState(ctx context.Context, cmd *cobra.Command, app *cli.App) (*domain.DialogueState, error) {
	id, _ := cmd.Flags().GetString("session")
	if id == "" {
		return app.Engine.NewState(app.Config.Persona)
	}
	return app.Sessions.Load(ctx, id)
}

func addSessionFlag(cmd *cobra.Command) {
	cmd.Flags().String("session", "", "Session id to read (and update) the dialogue state from")
}

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print JSON instead of markdown")
}

// output prints v as indented JSON with --json, else md rendered for the terminal.
func output(cmd *cobra.Command, v any, md string) error {
	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(w, v)
	}
	plain := true
	if f, ok := w.(*os.File); ok {
		plain = !tui.IsTerminal(f)
	}
	rendered, err := tui.NewRenderer(plain)(md)
	if err != nil {
		rendered = md
	}
	_, err = fmt.Fprint(w, rendered)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

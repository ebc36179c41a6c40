package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/VasyaLutiy/daqs-v5.0/internal/cli"
	"github.com/VasyaLutiy/daqs-v5.0/internal/config"
	"github.com/VasyaLutiy/daqs-v5.0/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "daqs",
	Short: "daqs is a symbolic dialogue and quest planner",
	Long: `daqs loads a dialogue world (contexts, triggers, concepts, personas and
locations), enumerates legal moves, applies them and asks an external PDDL
planner how to reach a goal.

Settings come from DAQS_* environment variables; flags override them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("dir", ".", "Directory containing the world")
	pf.String("format", config.FormatAtlas, "World format: atlas or loam")
	pf.Bool("lenient", false, "Skip malformed world files instead of failing")
	pf.String("store", config.StoreMemory, "Session store: memory, file, sqlite or redis")
	pf.String("planner", "", "Planner name from the planner config (default: its default)")
	pf.String("planner-config", "planners.yaml", "Planner configuration file")
	pf.String("persona", "", "Persona to play or plan as")
	pf.String("log-level", "warn", "Log level: debug, info, warn or error")
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	str := func(name string, target *string) {
		if flags.Changed(name) {
			*target, _ = flags.GetString(name)
		}
	}
	str("dir", &cfg.Dir)
	str("format", &cfg.Format)
	str("store", &cfg.Store)
	str("planner", &cfg.Planner)
	str("planner-config", &cfg.PlannerConfig)
	str("persona", &cfg.Persona)
	str("log-level", &cfg.LogLevel)
	if flags.Changed("lenient") {
		lenient, _ := flags.GetBool("lenient")
		cfg.Strict = !lenient
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	// A positional directory is accepted by commands that take no other args.
	if !flags.Changed("dir") && len(args) == 1 && cmd.Annotations["dirArg"] == "true" {
		cfg.Dir = args[0]
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config, json bool) *slog.Logger {
	if json {
		return logging.NewJSON(cfg.Level())
	}
	return logging.New(cfg.Level())
}

// openApp loads the configuration and the world.
func openApp(ctx context.Context, cmd *cobra.Command, args []string) (*cli.App, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(ctx, cfg, newLogger(cfg, false))
}

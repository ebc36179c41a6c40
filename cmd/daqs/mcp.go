package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0"
	"github.com/VasyaLutiy/daqs-v5.0/internal/cli"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [dir]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP server, so AI agents can list moves, apply them
and ask for plans as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"dirArg": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		// Stdout belongs to JSON-RPC; logs go to stderr.
		logger := newLogger(cfg, false)

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		app, err := cli.NewApp(sigCtx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, strings.TrimSpace(daqs.Version),
			mcp.WithSessions(app.Sessions),
			mcp.WithLogger(logger),
		)

		transport, _ := cmd.Flags().GetString("transport")
		switch transport {
		case "stdio":
			logger.Info("starting daqs MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			baseURL, _ := cmd.Flags().GetString("base-url")
			if baseURL == "" {
				baseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
			}
			err := srv.ServeSSE(sigCtx, cfg.Addr(), baseURL)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		}
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().IntP("port", "p", 8080, "Port to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL announced to SSE clients")
}

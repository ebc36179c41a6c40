package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/VasyaLutiy/daqs-v5.0/internal/cli"
	httpAdapter "github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Start the HTTP server",
	Long: `Serves the engine as a JSON API over HTTP, with session routes backed by the
configured store, Server-Sent Events and Prometheus metrics on /metrics.
With --watch the world is reloaded when its files change.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{"dirArg": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		logger := newLogger(cfg, true)

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		app, err := cli.NewApp(sigCtx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		opts := []httpAdapter.Option{
			httpAdapter.WithSessions(app.Sessions),
			httpAdapter.WithMetrics(app.Metrics.Handler()),
			httpAdapter.WithCORSOrigins(cfg.CORSOrigins...),
			httpAdapter.WithLogger(logger),
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			opts = append(opts, httpAdapter.WithWatcher(app.Engine))
			go func() {
				if err := app.Engine.AutoReload(sigCtx); err != nil {
					logger.Warn("hot reload unavailable", "err", err)
				}
			}()
		}

		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           httpAdapter.NewHandler(app.Engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("daqs server listening", "address", srv.Addr, "dir", cfg.Dir, "store", cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sigCtx.Done():
			logger.Info("shutting down", "signal", sigCtx.Signal())
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		logger.Info("daqs server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the world when its files change")
}

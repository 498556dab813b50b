package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/recalc/internal/cli"
	httpAdapter "github.com/aretw0/recalc/pkg/adapters/http"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds graceful shutdown of the listeners.
const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves one-shot evaluations, live sessions, stored results and Prometheus
metrics over HTTP. Live sessions are closed and handed off on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		cmd.SetContext(sc)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		addr := cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		logger, err := cli.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
		if err != nil {
			return err
		}
		streams := httpAdapter.NewStreamManager(logger)
		a, err := setup(cmd, streams.Hooks())
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(sc))

		srv := &http.Server{
			Addr: addr,
			Handler: httpAdapter.NewHandler(a.stack.Engine,
				httpAdapter.WithStreams(streams),
				httpAdapter.WithMetrics(a.stack.Metrics.Handler()),
				httpAdapter.WithLogger(logger),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "address", addr, "workbooks", cfg.Workbooks, "store", cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-sc.Done():
			logger.Info("shutting down", "signal", sc.Signal())
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (RECALC_HTTP_ADDR, default :8080)")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/recalc"
	"github.com/aretw0/recalc/internal/cli"
	"github.com/aretw0/recalc/internal/config"
	"github.com/aretw0/recalc/internal/telemetry"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recalc",
	Short: "recalc evaluates spreadsheet-like workbooks",
	Long: `recalc builds a graph of variables, expressions and tables from a workbook,
recalculates it as inputs change and stores the final state of every session.

Settings come from RECALC_* environment variables; flags override them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("dir", "", "Directory containing the workbooks (RECALC_WORKBOOKS)")
	flags.String("loader", "", "Workbook loader: file or loam (RECALC_LOADER)")
	flags.String("evaluator", "", "Expression language: hcl or js (RECALC_EVALUATOR)")
	flags.String("store", "", "Result store: memory, file, redis, sqlite or bolt (RECALC_STORE)")
	flags.String("store-path", "", "Path of the file, sqlite or bolt store (RECALC_STORE_PATH)")
	flags.String("log-level", "", "Process log level: debug, info, warn, error (RECALC_LOG_LEVEL)")
}

// loadConfig reads the environment and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	overrides := map[string]*string{
		"dir":        &cfg.Workbooks,
		"loader":     &cfg.Loader,
		"evaluator":  &cfg.Evaluator,
		"store":      &cfg.Store,
		"store-path": &cfg.StorePath,
		"log-level":  &cfg.LogLevel,
	}
	for name, field := range overrides {
		if cmd.Flags().Changed(name) {
			*field, _ = cmd.Flags().GetString(name)
		}
	}
	return cfg, cfg.Validate()
}

// app is a configured engine plus the process-level resources around it.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	stack     *cli.Stack
	telemetry telemetry.ShutdownFunc
}

// setup loads the configuration, starts tracing and builds the engine.
func setup(cmd *cobra.Command, hooks ...domain.LifecycleHooks) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	shutdown, err := telemetry.Setup(ctx, "recalc", recalc.Version, cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	stack, err := cli.Build(ctx, cfg, logger, hooks...)
	if err != nil {
		_ = shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, stack: stack, telemetry: shutdown}, nil
}

// Close shuts the engine down, then flushes traces.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.stack.Close(ctx), a.telemetry(ctx))
}

// firstArgOrDir resolves the workbook directory from a positional argument
// when --dir was not given.
func firstArgOrDir(cmd *cobra.Command, args []string) {
	if !cmd.Flags().Changed("dir") && len(args) > 0 {
		_ = cmd.Flags().Set("dir", args[0])
	}
}

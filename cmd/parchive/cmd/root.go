package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/javi11/parchive/internal/config"
	"github.com/javi11/parchive/internal/resource"
	"github.com/javi11/parchive/internal/slogutil"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string

	cfg     *config.Config
	logging *slogutil.Logging
)

var rootCmd = &cobra.Command{
	Use:           "parchive",
	Short:         "Create, verify and repair PAR2 recovery sets",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logging = slogutil.SetupLogRotation(cfg.Log, os.Stderr)
		if logLevel != "" {
			logging.Level.SetLevel(slogutil.ParseLevel(logLevel))
		}
		slog.SetDefault(logging.Logger)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logging != nil {
			return logging.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func newResolver() *resource.Resolver {
	return resource.NewResolver(
		resource.WithRetry(cfg.IO.OpenAttempts, cfg.IO.OpenDelay),
		resource.WithLogger(slog.Default().With("component", "resource-resolver")),
	)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

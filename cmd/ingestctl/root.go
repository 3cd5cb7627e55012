package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/config"
	"github.com/yourorg/motor-stats/internal/logging"
)

var (
	logLevel string

	// Populated in PersistentPreRunE.
	rootLogger *zap.Logger
	appConfig  config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ingestctl",
	Short: "Start, schedule and run motor-stats dataset pipelines.",
	Long: `ingestctl drives the car-market ingestion pipelines.

'run' starts a dataset workflow on the Temporal cluster, 'schedule' registers
the hourly schedules, and 'ingest' runs one ingestion in-process without a
worker, which is useful for backfills and debugging parsers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		appConfig = cfg
		rootLogger = logging.New(cfg.LogLevel)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = rootLogger.Sync()
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.AddCommand(runCmd, scheduleCmd, ingestCmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingestctl: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func dialTemporal() (client.Client, error) {
	return client.Dial(client.Options{
		HostPort:  appConfig.TemporalHost,
		Namespace: appConfig.Namespace,
		Logger:    logging.NewTemporal(rootLogger),
	})
}

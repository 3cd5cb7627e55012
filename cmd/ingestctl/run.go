package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/app"
	"github.com/yourorg/motor-stats/internal/types"
)

var (
	runMonth       string
	runWait        bool
	runKeepScratch bool
)

var runCmd = &cobra.Command{
	Use:   "run <dataset>",
	Short: "Start a dataset pipeline workflow",
	Long: `Starts the pipeline workflow of one dataset (registrations, coe or
deregistrations) on the configured task queue. With --wait the command blocks
until the run finishes and prints its result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		run, err := app.StartPipeline(ctx, c, appConfig.TaskQueue, types.PipelineParams{
			Dataset:     args[0],
			Month:       runMonth,
			KeepScratch: runKeepScratch,
		})
		if err != nil {
			return err
		}
		rootLogger.Info("pipeline started", zap.String("workflow_id", run.GetID()), zap.String("run_id", run.GetRunID()))
		if !runWait {
			return nil
		}

		var res types.PipelineResult
		if err := run.Get(ctx, &res); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	runCmd.Flags().StringVar(&runMonth, "month", "", "Period to write about (YYYY-MM); defaults to the latest stored period")
	runCmd.Flags().BoolVar(&runWait, "wait", false, "Block until the run completes and print its result")
	runCmd.Flags().BoolVar(&runKeepScratch, "keep-scratch", false, "Leave the extracted files in the scratch directory")
}

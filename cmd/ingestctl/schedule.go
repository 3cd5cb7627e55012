package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/app"
	"github.com/yourorg/motor-stats/internal/datasets"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule [dataset...]",
	Short: "Register the cron schedules of the dataset pipelines",
	Long: `Creates one Temporal schedule per dataset using its configured cron
expression (<DATASET>_SCHEDULE, hourly by default). With no arguments every
dataset is scheduled. Schedules that already exist are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		names := args
		if len(names) == 0 {
			names = datasets.Names()
		}
		c, err := dialTemporal()
		if err != nil {
			return err
		}
		defer c.Close()

		for _, ds := range names {
			opts, err := app.ScheduleOptions(ds, appConfig.Sources[ds].Schedule, appConfig.TaskQueue)
			if err != nil {
				return err
			}
			_, err = c.ScheduleClient().Create(ctx, opts)
			if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
				rootLogger.Info("schedule exists", zap.String("dataset", ds), zap.String("schedule_id", opts.ID))
				continue
			}
			if err != nil {
				return err
			}
			rootLogger.Info("schedule created", zap.String("dataset", ds), zap.String("schedule_id", opts.ID))
		}
		return nil
	},
}

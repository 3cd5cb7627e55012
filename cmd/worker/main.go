package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/app"
	"github.com/yourorg/motor-stats/internal/config"
	"github.com/yourorg/motor-stats/internal/logging"
	msmetrics "github.com/yourorg/motor-stats/internal/metrics"
	"github.com/yourorg/motor-stats/internal/steps"
	"github.com/yourorg/motor-stats/internal/workflow"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal("config:", err)
	}

	// Structured logger (zap)
	zl := logging.New(cfg.LogLevel)
	defer zl.Sync()

	// Metrics server
	msmetrics.Init()
	go func() {
		if err := msmetrics.Serve(cfg.MetricsAddr); err != nil {
			zl.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	a, err := app.Open(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("open app", zap.Error(err))
	}
	defer a.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.Namespace,
		Logger:    logging.NewTemporal(zl),
	})
	if err != nil {
		zl.Fatal("temporal client", zap.Error(err))
	}
	defer c.Close()

	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	// Activities are registered under the names the workflows call them by.
	steps.Register(w, a.Activities().Registrations())
	w.RegisterWorkflow(workflow.RegistrationsWorkflow)
	w.RegisterWorkflow(workflow.COEWorkflow)
	w.RegisterWorkflow(workflow.DeregistrationsWorkflow)

	zl.Info("worker started",
		zap.String("namespace", cfg.Namespace),
		zap.String("taskQueue", cfg.TaskQueue),
		zap.String("scratch", cfg.ScratchDir),
		zap.String("metrics", cfg.MetricsAddr))
	if err := w.Run(worker.InterruptCh()); err != nil {
		zl.Fatal("worker failed", zap.Error(err))
	}
}

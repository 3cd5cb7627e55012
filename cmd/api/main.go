package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/api"
	"github.com/yourorg/motor-stats/internal/config"
	"github.com/yourorg/motor-stats/internal/db"
	"github.com/yourorg/motor-stats/internal/logging"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}
	zl := logging.New(cfg.LogLevel)
	defer zl.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.Connect(ctx, cfg.DB)
	cancel()
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.Namespace,
		Logger:    logging.NewTemporal(zl),
	})
	if err != nil {
		zl.Warn("Failed to connect to Temporal; pipeline routes disabled", zap.Error(err))
	}
	var wh *api.WorkflowHandler
	if temporalClient != nil {
		defer temporalClient.Close()
		wh = api.NewWorkflowHandler(temporalClient, cfg.TaskQueue)
	}

	api.Routes(r, api.NewHandler(db.NewQueries(pool), pool), wh)

	port := getEnv("PORT", "8080")
	zl.Info("Server starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		zl.Fatal("Failed to start server", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

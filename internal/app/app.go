package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/activities"
	"github.com/yourorg/motor-stats/internal/cache"
	"github.com/yourorg/motor-stats/internal/config"
	"github.com/yourorg/motor-stats/internal/datasets"
	"github.com/yourorg/motor-stats/internal/db"
	"github.com/yourorg/motor-stats/internal/fetch"
	"github.com/yourorg/motor-stats/internal/generate"
	"github.com/yourorg/motor-stats/internal/ingest"
	"github.com/yourorg/motor-stats/internal/publish"
	"github.com/yourorg/motor-stats/internal/storage"
)

// App holds the long-lived resources shared by the worker and ingestctl.
type App struct {
	Cfg      config.Config
	Logger   *zap.Logger
	Pool     *db.Pool
	Database *db.Database
	Cache    *cache.Store
	Updater  *ingest.Updater
}

// Open connects to PostgreSQL, migrates the schema and opens the local cache.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.ScratchDir, 0o777); err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	database, err := db.NewDatabase(cfg.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	store, err := cache.Open(cfg.BadgerPath)
	if err != nil {
		pool.Close()
		_ = database.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	objects := storage.NewS3()
	u := ingest.NewUpdater(fetch.New(nil, objects), db.NewPersister(pool, logger), store, logger)
	u.BatchSize = cfg.BatchSize
	u.Mirror = objects
	u.ArchiveURI = cfg.ArchiveURI

	return &App{Cfg: cfg, Logger: logger, Pool: pool, Database: database, Cache: store, Updater: u}, nil
}

func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.Logger.Warn("close cache", zap.Error(err))
	}
	if err := a.Database.Close(); err != nil {
		a.Logger.Warn("close database", zap.Error(err))
	}
	a.Pool.Close()
}

// Dataset resolves a dataset definition and its configured source.
func (a *App) Dataset(name string) (ingest.Dataset, error) {
	def, err := datasets.Lookup(name)
	if err != nil {
		return ingest.Dataset{}, err
	}
	src, err := a.Cfg.Source(name)
	if err != nil {
		return ingest.Dataset{}, err
	}
	return ingest.Dataset{Definition: def, Source: src}, nil
}

// Activities wires the workflow steps to this app's resources.
func (a *App) Activities() *activities.Activities {
	cfg := a.Cfg
	deps := activities.Deps{
		Sources:  cfg.Sources,
		Runner:   a.Updater,
		Queries:  db.NewQueries(a.Pool),
		Posts:    db.NewPostRepo(a.Database),
		Inserter: db.NewPersister(a.Pool, a.Logger),
		Invalidator: cache.Invalidators{
			a.Cache,
			cache.NewRevalidator(cfg.RevalidateURL, cfg.RevalidateSecret, nil),
		},
	}
	if cfg.GeneratorURL != "" {
		deps.Generator = generate.New(cfg.GeneratorURL, cfg.GeneratorKey, nil)
	}
	if len(cfg.Channels) > 0 {
		deps.Publisher = publish.NewWebhooks(cfg.Channels, a.Cache, nil)
	}
	return activities.New(activities.Config{ScratchDir: cfg.ScratchDir, SiteURL: cfg.SiteURL}, deps)
}

package activities

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/motor-stats/internal/cache"
	"github.com/yourorg/motor-stats/internal/config"
	"github.com/yourorg/motor-stats/internal/generate"
	"github.com/yourorg/motor-stats/internal/ingest"
	"github.com/yourorg/motor-stats/internal/models"
	"github.com/yourorg/motor-stats/internal/publish"
	"github.com/yourorg/motor-stats/internal/steps"
	"github.com/yourorg/motor-stats/internal/types"
)

type Config struct {
	ScratchDir string
	SiteURL    string
	// TopMakes is the number of makes per fuel type in registration aggregates.
	TopMakes int
}

// Runner runs one ingestion. Satisfied by *ingest.Updater.
type Runner interface {
	Run(ctx context.Context, ds ingest.Dataset, scratch string) (types.UpdaterResult, error)
}

// Queries resolves periods and aggregates. Satisfied by *db.Queries.
type Queries interface {
	LatestMonth(ctx context.Context, table string) (string, error)
	LatestBiddingPeriod(ctx context.Context) (types.PeriodMarker, error)
	BiddingRounds(ctx context.Context, month string) (int, error)
	RegistrationAggregate(ctx context.Context, month string, topN int) (types.Aggregate, error)
	COEResults(ctx context.Context, month string) ([]types.COEResult, error)
}

// Posts looks up derived content. Satisfied by *db.PostRepo.
type Posts interface {
	FindByPeriod(ctx context.Context, dataType, month string) (models.Post, error)
}

type Generator interface {
	Generate(ctx context.Context, req generate.Request) (generate.Result, error)
}

type Publisher interface {
	Publish(ctx context.Context, m publish.Message) (types.PublishResult, error)
}

// Deps are the collaborators of the activities. Publisher and Invalidator
// may be nil.
type Deps struct {
	Sources     map[string]config.Source
	Runner      Runner
	Queries     Queries
	Posts       Posts
	Inserter    ingest.Inserter
	Generator   Generator
	Publisher   Publisher
	Invalidator cache.Invalidator
}

type Activities struct {
	cfg Config
	Deps

	newID func() string
	now   func() time.Time
}

func New(cfg Config, d Deps) *Activities {
	if cfg.TopMakes <= 0 {
		cfg.TopMakes = 5
	}
	return &Activities{
		cfg:   cfg,
		Deps:  d,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Registrations binds every step to its handler.
func (a *Activities) Registrations() []steps.Registration {
	return []steps.Registration{
		{Descriptor: steps.ProcessData, Handler: a.ProcessData},
		{Descriptor: steps.ResolveLatestPeriod, Handler: a.ResolveLatestPeriod},
		{Descriptor: steps.InvalidateCaches, Handler: a.InvalidateCaches},
		{Descriptor: steps.CountBiddingRounds, Handler: a.CountBiddingRounds},
		{Descriptor: steps.FindPost, Handler: a.FindPost},
		{Descriptor: steps.FetchAggregate, Handler: a.FetchAggregate},
		{Descriptor: steps.GeneratePost, Handler: a.GeneratePost},
		{Descriptor: steps.SavePost, Handler: a.SavePost},
		{Descriptor: steps.PublishPost, Handler: a.PublishPost},
		{Descriptor: steps.CleanupScratch, Handler: a.CleanupScratch},
	}
}

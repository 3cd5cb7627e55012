package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/yourorg/motor-stats/internal/datasets"
	"github.com/yourorg/motor-stats/internal/db"
	"github.com/yourorg/motor-stats/internal/generate"
	"github.com/yourorg/motor-stats/internal/ingest"
	"github.com/yourorg/motor-stats/internal/models"
	"github.com/yourorg/motor-stats/internal/normalize"
	"github.com/yourorg/motor-stats/internal/publish"
	"github.com/yourorg/motor-stats/internal/steps"
	"github.com/yourorg/motor-stats/internal/types"
)

// configError is a deployment mistake no retry can fix.
type configError struct{ msg string }

func (e configError) Error() string { return e.msg }

func (configError) Permanent() bool { return true }

var errNoGenerator error = configError{"no content generator configured (GENERATOR_URL)"}

// ProcessData fetches, gates, parses and persists one dataset.
func (a *Activities) ProcessData(ctx context.Context, p types.PipelineParams) (types.UpdaterResult, error) {
	return steps.Guard(ctx, steps.ProcessData, p.Dataset, func(ctx context.Context) (types.UpdaterResult, error) {
		def, err := datasets.Lookup(p.Dataset)
		if err != nil {
			return types.UpdaterResult{}, err
		}
		src, ok := a.Sources[p.Dataset]
		if !ok {
			return types.UpdaterResult{}, fmt.Errorf("no source configured for %s", p.Dataset)
		}
		sub := p.ScratchSubdir
		if sub == "" {
			sub = p.Dataset
		}
		scratch, err := scratchPath(a.cfg.ScratchDir, sub)
		if err != nil {
			return types.UpdaterResult{}, err
		}
		ctx = ingest.WithProgress(ctx, func(stage string) { activity.RecordHeartbeat(ctx, stage) })
		res, err := a.Runner.Run(ctx, ingest.Dataset{Definition: def, Source: src}, scratch)
		if err != nil {
			return types.UpdaterResult{}, err
		}
		activity.GetLogger(ctx).Info("ingestion finished", "table", res.Table, "records", res.RecordsProcessed, "message", res.Message)
		return res, nil
	})
}

// ResolveLatestPeriod returns the most recent period in storage. A month in
// the params replaces the stored one.
func (a *Activities) ResolveLatestPeriod(ctx context.Context, p types.PipelineParams) (types.PeriodMarker, error) {
	return steps.Guard(ctx, steps.ResolveLatestPeriod, p.Dataset, func(ctx context.Context) (types.PeriodMarker, error) {
		if p.Month != "" {
			return types.PeriodMarker{Month: p.Month}, nil
		}
		switch p.Dataset {
		case types.DatasetCOE:
			return a.Queries.LatestBiddingPeriod(ctx)
		case types.DatasetRegistrations:
			m, err := a.Queries.LatestMonth(ctx, db.Cars.Name)
			return types.PeriodMarker{Month: m}, err
		case types.DatasetDeregistrations:
			m, err := a.Queries.LatestMonth(ctx, db.Deregistrations.Name)
			return types.PeriodMarker{Month: m}, err
		}
		return types.PeriodMarker{}, fmt.Errorf("unknown dataset %q", p.Dataset)
	})
}

// InvalidateCaches drops cached pages for the given tags.
func (a *Activities) InvalidateCaches(ctx context.Context, p types.InvalidateParams) error {
	_, err := steps.Guard(ctx, steps.InvalidateCaches, p.Dataset, func(ctx context.Context) (struct{}, error) {
		if a.Invalidator == nil || len(p.Tags) == 0 {
			return struct{}{}, nil
		}
		activity.GetLogger(ctx).Info("invalidating caches", "tags", p.Tags)
		return struct{}{}, a.Invalidator.Invalidate(ctx, p.Tags)
	})
	return err
}

// CountBiddingRounds returns the number of distinct bidding exercises in a month.
func (a *Activities) CountBiddingRounds(ctx context.Context, p types.PeriodParams) (int, error) {
	return steps.Guard(ctx, steps.CountBiddingRounds, p.Dataset, func(ctx context.Context) (int, error) {
		return a.Queries.BiddingRounds(ctx, p.Month)
	})
}

// FindPost reports whether content already exists for the period.
func (a *Activities) FindPost(ctx context.Context, p types.PeriodParams) (types.PostRef, error) {
	return steps.Guard(ctx, steps.FindPost, p.Dataset, func(ctx context.Context) (types.PostRef, error) {
		post, err := a.Posts.FindByPeriod(ctx, p.Dataset, p.Month)
		if errors.Is(err, db.ErrNotFound) {
			return types.PostRef{}, nil
		}
		if err != nil {
			return types.PostRef{}, err
		}
		return types.PostRef{ID: post.ID, Slug: post.Slug, Found: true}, nil
	})
}

// FetchAggregate summarises a period for content generation.
func (a *Activities) FetchAggregate(ctx context.Context, p types.PeriodParams) (types.Aggregate, error) {
	return steps.Guard(ctx, steps.FetchAggregate, p.Dataset, func(ctx context.Context) (types.Aggregate, error) {
		switch p.Dataset {
		case types.DatasetRegistrations:
			return a.Queries.RegistrationAggregate(ctx, p.Month, a.cfg.TopMakes)
		case types.DatasetCOE:
			res, err := a.Queries.COEResults(ctx, p.Month)
			if err != nil {
				return types.Aggregate{}, err
			}
			return types.Aggregate{Dataset: p.Dataset, Month: p.Month, COE: res}, nil
		}
		return types.Aggregate{}, fmt.Errorf("no aggregate for dataset %q", p.Dataset)
	})
}

// GeneratePost asks the generation service for content about an aggregate.
func (a *Activities) GeneratePost(ctx context.Context, agg types.Aggregate) (types.GeneratedPost, error) {
	return steps.Guard(ctx, steps.GeneratePost, agg.Dataset, func(ctx context.Context) (types.GeneratedPost, error) {
		if a.Generator == nil {
			return types.GeneratedPost{}, errNoGenerator
		}
		res, err := a.Generator.Generate(ctx, generate.Request{DataType: agg.Dataset, Month: agg.Month, Data: agg})
		if err != nil {
			return types.GeneratedPost{}, err
		}
		return types.GeneratedPost{
			Dataset: agg.Dataset,
			Month:   agg.Month,
			Title:   res.Title,
			Content: res.Content,
			Model:   res.Model,
		}, nil
	})
}

// SavePost upserts content for the period and returns the stored identity.
// A retry after a partial failure updates the same row.
func (a *Activities) SavePost(ctx context.Context, g types.GeneratedPost) (types.PostRef, error) {
	return steps.Guard(ctx, steps.SavePost, g.Dataset, func(ctx context.Context) (types.PostRef, error) {
		now := a.now()
		post := models.Post{
			ID:        a.newID(),
			Month:     g.Month,
			DataType:  g.Dataset,
			Title:     g.Title,
			Slug:      normalize.Slug(g.Dataset, g.Month),
			Content:   g.Content,
			Model:     g.Model,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := a.Inserter.Insert(ctx, db.Posts, []db.Record{post}, 1); err != nil {
			return types.PostRef{}, err
		}
		stored, err := a.Posts.FindByPeriod(ctx, g.Dataset, g.Month)
		if err != nil {
			return types.PostRef{}, fmt.Errorf("read back post: %w", err)
		}
		activity.GetLogger(ctx).Info("post saved", "id", stored.ID, "slug", stored.Slug)
		return types.PostRef{ID: stored.ID, Slug: stored.Slug, Found: true}, nil
	})
}

// PublishPost announces a post on the configured channels.
func (a *Activities) PublishPost(ctx context.Context, p types.PublishParams) (types.PublishResult, error) {
	return steps.Guard(ctx, steps.PublishPost, p.Dataset, func(ctx context.Context) (types.PublishResult, error) {
		if a.Publisher == nil {
			return types.PublishResult{}, nil
		}
		return a.Publisher.Publish(ctx, publish.Message{
			PostID: p.PostID,
			Text:   p.Title,
			Link:   a.cfg.SiteURL + "/blog/" + p.Slug,
		})
	})
}

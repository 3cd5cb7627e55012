package workflow

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/yourorg/motor-stats/internal/cache"
	"github.com/yourorg/motor-stats/internal/steps"
	"github.com/yourorg/motor-stats/internal/types"
)

// MinBiddingRounds is the number of bidding exercises a month needs before
// COE content is generated.
const MinBiddingRounds = 2

func RegistrationsWorkflow(ctx workflow.Context, p types.PipelineParams) (types.PipelineResult, error) {
	p.Dataset = types.DatasetRegistrations
	return runPipeline(ctx, p)
}

func COEWorkflow(ctx workflow.Context, p types.PipelineParams) (types.PipelineResult, error) {
	p.Dataset = types.DatasetCOE
	return runPipeline(ctx, p)
}

func DeregistrationsWorkflow(ctx workflow.Context, p types.PipelineParams) (types.PipelineResult, error) {
	p.Dataset = types.DatasetDeregistrations
	return runPipeline(ctx, p)
}

// ForDataset returns the workflow function of a dataset.
func ForDataset(dataset string) (interface{}, error) {
	switch dataset {
	case types.DatasetRegistrations:
		return RegistrationsWorkflow, nil
	case types.DatasetCOE:
		return COEWorkflow, nil
	case types.DatasetDeregistrations:
		return DeregistrationsWorkflow, nil
	}
	return nil, fmt.Errorf("no workflow for dataset %q", dataset)
}

func runPipeline(ctx workflow.Context, p types.PipelineParams) (types.PipelineResult, error) {
	logger := workflow.GetLogger(ctx)
	if p.ScratchSubdir == "" {
		p.ScratchSubdir = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}
	if !p.KeepScratch {
		defer cleanup(ctx, p.ScratchSubdir)
	}

	var upd types.UpdaterResult
	if err := steps.Execute(ctx, steps.ProcessData, &upd, p); err != nil {
		return types.PipelineResult{}, err
	}
	if upd.RecordsProcessed == 0 {
		logger.Info("no new data", "dataset", p.Dataset, "message", upd.Message)
		return types.PipelineResult{Message: fmt.Sprintf("[%s] No new data to process. Skipping.", p.Dataset)}, nil
	}

	var period types.PeriodMarker
	if err := steps.Execute(ctx, steps.ResolveLatestPeriod, &period, p); err != nil {
		return types.PipelineResult{}, err
	}
	if period.Empty() {
		return types.PipelineResult{Message: fmt.Sprintf("[%s] No period found after ingestion.", p.Dataset)}, nil
	}
	month := period.Month

	inv := types.InvalidateParams{Dataset: p.Dataset, Tags: cache.DatasetTags(p.Dataset, month)}
	if err := steps.Execute(ctx, steps.InvalidateCaches, nil, inv); err != nil {
		return types.PipelineResult{}, err
	}

	if p.Dataset == types.DatasetDeregistrations {
		return types.PipelineResult{Message: fmt.Sprintf("[%s] Processed %d records for %s.", p.Dataset, upd.RecordsProcessed, month)}, nil
	}

	pp := types.PeriodParams{Dataset: p.Dataset, Month: month}
	if p.Dataset == types.DatasetCOE {
		var rounds int
		if err := steps.Execute(ctx, steps.CountBiddingRounds, &rounds, pp); err != nil {
			return types.PipelineResult{}, err
		}
		if rounds < MinBiddingRounds {
			logger.Info("waiting for bidding rounds", "month", month, "rounds", rounds)
			return types.PipelineResult{Message: fmt.Sprintf("[%s] Waiting for bidding round %d of %s.", p.Dataset, MinBiddingRounds, month)}, nil
		}
	}

	var existing types.PostRef
	if err := steps.Execute(ctx, steps.FindPost, &existing, pp); err != nil {
		return types.PipelineResult{}, err
	}
	if existing.Found {
		return types.PipelineResult{Message: fmt.Sprintf("[%s] Post for %s already exists.", p.Dataset, month), PostID: existing.ID}, nil
	}

	var agg types.Aggregate
	if err := steps.Execute(ctx, steps.FetchAggregate, &agg, pp); err != nil {
		return types.PipelineResult{}, err
	}
	var gen types.GeneratedPost
	if err := steps.Execute(ctx, steps.GeneratePost, &gen, agg); err != nil {
		return types.PipelineResult{}, err
	}
	var saved types.PostRef
	if err := steps.Execute(ctx, steps.SavePost, &saved, gen); err != nil {
		return types.PipelineResult{}, err
	}
	pub := types.PublishParams{Dataset: p.Dataset, PostID: saved.ID, Title: gen.Title, Slug: saved.Slug}
	var published types.PublishResult
	if err := steps.Execute(ctx, steps.PublishPost, &published, pub); err != nil {
		return types.PipelineResult{}, err
	}
	postsInv := types.InvalidateParams{Dataset: p.Dataset, Tags: []string{cache.PostsListTag}}
	if err := steps.Execute(ctx, steps.InvalidateCaches, nil, postsInv); err != nil {
		return types.PipelineResult{}, err
	}

	logger.Info("post created", "dataset", p.Dataset, "month", month, "post", saved.ID, "channels", published.Channels)
	return types.PipelineResult{Message: fmt.Sprintf("[%s] Post created for %s.", p.Dataset, month), PostID: saved.ID}, nil
}

// cleanup runs on a disconnected context so a cancelled run still removes
// its scratch directory. Failures are logged only.
func cleanup(ctx workflow.Context, subdir string) {
	dctx, cancel := workflow.NewDisconnectedContext(ctx)
	defer cancel()
	if err := steps.Execute(dctx, steps.CleanupScratch, nil, types.CleanupParams{ScratchSubdir: subdir}); err != nil {
		workflow.GetLogger(ctx).Warn("scratch cleanup failed", "subdir", subdir, "error", err)
	}
}

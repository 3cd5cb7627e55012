package app

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/yourorg/motor-stats/internal/types"
	"github.com/yourorg/motor-stats/internal/workflow"
)

// Starter is the part of client.Client used to start pipelines.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// StartOptions names a run after its dataset and start time.
func StartOptions(dataset, taskQueue string, now time.Time) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                    fmt.Sprintf("%s-pipeline-%s", dataset, now.UTC().Format("20060102T150405")),
		TaskQueue:             taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
}

// StartPipeline starts the workflow of p.Dataset without waiting for it.
func StartPipeline(ctx context.Context, c Starter, taskQueue string, p types.PipelineParams) (client.WorkflowRun, error) {
	wf, err := workflow.ForDataset(p.Dataset)
	if err != nil {
		return nil, err
	}
	return c.ExecuteWorkflow(ctx, StartOptions(p.Dataset, taskQueue, time.Now()), wf, p)
}

// ScheduleOptions runs a dataset's pipeline on a cron expression. Overlapping
// runs of the same schedule are skipped.
func ScheduleOptions(dataset, cron, taskQueue string) (client.ScheduleOptions, error) {
	wf, err := workflow.ForDataset(dataset)
	if err != nil {
		return client.ScheduleOptions{}, err
	}
	if cron == "" {
		return client.ScheduleOptions{}, fmt.Errorf("dataset %q has no schedule", dataset)
	}
	id := dataset + "-pipeline"
	return client.ScheduleOptions{
		ID:      id + "-schedule",
		Spec:    client.ScheduleSpec{CronExpressions: []string{cron}},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &client.ScheduleWorkflowAction{
			ID:        id,
			Workflow:  wf,
			Args:      []interface{}{types.PipelineParams{Dataset: dataset}},
			TaskQueue: taskQueue,
		},
	}, nil
}

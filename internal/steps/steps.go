package steps

import (
	"strings"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yourorg/motor-stats/internal/classify"
)

// Descriptor declares a workflow step: the activity it runs, how many times
// it may be retried and which collaborator category its failures belong to.
type Descriptor struct {
	Name       string
	MaxRetries int
	Category   classify.Category
	Timeout    time.Duration
	Heartbeat  time.Duration
}

// Short is the name without the receiver prefix, e.g. "ProcessData".
func (d Descriptor) Short() string {
	if i := strings.LastIndexByte(d.Name, '.'); i >= 0 {
		return d.Name[i+1:]
	}
	return d.Name
}

// ActivityOptions maps the descriptor onto a retry policy. MaxRetries counts
// re-invocations, so the runtime gets MaxRetries+1 attempts.
func (d Descriptor) ActivityOptions() workflow.ActivityOptions {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    d.Heartbeat,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    int32(d.MaxRetries + 1),
		},
	}
}

var (
	ProcessData = Descriptor{
		Name: "Activities.ProcessData", MaxRetries: 3, Category: classify.UpstreamSource,
		Timeout: 30 * time.Minute, Heartbeat: 2 * time.Minute,
	}
	ResolveLatestPeriod = Descriptor{
		Name: "Activities.ResolveLatestPeriod", MaxRetries: 3, Category: classify.Storage,
		Timeout: time.Minute,
	}
	InvalidateCaches = Descriptor{
		Name: "Activities.InvalidateCaches", MaxRetries: 0, Category: classify.Storage,
		Timeout: time.Minute,
	}
	CountBiddingRounds = Descriptor{
		Name: "Activities.CountBiddingRounds", MaxRetries: 3, Category: classify.Storage,
		Timeout: time.Minute,
	}
	FindPost = Descriptor{
		Name: "Activities.FindPost", MaxRetries: 3, Category: classify.Storage,
		Timeout: time.Minute,
	}
	FetchAggregate = Descriptor{
		Name: "Activities.FetchAggregate", MaxRetries: 3, Category: classify.Storage,
		Timeout: 2 * time.Minute,
	}
	GeneratePost = Descriptor{
		Name: "Activities.GeneratePost", MaxRetries: 3, Category: classify.GenerationService,
		Timeout: 5 * time.Minute,
	}
	SavePost = Descriptor{
		Name: "Activities.SavePost", MaxRetries: 3, Category: classify.Storage,
		Timeout: time.Minute,
	}
	PublishPost = Descriptor{
		Name: "Activities.PublishPost", MaxRetries: 3, Category: classify.UpstreamSource,
		Timeout: 2 * time.Minute,
	}
	CleanupScratch = Descriptor{
		Name: "Activities.CleanupScratch", MaxRetries: 0, Category: classify.Storage,
		Timeout: time.Minute,
	}
)

// Catalog lists every step in pipeline order.
var Catalog = []Descriptor{
	ProcessData, ResolveLatestPeriod, InvalidateCaches, CountBiddingRounds, FindPost,
	FetchAggregate, GeneratePost, SavePost, PublishPost, CleanupScratch,
}

// Execute runs the step's activity and decodes its result into out.
func Execute(ctx workflow.Context, d Descriptor, out interface{}, args ...interface{}) error {
	ctx = workflow.WithActivityOptions(ctx, d.ActivityOptions())
	return workflow.ExecuteActivity(ctx, d.Name, args...).Get(ctx, out)
}

// Registration binds a descriptor to the function implementing it.
type Registration struct {
	Descriptor
	Handler interface{}
}

// Registry is satisfied by worker.Worker and the workflow test environment.
type Registry interface {
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register registers every handler under its descriptor name.
func Register(r Registry, regs []Registration) {
	for _, reg := range regs {
		r.RegisterActivityWithOptions(reg.Handler, activity.RegisterOptions{Name: reg.Name})
	}
}

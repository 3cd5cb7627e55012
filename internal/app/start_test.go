package app

import (
	"context"
	"strings"
	"testing"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/yourorg/motor-stats/internal/types"
)

type fakeRun struct {
	client.WorkflowRun
	id string
}

func (r fakeRun) GetID() string    { return r.id }
func (r fakeRun) GetRunID() string { return "run-" + r.id }

type fakeStarter struct {
	opts client.StartWorkflowOptions
	args []interface{}
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, o client.StartWorkflowOptions, _ interface{}, args ...interface{}) (client.WorkflowRun, error) {
	f.opts, f.args = o, args
	return fakeRun{id: o.ID}, nil
}

func TestStartOptions(t *testing.T) {
	o := StartOptions("coe", "motor-stats", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	if o.ID != "coe-pipeline-20240305T100000" || o.TaskQueue != "motor-stats" {
		t.Fatalf("opts %+v", o)
	}
}

func TestStartPipeline(t *testing.T) {
	s := &fakeStarter{}
	run, err := StartPipeline(context.Background(), s, "q", types.PipelineParams{Dataset: "registrations", Month: "2024-02"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(run.GetID(), "registrations-pipeline-") || s.opts.TaskQueue != "q" {
		t.Fatalf("run %s opts %+v", run.GetID(), s.opts)
	}
	if p := s.args[0].(types.PipelineParams); p.Month != "2024-02" {
		t.Fatalf("params %+v", p)
	}
	if _, err := StartPipeline(context.Background(), s, "q", types.PipelineParams{Dataset: "boats"}); err == nil {
		t.Fatalf("expected unknown dataset error")
	}
}

func TestScheduleOptions(t *testing.T) {
	o, err := ScheduleOptions("deregistrations", "0 9 * * *", "q")
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != "deregistrations-pipeline-schedule" || o.Overlap != enumspb.SCHEDULE_OVERLAP_POLICY_SKIP {
		t.Fatalf("opts %+v", o)
	}
	act := o.Action.(*client.ScheduleWorkflowAction)
	if act.TaskQueue != "q" || act.Args[0].(types.PipelineParams).Dataset != "deregistrations" {
		t.Fatalf("action %+v", act)
	}
	if _, err := ScheduleOptions("coe", "", "q"); err == nil {
		t.Fatalf("expected missing schedule error")
	}
}

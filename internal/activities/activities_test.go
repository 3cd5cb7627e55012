package activities

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/yourorg/motor-stats/internal/config"
	"github.com/yourorg/motor-stats/internal/db"
	"github.com/yourorg/motor-stats/internal/generate"
	"github.com/yourorg/motor-stats/internal/ingest"
	"github.com/yourorg/motor-stats/internal/models"
	"github.com/yourorg/motor-stats/internal/publish"
	"github.com/yourorg/motor-stats/internal/steps"
	"github.com/yourorg/motor-stats/internal/types"
)

type fakeRunner struct {
	got     ingest.Dataset
	scratch string
	res     types.UpdaterResult
	err     error
}

func (f *fakeRunner) Run(_ context.Context, ds ingest.Dataset, scratch string) (types.UpdaterResult, error) {
	f.got, f.scratch = ds, scratch
	return f.res, f.err
}

type fakeQueries struct {
	latest map[string]string
	marker types.PeriodMarker
	rounds int
	coe    []types.COEResult
	err    error
}

func (f *fakeQueries) LatestMonth(_ context.Context, table string) (string, error) {
	return f.latest[table], f.err
}

func (f *fakeQueries) LatestBiddingPeriod(context.Context) (types.PeriodMarker, error) {
	return f.marker, f.err
}

func (f *fakeQueries) BiddingRounds(context.Context, string) (int, error) { return f.rounds, f.err }

func (f *fakeQueries) RegistrationAggregate(_ context.Context, month string, _ int) (types.Aggregate, error) {
	return types.Aggregate{Dataset: types.DatasetRegistrations, Month: month, Total: 42}, f.err
}

func (f *fakeQueries) COEResults(context.Context, string) ([]types.COEResult, error) { return f.coe, f.err }

// fakePosts is a posts table keyed by data type and month; Insert upserts.
type fakePosts struct {
	rows map[string]models.Post
}

func (f *fakePosts) FindByPeriod(_ context.Context, dataType, month string) (models.Post, error) {
	p, ok := f.rows[dataType+"/"+month]
	if !ok {
		return models.Post{}, db.ErrNotFound
	}
	return p, nil
}

func (f *fakePosts) Insert(_ context.Context, _ db.Table, recs []db.Record, _ int) (int, error) {
	for _, r := range recs {
		p := r.(models.Post)
		k := p.DataType + "/" + p.Month
		if old, ok := f.rows[k]; ok {
			p.ID, p.CreatedAt = old.ID, old.CreatedAt
		}
		f.rows[k] = p
	}
	return len(recs), nil
}

type fakeGenerator struct{ err error }

func (f *fakeGenerator) Generate(_ context.Context, req generate.Request) (generate.Result, error) {
	if f.err != nil {
		return generate.Result{}, f.err
	}
	return generate.Result{Title: req.DataType + " " + req.Month, Content: "body", Model: "m"}, nil
}

type fakePublisher struct{ got publish.Message }

func (f *fakePublisher) Publish(_ context.Context, m publish.Message) (types.PublishResult, error) {
	f.got = m
	return types.PublishResult{Channels: []string{"discord"}}, nil
}

type fakeInvalidator struct{ tags []string }

func (f *fakeInvalidator) Invalidate(_ context.Context, tags []string) error {
	f.tags = append(f.tags, tags...)
	return nil
}

type fixture struct {
	acts   *Activities
	runner *fakeRunner
	q      *fakeQueries
	posts  *fakePosts
	gen    *fakeGenerator
	pub    *fakePublisher
	inv    *fakeInvalidator
	env    *testsuite.TestActivityEnvironment
	root   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		runner: &fakeRunner{},
		q:      &fakeQueries{latest: map[string]string{}},
		posts:  &fakePosts{rows: map[string]models.Post{}},
		gen:    &fakeGenerator{},
		pub:    &fakePublisher{},
		inv:    &fakeInvalidator{},
		root:   t.TempDir(),
	}
	f.acts = New(Config{ScratchDir: f.root, SiteURL: "https://stats.example.test"}, Deps{
		Sources:     map[string]config.Source{"coe": {URL: "https://example.test/coe.zip"}},
		Runner:      f.runner,
		Queries:     f.q,
		Posts:       f.posts,
		Inserter:    f.posts,
		Generator:   f.gen,
		Publisher:   f.pub,
		Invalidator: f.inv,
	})
	ids := 0
	f.acts.newID = func() string {
		ids++
		return []string{"id-1", "id-2", "id-3"}[ids-1]
	}
	f.acts.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	var suite testsuite.WorkflowTestSuite
	f.env = suite.NewTestActivityEnvironment()
	steps.Register(f.env, f.acts.Registrations())
	return f
}

func (f *fixture) run(t *testing.T, d steps.Descriptor, out interface{}, args ...interface{}) error {
	t.Helper()
	val, err := f.env.ExecuteActivity(d.Name, args...)
	if err != nil {
		return err
	}
	if out != nil {
		if err := val.Get(out); err != nil {
			t.Fatalf("decode %s: %v", d.Name, err)
		}
	}
	return nil
}

func TestProcessData(t *testing.T) {
	f := newFixture(t)
	f.runner.res = types.UpdaterResult{Table: "coe", RecordsProcessed: 12}

	var res types.UpdaterResult
	if err := f.run(t, steps.ProcessData, &res, types.PipelineParams{Dataset: "coe", ScratchSubdir: "run-1"}); err != nil {
		t.Fatal(err)
	}
	if res.RecordsProcessed != 12 || f.runner.got.Table.Name != "coe" || f.runner.scratch != filepath.Join(f.root, "run-1") {
		t.Fatalf("res %+v dataset %+v scratch %s", res, f.runner.got, f.runner.scratch)
	}
}

func TestProcessDataUnknownDatasetIsFatal(t *testing.T) {
	f := newFixture(t)
	err := f.run(t, steps.ProcessData, nil, types.PipelineParams{Dataset: "boats"})
	var ae *temporal.ApplicationError
	if !errors.As(err, &ae) || !ae.NonRetryable() {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestResolveLatestPeriod(t *testing.T) {
	f := newFixture(t)
	f.q.latest["cars"] = "2024-02"
	f.q.marker = types.PeriodMarker{Month: "2024-03", BiddingNo: 1}

	var cars types.PeriodMarker
	if err := f.run(t, steps.ResolveLatestPeriod, &cars, types.PipelineParams{Dataset: "registrations"}); err != nil || cars.Month != "2024-02" {
		t.Fatalf("registrations %+v err %v", cars, err)
	}
	var coe types.PeriodMarker
	if err := f.run(t, steps.ResolveLatestPeriod, &coe, types.PipelineParams{Dataset: "coe"}); err != nil || coe.BiddingNo != 1 {
		t.Fatalf("coe %+v err %v", coe, err)
	}
	var hinted types.PeriodMarker
	if err := f.run(t, steps.ResolveLatestPeriod, &hinted, types.PipelineParams{Dataset: "coe", Month: "2023-12"}); err != nil || hinted.Month != "2023-12" || hinted.BiddingNo != 0 {
		t.Fatalf("hint %+v err %v", hinted, err)
	}
}

func TestStorageErrorsAreRetryable(t *testing.T) {
	f := newFixture(t)
	f.q.err = errors.New("pool exhausted")
	err := f.run(t, steps.CountBiddingRounds, nil, types.PeriodParams{Dataset: "coe", Month: "2024-03"})
	var ae *temporal.ApplicationError
	if !errors.As(err, &ae) || ae.NonRetryable() {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestPostLifecycle(t *testing.T) {
	f := newFixture(t)
	period := types.PeriodParams{Dataset: "coe", Month: "2024-03"}

	var ref types.PostRef
	if err := f.run(t, steps.FindPost, &ref, period); err != nil || ref.Found {
		t.Fatalf("find before save %+v err %v", ref, err)
	}

	f.q.coe = []types.COEResult{{Month: "2024-03", BiddingNo: 1, VehicleClass: "Category A", Premium: 90000}}
	var agg types.Aggregate
	if err := f.run(t, steps.FetchAggregate, &agg, period); err != nil || len(agg.COE) != 1 || agg.Dataset != "coe" {
		t.Fatalf("aggregate %+v err %v", agg, err)
	}

	var gen types.GeneratedPost
	if err := f.run(t, steps.GeneratePost, &gen, agg); err != nil || gen.Title != "coe 2024-03" {
		t.Fatalf("generate %+v err %v", gen, err)
	}

	if err := f.run(t, steps.SavePost, &ref, gen); err != nil || ref.ID != "id-1" || ref.Slug != "coe-2024-03" {
		t.Fatalf("save %+v err %v", ref, err)
	}
	// Saving again keeps the stored identity.
	if err := f.run(t, steps.SavePost, &ref, gen); err != nil || ref.ID != "id-1" {
		t.Fatalf("resave %+v err %v", ref, err)
	}

	var pub types.PublishResult
	if err := f.run(t, steps.PublishPost, &pub, types.PublishParams{Dataset: "coe", PostID: ref.ID, Title: gen.Title, Slug: ref.Slug}); err != nil {
		t.Fatal(err)
	}
	if f.pub.got.Link != "https://stats.example.test/blog/coe-2024-03" || len(pub.Channels) != 1 {
		t.Fatalf("published %+v result %+v", f.pub.got, pub)
	}
}

func TestGenerationRateLimitIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.gen.err = &generate.APIError{Status: 429, Body: "slow down"}
	err := f.run(t, steps.GeneratePost, nil, types.Aggregate{Dataset: "registrations", Month: "2024-02"})
	var ae *temporal.ApplicationError
	if !errors.As(err, &ae) || ae.NonRetryable() {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestMissingGeneratorIsFatal(t *testing.T) {
	f := newFixture(t)
	f.acts.Generator = nil
	err := f.run(t, steps.GeneratePost, nil, types.Aggregate{Dataset: "coe", Month: "2024-03"})
	var ae *temporal.ApplicationError
	if !errors.As(err, &ae) || !ae.NonRetryable() {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if !strings.Contains(ae.Error(), "no content generator configured") {
		t.Fatalf("message %q", ae.Error())
	}
}

func TestInvalidateCaches(t *testing.T) {
	f := newFixture(t)
	if err := f.run(t, steps.InvalidateCaches, nil, types.InvalidateParams{Dataset: "coe", Tags: []string{"coe:periods"}}); err != nil {
		t.Fatal(err)
	}
	if len(f.inv.tags) != 1 || f.inv.tags[0] != "coe:periods" {
		t.Fatalf("tags %v", f.inv.tags)
	}
}

func TestCleanupScratch(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.root, "run-9", "nested")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := f.run(t, steps.CleanupScratch, nil, types.CleanupParams{ScratchSubdir: "run-9"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(f.root, "run-9")); !os.IsNotExist(err) {
		t.Fatalf("scratch not removed: %v", err)
	}
	if _, err := os.Stat(f.root); err != nil {
		t.Fatalf("scratch root removed: %v", err)
	}
	for _, bad := range []string{"", ".", "..", "../etc"} {
		if err := f.run(t, steps.CleanupScratch, nil, types.CleanupParams{ScratchSubdir: bad}); err == nil {
			t.Fatalf("subdir %q accepted", bad)
		}
	}
}

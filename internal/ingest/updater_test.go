package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/cache"
	"github.com/yourorg/motor-stats/internal/config"
	"github.com/yourorg/motor-stats/internal/datasets"
	"github.com/yourorg/motor-stats/internal/db"
	"github.com/yourorg/motor-stats/internal/fetch"
	"github.com/yourorg/motor-stats/internal/storage"
)

const coeCSV = "month,bidding_no,vehicle_class,quota,bids_success,bids_received,premium\n" +
	"2024-01,1,Category A,1000,990,1500,90001\n" +
	"2024-01,2,Category A,1000,995,1400,91000\n"

func zipped(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakeSource struct {
	body       []byte
	fetched    []string
	discovered string
	discErr    error
}

func (f *fakeSource) Fetch(_ context.Context, url string) (fetch.RawArchive, error) {
	f.fetched = append(f.fetched, url)
	return fetch.RawArchive{URL: url, Data: f.body}, nil
}

func (f *fakeSource) Discover(context.Context, string, string) (string, error) {
	return f.discovered, f.discErr
}

// fakeInserter keeps natural keys like a table with a unique constraint.
type fakeInserter struct {
	calls  int
	keys   map[string]bool
	failOn int
}

func (f *fakeInserter) Insert(_ context.Context, t db.Table, recs []db.Record, _ int) (int, error) {
	f.calls++
	if f.calls == f.failOn {
		return 0, errors.New("connection reset by peer")
	}
	n := 0
	for _, r := range recs {
		v := r.Values()
		k := t.Name
		for i := range t.ConflictColumns {
			k += "|" + fmt.Sprint(v[i])
		}
		if !f.keys[k] {
			f.keys[k] = true
			n++
		}
	}
	return n, nil
}

func newStore(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func coeDataset(t *testing.T) Dataset {
	t.Helper()
	def, err := datasets.Lookup("coe")
	if err != nil {
		t.Fatal(err)
	}
	return Dataset{Definition: def, Source: config.Source{URL: "https://example.test/coe.zip", Hint: "M11-coe_results.csv"}}
}

func TestRunIsIdempotentAndShortCircuits(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{body: zipped(t, "M11-coe_results.csv", coeCSV)}
	ins := &fakeInserter{keys: map[string]bool{}}
	store := newStore(t)
	u := NewUpdater(src, ins, store, zap.NewNop())
	ds := coeDataset(t)

	first, err := u.Run(ctx, ds, t.TempDir())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.RecordsProcessed != 2 || first.Table != "coe" || first.Checksum == "" {
		t.Fatalf("first %+v", first)
	}
	if _, ok, _ := store.LastUpdated(ctx, "coe"); !ok {
		t.Fatalf("last updated not recorded")
	}

	var parsed int
	ds.Parse = func(f fetch.ExtractedFile, l *zap.Logger) ([]db.Record, error) {
		parsed++
		return datasets.ParseCOE(f, l)
	}
	second, err := u.Run(ctx, ds, t.TempDir())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.RecordsProcessed != 0 || second.Checksum != first.Checksum {
		t.Fatalf("second %+v", second)
	}
	if parsed != 0 || ins.calls != 1 {
		t.Fatalf("unchanged content reached parser (%d) or persister (%d)", parsed, ins.calls)
	}
}

func TestRunFailedPersistDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{body: zipped(t, "M11-coe_results.csv", coeCSV)}
	ins := &fakeInserter{keys: map[string]bool{}, failOn: 1}
	store := newStore(t)
	u := NewUpdater(src, ins, store, nil)

	if _, err := u.Run(ctx, coeDataset(t), t.TempDir()); err == nil {
		t.Fatalf("expected persist error")
	}
	if _, ok, _ := store.Checksum(ctx, "M11-coe_results.csv"); ok {
		t.Fatalf("checksum committed after failed persist")
	}
	// The retry sees a first run and persists.
	res, err := u.Run(ctx, coeDataset(t), t.TempDir())
	if err != nil || res.RecordsProcessed != 2 {
		t.Fatalf("retry %+v err %v", res, err)
	}
}

func TestRunNoNewRowsKeepsLastUpdated(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{body: zipped(t, "M11-coe_results.csv", coeCSV)}
	ins := &fakeInserter{keys: map[string]bool{}}
	store := newStore(t)
	u := NewUpdater(src, ins, store, nil)
	if _, err := u.Run(ctx, coeDataset(t), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	stamp, _, _ := store.LastUpdated(ctx, "coe")

	// Same rows, different bytes: the gate passes but nothing is inserted.
	src.body = zipped(t, "M11-coe_results.csv", coeCSV+"\n")
	u.now = func() time.Time { return stamp.Add(time.Hour) }
	res, err := u.Run(ctx, coeDataset(t), t.TempDir())
	if err != nil || res.RecordsProcessed != 0 {
		t.Fatalf("res %+v err %v", res, err)
	}
	if got, _, _ := store.LastUpdated(ctx, "coe"); !got.Equal(stamp) {
		t.Fatalf("last updated moved without inserts: %v -> %v", stamp, got)
	}
}

func TestRunDiscoversLinkAndMirrors(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{body: zipped(t, "M11-coe_results.csv", coeCSV), discovered: "https://example.test/files/coe-2024.zip"}
	ins := &fakeInserter{keys: map[string]bool{}}
	u := NewUpdater(src, ins, newStore(t), nil)
	archive := t.TempDir()
	u.Mirror = storage.NewS3()
	u.ArchiveURI = "file://" + archive
	var stages []string
	ctx = WithProgress(ctx, func(s string) { stages = append(stages, s) })

	ds := coeDataset(t)
	ds.Source.IndexURL = "https://example.test/portal"
	res, err := u.Run(ctx, ds, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(src.fetched) != 1 || src.fetched[0] != "https://example.test/files/coe-2024.zip" {
		t.Fatalf("fetched %v", src.fetched)
	}
	if _, err := os.Stat(filepath.Join(archive, "coe", res.Checksum+".zip")); err != nil {
		t.Fatalf("mirror missing: %v", err)
	}
	if len(stages) == 0 || stages[0] != "fetch" || stages[len(stages)-1] != "persist" {
		t.Fatalf("stages %v", stages)
	}

	// Discovery failure falls back to the configured URL.
	src.discErr = errors.New("index moved")
	src.fetched = nil
	if _, err := u.Run(ctx, ds, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if src.fetched[0] != "https://example.test/coe.zip" {
		t.Fatalf("fallback fetched %v", src.fetched)
	}
}

func TestRunWithoutURL(t *testing.T) {
	u := NewUpdater(&fakeSource{}, &fakeInserter{keys: map[string]bool{}}, newStore(t), nil)
	ds := coeDataset(t)
	ds.Source = config.Source{}
	if _, err := u.Run(context.Background(), ds, t.TempDir()); err == nil {
		t.Fatalf("expected missing url error")
	}
}

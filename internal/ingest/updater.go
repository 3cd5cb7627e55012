package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/motor-stats/internal/checksum"
	"github.com/yourorg/motor-stats/internal/config"
	"github.com/yourorg/motor-stats/internal/datasets"
	"github.com/yourorg/motor-stats/internal/db"
	"github.com/yourorg/motor-stats/internal/fetch"
	msmetrics "github.com/yourorg/motor-stats/internal/metrics"
	"github.com/yourorg/motor-stats/internal/progress"
	"github.com/yourorg/motor-stats/internal/storage"
	"github.com/yourorg/motor-stats/internal/types"
)

// Source downloads raw archives. Satisfied by *fetch.Fetcher.
type Source interface {
	Fetch(ctx context.Context, url string) (fetch.RawArchive, error)
	Discover(ctx context.Context, indexURL, suffix string) (string, error)
}

// Inserter is satisfied by *db.Persister.
type Inserter interface {
	Insert(ctx context.Context, t db.Table, recs []db.Record, batchSize int) (int, error)
}

// Cache holds checksums and last-updated stamps. Satisfied by *cache.Store.
type Cache interface {
	checksum.Store
	SetLastUpdated(ctx context.Context, dataset string, at time.Time) error
}

// Dataset is a definition plus where to get it from.
type Dataset struct {
	datasets.Definition
	Source config.Source
}

// Updater runs one ingestion: fetch, gate, parse, persist.
type Updater struct {
	Source    Source
	Inserter  Inserter
	Cache     Cache
	BatchSize int
	Logger    *zap.Logger

	// Mirror and ArchiveURI enable raw archive mirroring when both are set.
	Mirror     storage.ObjectStore
	ArchiveURI string

	now func() time.Time
}

func NewUpdater(src Source, ins Inserter, c Cache, l *zap.Logger) *Updater {
	if l == nil {
		l = zap.NewNop()
	}
	return &Updater{Source: src, Inserter: ins, Cache: c, BatchSize: db.DefaultBatchSize, Logger: l, now: time.Now}
}

// WithProgress returns a context whose runs report each stage to fn, and
// each persisted batch and downloaded megabyte as well. Activities use it to
// heartbeat.
func WithProgress(ctx context.Context, fn func(stage string)) context.Context {
	return progress.With(ctx, fn)
}

func stage(ctx context.Context, s string) { progress.Report(ctx, s) }

func (u *Updater) clock() time.Time {
	if u.now == nil {
		return time.Now().UTC()
	}
	return u.now().UTC()
}

// Run ingests ds, extracting archives under scratch. Unchanged content is
// reported as a zero-work result without parsing or persisting. The checksum
// is committed only after the records are persisted.
func (u *Updater) Run(ctx context.Context, ds Dataset, scratch string) (types.UpdaterResult, error) {
	log := u.Logger.With(zap.String("dataset", ds.Name), zap.String("table", ds.Table.Name))

	url, err := u.resolveURL(ctx, ds.Source, log)
	if err != nil {
		return types.UpdaterResult{}, err
	}
	stage(ctx, "fetch")
	raw, err := u.Source.Fetch(ctx, url)
	if err != nil {
		return types.UpdaterResult{}, err
	}
	log.Info("fetched source", zap.String("url", url), zap.Int("bytes", len(raw.Data)))

	file, err := pick(ctx, raw, scratch, ds.Source.Hint)
	if err != nil {
		return types.UpdaterResult{}, err
	}

	gate := checksum.NewGate(u.Cache)
	key := ds.Source.ChecksumKey
	if key == "" {
		key = file.Name
	}
	stage(ctx, "checksum")
	dec, err := gate.Check(ctx, key, file)
	if err != nil {
		return types.UpdaterResult{}, err
	}
	if !dec.Proceed() {
		msmetrics.ChecksumSkips.WithLabelValues(ds.Name).Inc()
		log.Info("source unchanged, skipping", zap.String("file", file.Name), zap.String("checksum", dec.Hash))
		return types.UpdaterResult{
			Table:            ds.Table.Name,
			RecordsProcessed: 0,
			Message:          fmt.Sprintf("No changes detected for %s", file.Name),
			Timestamp:        u.clock(),
			Checksum:         dec.Hash,
		}, nil
	}

	u.mirror(ctx, ds.Name, raw, dec.Hash, log)

	stage(ctx, "parse")
	recs, err := ds.Parse(file, log)
	if err != nil {
		return types.UpdaterResult{}, err
	}
	msmetrics.RecordsParsed.WithLabelValues(ds.Name).Add(float64(len(recs)))

	stage(ctx, "persist")
	n, err := u.Inserter.Insert(ctx, ds.Table, recs, u.BatchSize)
	if err != nil {
		return types.UpdaterResult{}, err
	}
	if err := gate.Commit(ctx, dec); err != nil {
		return types.UpdaterResult{}, err
	}
	now := u.clock()
	if n > 0 {
		if err := u.Cache.SetLastUpdated(ctx, ds.Name, now); err != nil {
			return types.UpdaterResult{}, fmt.Errorf("record last updated: %w", err)
		}
	}
	log.Info("ingested", zap.Int("parsed", len(recs)), zap.Int("inserted", n), zap.Bool("first_run", dec.FirstRun))
	return types.UpdaterResult{
		Table:            ds.Table.Name,
		RecordsProcessed: n,
		Message:          fmt.Sprintf("%d of %d records inserted into %s", n, len(recs), ds.Table.Name),
		Timestamp:        now,
		Checksum:         dec.Hash,
	}, nil
}

// resolveURL prefers a link discovered on the index page and falls back to
// the configured URL.
func (u *Updater) resolveURL(ctx context.Context, src config.Source, log *zap.Logger) (string, error) {
	if src.IndexURL == "" {
		if src.URL == "" {
			return "", fmt.Errorf("no source url configured")
		}
		return src.URL, nil
	}
	found, err := u.Source.Discover(ctx, src.IndexURL, src.LinkSuffix)
	if err == nil {
		return found, nil
	}
	if src.URL == "" {
		return "", err
	}
	log.Warn("link discovery failed, using configured url", zap.Error(err))
	return src.URL, nil
}

func pick(ctx context.Context, raw fetch.RawArchive, scratch, hint string) (fetch.ExtractedFile, error) {
	if fetch.IsSpreadsheet(fetch.SourceName(raw.URL), raw.Data) {
		return fetch.InMemory(raw), nil
	}
	stage(ctx, "extract")
	ex, err := fetch.Extract(raw, scratch, hint)
	if err != nil {
		return fetch.ExtractedFile{}, err
	}
	return ex.Selected, nil
}

// mirror uploads the raw body for audit. Failures are logged, not returned.
func (u *Updater) mirror(ctx context.Context, dataset string, raw fetch.RawArchive, hash string, log *zap.Logger) {
	if u.Mirror == nil || u.ArchiveURI == "" {
		return
	}
	ext := path.Ext(fetch.SourceName(raw.URL))
	if ext == "" {
		ext = ".bin"
	}
	uri := strings.TrimRight(u.ArchiveURI, "/") + "/" + dataset + "/" + hash + strings.ToLower(ext)
	if _, err := u.Mirror.Put(ctx, uri, bytes.NewReader(raw.Data)); err != nil {
		log.Warn("mirror raw archive failed", zap.String("uri", uri), zap.Error(err))
		return
	}
	log.Debug("mirrored raw archive", zap.String("uri", uri))
}

package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	msmetrics "github.com/yourorg/motor-stats/internal/metrics"
	"github.com/yourorg/motor-stats/internal/progress"
)

// DefaultBatchSize is the maximum number of rows per round trip.
const DefaultBatchSize = 5000

// BatchSender is satisfied by *Pool, pgx.Tx and *pgx.Conn.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Persister inserts records in bounded batches with a conflict policy.
type Persister struct {
	Sender BatchSender
	Logger *zap.Logger
}

func NewPersister(s BatchSender, l *zap.Logger) *Persister {
	if l == nil {
		l = zap.NewNop()
	}
	return &Persister{Sender: s, Logger: l}
}

// Insert writes recs in slices of batchSize and returns how many rows were
// inserted or updated. Rows skipped by the conflict clause do not count.
// A failing batch is logged with its first record and its error returned as is.
// Every committed batch is reported to the context's progress callback.
func (p *Persister) Insert(ctx context.Context, t Table, recs []Record, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	stmt := InsertSQL(t)
	total := 0
	for start := 0; start < len(recs); start += batchSize {
		end := min(start+batchSize, len(recs))
		chunk := recs[start:end]

		began := time.Now()
		n, err := p.sendChunk(ctx, stmt, chunk)
		elapsed := time.Since(began)
		msmetrics.BatchDuration.WithLabelValues(t.Name).Observe(elapsed.Seconds())
		if err != nil {
			p.Logger.Error("batch insert failed",
				zap.String("table", t.Name),
				zap.Int("offset", start),
				zap.Int("size", len(chunk)),
				zap.Any("first_record", chunk[0].Values()),
				zap.Error(err))
			return total, err
		}
		total += n
		progress.Report(ctx, fmt.Sprintf("persist %s %d/%d", t.Name, end, len(recs)))
		msmetrics.RecordsInserted.WithLabelValues(t.Name).Add(float64(n))
		p.Logger.Debug("batch inserted",
			zap.String("table", t.Name),
			zap.Int("offset", start),
			zap.Int("size", len(chunk)),
			zap.Int("inserted", n),
			zap.Duration("elapsed", elapsed))
	}
	return total, nil
}

func (p *Persister) sendChunk(ctx context.Context, stmt string, chunk []Record) (int, error) {
	b := &pgx.Batch{}
	for _, r := range chunk {
		b.Queue(stmt, r.Values()...)
	}
	br := p.Sender.SendBatch(ctx, b)
	n := 0
	for range chunk {
		ct, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, err
		}
		n += int(ct.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	return n, nil
}

// InsertSQL renders the parameterised insert for one row of t.
func InsertSQL(t Table) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "insert into %s (%s) values (", pgx.Identifier{t.Name}.Sanitize(), idents(t.Columns))
	for i := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "$%d", i+1)
	}
	sb.WriteString(")")
	if len(t.ConflictColumns) == 0 {
		return sb.String()
	}
	fmt.Fprintf(&sb, " on conflict (%s) ", idents(t.ConflictColumns))
	if t.OnConflict == DoUpdate && len(t.UpdateColumns) > 0 {
		sb.WriteString("do update set ")
		for i, c := range t.UpdateColumns {
			if i > 0 {
				sb.WriteString(", ")
			}
			id := pgx.Identifier{c}.Sanitize()
			fmt.Fprintf(&sb, "%s = excluded.%s", id, id)
		}
		return sb.String()
	}
	sb.WriteString("do nothing")
	return sb.String()
}

func idents(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(out, ", ")
}

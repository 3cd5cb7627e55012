// Package progress carries a liveness callback through a context so that long
// running work deep in the call tree can heartbeat its activity.
package progress

import (
	"context"
	"io"
)

type key struct{}

// With returns a context whose work reports to fn.
func With(ctx context.Context, fn func(stage string)) context.Context {
	return context.WithValue(ctx, key{}, fn)
}

// Report calls the context's callback, if any.
func Report(ctx context.Context, stage string) {
	if fn, ok := ctx.Value(key{}).(func(string)); ok && fn != nil {
		fn(stage)
	}
}

// DefaultEvery is how many bytes a Reader passes between reports.
const DefaultEvery = 1 << 20

// Reader reports stage every Every bytes read from R.
type Reader struct {
	R     io.Reader
	Every int64

	ctx   context.Context
	stage string
	since int64
}

func NewReader(ctx context.Context, r io.Reader, stage string) *Reader {
	return &Reader{R: r, Every: DefaultEvery, ctx: ctx, stage: stage}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.R.Read(p)
	r.since += int64(n)
	if r.Every > 0 && r.since >= r.Every {
		r.since = 0
		Report(r.ctx, r.stage)
	}
	return n, err
}

package publish

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yourorg/motor-stats/internal/cache"
)

func TestPublishSkipsLedgerAndDisabled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	store, err := cache.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	w := NewWebhooks([]Channel{
		{Name: "telegram", URL: srv.URL, Enabled: true},
		{Name: "discord", URL: srv.URL, Enabled: true},
		{Name: "twitter", URL: srv.URL, Enabled: false},
	}, store, srv.Client())

	ctx := context.Background()
	if err := store.MarkPublished(ctx, "p1", "telegram"); err != nil {
		t.Fatal(err)
	}
	res, err := w.Publish(ctx, Message{PostID: "p1", Text: "COE Jan 2024", Link: "https://example.test/blog/coe-2024-01"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if hits.Load() != 1 || len(res.Channels) != 1 || res.Channels[0] != "discord" || len(res.Skipped) != 1 {
		t.Fatalf("hits %d res %+v", hits.Load(), res)
	}

	// A retry posts nothing new.
	res, err = w.Publish(ctx, Message{PostID: "p1"})
	if err != nil || hits.Load() != 1 || len(res.Skipped) != 2 {
		t.Fatalf("retry hits %d res %+v err %v", hits.Load(), res, err)
	}
}

func TestPublishChannelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	w := NewWebhooks([]Channel{{Name: "discord", URL: srv.URL, Enabled: true}}, nil, srv.Client())
	_, err := w.Publish(context.Background(), Message{PostID: "p2"})
	var ce *ChannelError
	if !errors.As(err, &ce) || ce.StatusCode() != http.StatusTooManyRequests {
		t.Fatalf("expected ChannelError 429, got %v", err)
	}
}

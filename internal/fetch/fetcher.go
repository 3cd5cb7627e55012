package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/motor-stats/internal/progress"
	"github.com/yourorg/motor-stats/internal/storage"
)

// maxErrorBody is how much of a failed response body is kept for diagnostics.
const maxErrorBody = 512

// RawArchive is the downloaded body of a dataset source.
type RawArchive struct {
	URL         string
	ContentType string
	Data        []byte
}

// FetchError reports a non-2xx response. Body is truncated to maxErrorBody bytes.
type FetchError struct {
	URL    string
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.Status, e.Body)
}

// StatusCode exposes the HTTP status for error classification.
func (e *FetchError) StatusCode() int { return e.Status }

// Fetcher downloads dataset sources over HTTP or from an object store.
type Fetcher struct {
	Client    *http.Client
	Objects   storage.ObjectStore
	UserAgent string
}

// Response headers must arrive before the ProcessData heartbeat timeout.
// Once the body streams, every megabyte read is reported as progress.
const (
	headerTimeout   = 90 * time.Second
	downloadTimeout = 20 * time.Minute
)

// New returns a Fetcher using the given client. nil selects a client whose
// headers time out after 90s and whole downloads after 20 minutes.
func New(client *http.Client, objects storage.ObjectStore) *Fetcher {
	if client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = headerTimeout
		client = &http.Client{Timeout: downloadTimeout, Transport: tr}
	}
	return &Fetcher{Client: client, Objects: objects, UserAgent: "motor-stats-ingest/1.0"}
}

// Fetch downloads the full body at url. http(s) URLs go through the HTTP client,
// file:// and s3:// through the object store.
func (f *Fetcher) Fetch(ctx context.Context, url string) (RawArchive, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return f.fetchObject(ctx, url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RawArchive{}, fmt.Errorf("create request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "application/zip,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/octet-stream,*/*")

	resp, err := f.Client.Do(req)
	if err != nil {
		return RawArchive{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return RawArchive{}, &FetchError{URL: url, Status: resp.StatusCode, Body: string(body)}
	}
	data, err := io.ReadAll(progress.NewReader(ctx, resp.Body, "fetch"))
	if err != nil {
		return RawArchive{}, fmt.Errorf("read body %s: %w", url, err)
	}
	return RawArchive{URL: url, ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

func (f *Fetcher) fetchObject(ctx context.Context, uri string) (RawArchive, error) {
	if f.Objects == nil {
		return RawArchive{}, fmt.Errorf("fetch %s: no object store configured", uri)
	}
	rc, _, err := f.Objects.Get(ctx, uri)
	if err != nil {
		return RawArchive{}, fmt.Errorf("fetch %s: %w", uri, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(progress.NewReader(ctx, rc, "fetch"))
	if err != nil {
		return RawArchive{}, fmt.Errorf("read %s: %w", uri, err)
	}
	return RawArchive{URL: uri, Data: data}, nil
}

package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PostsListTag addresses the derived-content listing.
const PostsListTag = "posts:list"

// PeriodTag addresses one period of a dataset, e.g. "coe:period:2024-01".
func PeriodTag(dataset, month string) string { return dataset + ":period:" + month }

// PeriodsTag addresses the list of all periods of a dataset.
func PeriodsTag(dataset string) string { return dataset + ":periods" }

// DatasetTags are the tags touched when new rows land for a period.
func DatasetTags(dataset, month string) []string {
	return []string{PeriodTag(dataset, month), PeriodsTag(dataset)}
}

// Invalidator drops cached data addressed by tags.
type Invalidator interface {
	Invalidate(ctx context.Context, tags []string) error
}

// Invalidators fans a call out to every member and joins their errors.
type Invalidators []Invalidator

func (is Invalidators) Invalidate(ctx context.Context, tags []string) error {
	var errs []error
	for _, inv := range is {
		if inv == nil {
			continue
		}
		if err := inv.Invalidate(ctx, tags); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RevalidateError is a non-2xx answer from the revalidation endpoint.
type RevalidateError struct {
	Status int
	Body   string
}

func (e *RevalidateError) Error() string {
	return fmt.Sprintf("revalidate: status %d: %s", e.Status, e.Body)
}

func (e *RevalidateError) StatusCode() int { return e.Status }

// Revalidator asks the web app to drop its tagged caches.
type Revalidator struct {
	URL    string
	Secret string
	Client *http.Client
}

func NewRevalidator(url, secret string, client *http.Client) *Revalidator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Revalidator{URL: url, Secret: secret, Client: client}
}

func (r *Revalidator) Invalidate(ctx context.Context, tags []string) error {
	if r.URL == "" || len(tags) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string][]string{"tags": tags})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+r.Secret)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RevalidateError{Status: resp.StatusCode, Body: string(b)}
	}
	return nil
}

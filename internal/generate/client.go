package generate

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

// Request is the aggregated data for one period of one dataset.
type Request struct {
	DataType string `json:"data_type"`
	Month    string `json:"month"`
	Data     any    `json:"data"`
}

// Result is the generated content.
type Result struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// APIError is a non-2xx answer from the generation service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation service: status %d: %s", e.Status, e.Body)
}

func (e *APIError) StatusCode() int { return e.Status }

var errEmptyContent = errors.New("generation service returned empty content")

// Client calls the content generation service over JSON/HTTP.
type Client struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

func New(url, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 4 * time.Minute}
	}
	return &Client{URL: url, APIKey: apiKey, HTTP: hc}
}

func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	if c.URL == "" {
		return Result{}, errors.New("generation service url not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	hr.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		hr.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(hr)
	if err != nil {
		return Result{}, fmt.Errorf("call generation service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode generation response: %w", err)
	}
	if out.Content == "" {
		return Result{}, errEmptyContent
	}
	return out, nil
}

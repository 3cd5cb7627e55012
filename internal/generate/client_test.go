package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateOK(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(Result{Title: "COE results for Jan 2024", Content: "Premiums rose.", Model: "m1"})
	}))
	defer srv.Close()

	res, err := New(srv.URL, "k", srv.Client()).Generate(context.Background(), Request{DataType: "coe", Month: "2024-01", Data: map[string]int{"rounds": 2}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Title != "COE results for Jan 2024" || got.DataType != "coe" || got.Month != "2024-01" {
		t.Fatalf("res %+v req %+v", res, got)
	}
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", 529)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", srv.Client()).Generate(context.Background(), Request{})
	var ae *APIError
	if !errors.As(err, &ae) || ae.StatusCode() != 529 {
		t.Fatalf("expected APIError 529, got %v", err)
	}
}

func TestGenerateEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"t"}`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "", srv.Client()).Generate(context.Background(), Request{}); !errors.Is(err, errEmptyContent) {
		t.Fatalf("expected empty content error, got %v", err)
	}
}

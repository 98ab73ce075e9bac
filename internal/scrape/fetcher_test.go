package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchPage_Success(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"api_key":      q.Get("api_key"),
			"url":          q.Get("url"),
			"country_code": q.Get("country_code"),
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>page</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "secret-key", "in")
	body, err := f.FetchPage(context.Background(), "https://www.amazon.in/dp/B0?x=1&y=2")
	if err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	if body != "<html>page</html>" {
		t.Errorf("FetchPage() body = %q", body)
	}

	if gotQuery["api_key"] != "secret-key" {
		t.Errorf("api_key = %q, want secret-key", gotQuery["api_key"])
	}
	if gotQuery["country_code"] != "in" {
		t.Errorf("country_code = %q, want in", gotQuery["country_code"])
	}
	// The target URL must round-trip through percent encoding intact.
	if gotQuery["url"] != "https://www.amazon.in/dp/B0?x=1&y=2" {
		t.Errorf("url = %q, percent encoding lost", gotQuery["url"])
	}
}

func TestFetchPage_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "secret-key", "in")
	if _, err := f.FetchPage(context.Background(), "https://www.amazon.in/dp/B0"); !errors.Is(err, ErrNoResult) {
		t.Errorf("FetchPage() error = %v, want ErrNoResult", err)
	}
}

func TestFetchPage_MissingCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called without a credential")
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "", "in")
	if _, err := f.FetchPage(context.Background(), "https://www.amazon.in/dp/B0"); !errors.Is(err, ErrNoResult) {
		t.Errorf("FetchPage() error = %v, want ErrNoResult", err)
	}
}

func TestFetchPage_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	f := NewFetcher(srv.URL, "secret-key", "in")
	if _, err := f.FetchPage(context.Background(), "https://www.amazon.in/dp/B0"); !errors.Is(err, ErrNoResult) {
		t.Errorf("FetchPage() error = %v, want ErrNoResult", err)
	}
}

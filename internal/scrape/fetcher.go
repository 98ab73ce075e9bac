// Package scrape retrieves product page markup through a proxy fetch provider
// and extracts retailer prices from it.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrNoResult is returned for every fetch failure: missing credential,
// transport error, or a non-2xx response. Callers get the page markup or this
// sentinel, never a panic or a raw transport error.
var ErrNoResult = errors.New("no result from fetch provider")

// Fetcher retrieves product pages through a ScraperAPI-compatible proxy.
type Fetcher struct {
	client      *http.Client
	host        string
	apiKey      string
	countryCode string
}

func NewFetcher(host, apiKey, countryCode string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		host:        host,
		apiKey:      apiKey,
		countryCode: countryCode,
	}
}

// FetchPage returns the raw markup of the product page, or ErrNoResult.
// Failures are terminal for the invocation: no retry, no backoff.
func (f *Fetcher) FetchPage(ctx context.Context, productURL string) (string, error) {
	if f.apiKey == "" {
		slog.ErrorContext(ctx, "Scraper API key is not configured", "url", productURL)
		return "", ErrNoResult
	}

	proxyURL := fmt.Sprintf("%s?api_key=%s&url=%s&country_code=%s",
		f.host, f.apiKey, url.QueryEscape(productURL), f.countryCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build fetch request", "url", productURL, "error", err)
		return "", ErrNoResult
	}

	resp, err := f.client.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "Fetch provider request failed", "url", productURL, "error", err)
		return "", ErrNoResult
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read fetch provider response", "url", productURL, "error", err)
		return "", ErrNoResult
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.ErrorContext(ctx, "Fetch provider returned non-success status",
			"url", productURL,
			"status", resp.StatusCode,
			"body", truncate(string(body), 512))
		return "", ErrNoResult
	}

	return string(body), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

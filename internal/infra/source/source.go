// Package source provides record source adapters for accelerator directories.
// Each adapter fetches company records from one kind of upstream (a paginated
// directory site, an RSS feed, or a bundled sample set) and yields them as
// raw records through an iterator.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"startup-radar/internal/resilience/retry"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxBodySize = 10 * 1024 * 1024 // 10MB
	userAgent   = "StartupRadarBot/1.0"
)

// validateFetchURL checks if a URL is safe to fetch (SSRF prevention).
func validateFetchURL(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s (only http/https allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %s", urlStr)
	}
	return nil
}

// fetchDocument fetches and parses HTML from the given URL.
func fetchDocument(ctx context.Context, client *http.Client, urlStr string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	// Limit body size to prevent memory exhaustion
	limitedReader := io.LimitReader(resp.Body, maxBodySize)

	doc, err := goquery.NewDocumentFromReader(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

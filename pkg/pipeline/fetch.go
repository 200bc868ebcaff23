package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	fetchUserAgent = "Mozilla/5.0 (compatible; emotion-backend/1.0)"
	maxPageBytes   = 5 << 20
)

// PageFetcher downloads a URL and returns its main text.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages over HTTP and keeps recently extracted text in
// an expiring LRU cache.
type HTTPFetcher struct {
	client *http.Client
	cache  *expirable.LRU[string, string]
}

func NewHTTPFetcher(timeout time.Duration, cacheSize int, cacheTTL time.Duration) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	if cacheSize > 0 {
		f.cache = expirable.NewLRU[string, string](cacheSize, nil, cacheTTL)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	key := strings.TrimSpace(rawURL)
	if f.cache != nil {
		if text, ok := f.cache.Get(key); ok {
			return text, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	text, err := ExtractMainText(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	if f.cache != nil && text != "" {
		f.cache.Add(key, text)
	}
	return text, nil
}

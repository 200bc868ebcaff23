package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// LinkSearcher returns up to n result URLs for a query, in provider rank
// order.
type LinkSearcher interface {
	Search(ctx context.Context, query string, n int) ([]string, error)
}

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewSerpAPI(apiKey, endpoint string, timeout time.Duration) *SerpAPI {
	if endpoint == "" {
		endpoint = "https://serpapi.com/search.json"
	}
	return &SerpAPI{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *SerpAPI) Search(ctx context.Context, query string, n int) ([]string, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("api_key", s.apiKey)
	q.Set("num", strconv.Itoa(n))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed struct {
		Error          string `json:"error"`
		OrganicResults []struct {
			Link string `json:"link"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != "" && len(parsed.OrganicResults) == 0 {
		return nil, fmt.Errorf("serpapi: %s", parsed.Error)
	}

	links := make([]string, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		if r.Link != "" {
			links = append(links, r.Link)
		}
	}
	if len(links) > n {
		links = links[:n]
	}
	return links, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

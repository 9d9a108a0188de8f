// Package newsapi provides the upstream article-search client.
//
// It talks to the NewsAPI "everything" endpoint with a fixed crime-keyword
// query and converts responses into Article values for the collector.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production NewsAPI endpoint.
const DefaultBaseURL = "https://newsapi.org/v2"

// defaultTimeout bounds each search request.
const defaultTimeout = 30 * time.Second

// ErrBadStatus marks a non-2xx response from the upstream API. The wrapped
// error carries the status code; callers treat it as fatal to the run.
var ErrBadStatus = errors.New("newsapi: bad response status")

// significantCrimes is the OR'd keyword set sent as the search query.
// Narrower than the classification taxonomy; classification handles the
// rest.
var significantCrimes = []string{
	"shooting", "homicide", "murder", "mass shooting",
	"school shooting", "gun violence", "fatal", "killed",
	"stabbing", "violent crime", "assault", "robbery",
}

// Article is one news item returned by the search API. PublishedAt is kept
// as the raw ISO-8601 string; the collector owns timestamp parsing because
// a malformed value is an eligibility decision, not a transport failure.
type Article struct {
	Source      string
	Title       string
	Description string
	URL         string
	PublishedAt string
}

// CallStats describes one search call for the audit log. Populated on both
// success and failure; Status is 0 when no HTTP response was received.
type CallStats struct {
	Endpoint string
	Params   string
	Status   int
	Elapsed  time.Duration
}

// Client is the NewsAPI HTTP client. Requests are rate limited to stay
// inside the free-tier quota.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
}

// NewClient creates a Client for the given API key. An empty baseURL uses
// production.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		// NewsAPI developer tier allows 100 requests/day; one request
		// per 10 minutes with a small burst keeps well under it.
		limiter: rate.NewLimiter(rate.Every(10*time.Minute), 3),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// SearchQuery returns the fixed query string sent to the API.
func SearchQuery() string {
	q := ""
	for i, kw := range significantCrimes {
		if i > 0 {
			q += " OR "
		}
		q += kw
	}
	return q
}

// searchResponse is the wire shape of an "everything" response.
type searchResponse struct {
	Status       string `json:"status"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Everything runs one bounded search for crime articles published at or
// after since (zero time means no lower bound). The returned CallStats is
// valid even when err is non-nil so the caller can always write an audit
// row.
func (c *Client) Everything(ctx context.Context, since time.Time, pageSize int) ([]Article, CallStats, error) {
	params := url.Values{}
	params.Set("q", SearchQuery())
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(pageSize))
	if !since.IsZero() {
		params.Set("from", since.UTC().Format(time.RFC3339))
	}

	stats := CallStats{Endpoint: "everything", Params: params.Encode()}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, stats, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, stats, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	stats.Elapsed = time.Since(start)
	if err != nil {
		return nil, stats, fmt.Errorf("fetch articles: %w", err)
	}
	defer resp.Body.Close()

	stats.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, stats, fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, stats, fmt.Errorf("decode response: %w", err)
	}

	articles := make([]Article, 0, len(sr.Articles))
	for _, a := range sr.Articles {
		name := a.Source.Name
		if name == "" {
			name = "Unknown"
		}
		articles = append(articles, Article{
			Source:      name,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, stats, nil
}

// Ping checks reachability and credentials with a minimal search.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?q=test&pageSize=1", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	return nil
}

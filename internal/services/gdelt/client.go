package gdelt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the article index API.
	DefaultBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchInterval is the minimum interval between requests; the
	// upstream enforces a minimum request spacing.
	DefaultBatchInterval = 5 * time.Second

	// DefaultRetryAttempts is the number of tries per request.
	DefaultRetryAttempts = 3

	// DefaultRetryBackoff is the initial backoff, doubled per retry.
	DefaultRetryBackoff = time.Second

	// seenDateLayout is the upstream's article discovery date format.
	seenDateLayout = "20060102T150405Z"
)

// rawArticle is one entry of the upstream article list.
type rawArticle struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

// Client queries the article index API for candidate URLs.
type Client struct {
	baseURL       string
	userAgent     string
	httpClient    *http.Client
	logger        arbor.ILogger
	limiter       *rate.Limiter
	retryAttempts int
	retryBackoff  time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the request user agent.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithBatchInterval sets the minimum interval between requests.
func WithBatchInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithRetry sets the retry attempt count and initial backoff.
func WithRetry(attempts int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// NewClient creates a new article index client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:       rate.NewLimiter(rate.Every(DefaultBatchInterval), 1),
		retryAttempts: DefaultRetryAttempts,
		retryBackoff:  DefaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchArticles runs one query against the article index and returns its
// candidates. Transport faults and upstream errors are retried with
// exponential backoff; exhausting retries returns the last error rather
// than an empty list.
//
// An empty query is a caller bug, not a runtime condition.
func (c *Client) FetchArticles(ctx context.Context, query string, maxRecords int, timespan string) ([]models.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		panic("gdelt: empty query")
	}

	// The limiter spaces sequential batch requests.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		candidates, err := c.fetchOnce(ctx, query, maxRecords, timespan)
		if err == nil {
			return candidates, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}
		if c.logger != nil {
			c.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", c.retryAttempts).
				Msg("Article index request failed")
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, query string, maxRecords int, timespan string) ([]models.Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "artlist")
	params.Set("format", "json")
	if maxRecords > 0 {
		params.Set("maxrecords", strconv.Itoa(maxRecords))
	}
	if timespan != "" {
		params.Set("timespan", timespan)
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("query", query).
			Int("max_records", maxRecords).
			Msg("Article index request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Query:      query,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "json") {
		return nil, &models.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected content type %q: %s", contentType, truncate(string(body), 200)),
			Query:      query,
		}
	}

	articles, err := decodeArticles(body)
	if err != nil {
		return nil, &models.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("undecodable response: %v", err),
			Query:      query,
		}
	}

	candidates := make([]models.Candidate, 0, len(articles))
	for _, article := range articles {
		if article.URL == "" {
			continue
		}
		candidate := models.Candidate{
			URL:           article.URL,
			Title:         article.Title,
			Domain:        article.Domain,
			Language:      article.Language,
			SourceCountry: article.SourceCountry,
		}
		if article.SeenDate != "" {
			if seen, err := time.Parse(seenDateLayout, article.SeenDate); err == nil {
				candidate.SeenAt = &seen
			}
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// decodeArticles locates the article array inside a response body whose
// envelope shape is not guaranteed: a named "articles" field, a top-level
// array, or the first non-empty array among top-level fields.
func decodeArticles(body []byte) ([]rawArticle, error) {
	var envelope struct {
		Articles []rawArticle `json:"articles"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Articles) > 0 {
		return envelope.Articles, nil
	}

	var list []rawArticle
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("response is neither an object nor an array: %w", err)
	}
	for _, raw := range fields {
		var arr []rawArticle
		if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
			return arr, nil
		}
	}
	return nil, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
)

// Fetcher downloads article pages with a bounded timeout and body size.
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	maxBodySize int64
	logger      arbor.ILogger
}

// NewFetcher creates a page fetcher from extract configuration.
func NewFetcher(cfg *common.ExtractConfig, logger arbor.ILogger) *Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 10 * 1024 * 1024
	}
	return &Fetcher{
		httpClient:  &http.Client{Timeout: timeout},
		userAgent:   cfg.UserAgent,
		maxBodySize: maxBody,
		logger:      logger,
	}
}

// Fetch downloads a page and returns its HTML. Non-2xx statuses and
// non-HTML content types are errors; the body read is capped so a
// misbehaving server cannot exhaust memory.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("page returned HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !isHTMLContentType(contentType) {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("page body is empty")
	}

	return string(body), nil
}

// isHTMLContentType accepts the content types news CMSes actually serve
// for article pages, including the occasional bare text/plain.
func isHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") ||
		strings.Contains(ct, "application/xhtml") ||
		strings.Contains(ct, "text/plain")
}

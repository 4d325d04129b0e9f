package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const maxPageBytes = 5 << 20

// Extractor downloads an article page and pulls out its readable text.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// NewExtractor wires an HTTP client; a nil client gets a 20s timeout.
func NewExtractor(client *http.Client, userAgent string) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Extractor{client: client, userAgent: userAgent}
}

// Extract fetches pageURL and returns the main article text.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page url %s: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), parsed)
	if err != nil {
		return "", fmt.Errorf("extract readable content: %w", err)
	}

	text := collapseSpaces(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no readable content at %s", pageURL)
	}
	return strings.TrimSpace(text), nil
}

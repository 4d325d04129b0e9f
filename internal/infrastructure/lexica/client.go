package lexica

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/scanner"
)

const (
	scannerName       = "lexica"
	latestPath        = "/news/latest"
	summarizePath     = "/summarize"
	defaultMaxRetries = 3
	maxBodyPreview    = 512
)

// Client talks to the Lexica news API for both articles and summaries.
type Client struct {
	baseURL    string
	apiKey     string
	maxLength  int
	maxRetries int
	retryWait  time.Duration
	http       *http.Client
}

var _ ports.Summarizer = (*Client)(nil)
var _ scanner.Scanner = (*Client)(nil)

// NewClient creates a reusable HTTP client; timeout <= 0 means 15s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxRetries: defaultMaxRetries,
		retryWait:  500 * time.Millisecond,
		http:       &http.Client{Timeout: timeout},
	}
}

// WithMaxLength sets the maxLength hint sent with summarize requests.
func (c *Client) WithMaxLength(n int) *Client {
	c.maxLength = n
	return c
}

// Name identifies the strategy inside the registry.
func (c *Client) Name() string {
	return scannerName
}

type wireArticle struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl"`
	PublishedAt string `json:"publishedAt"`
	Source      string `json:"source"`
}

// Scan requests the latest articles. req.URL overrides the default endpoint,
// and the "limit" option is forwarded as a query parameter.
func (c *Client) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	endpoint := req.URL
	if endpoint == "" {
		endpoint = c.baseURL + latestPath
	}
	if limit := req.Option("limit", ""); limit != "" {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid lexica url %s: %w", endpoint, err)
		}
		q := parsed.Query()
		q.Set("limit", limit)
		parsed.RawQuery = q.Encode()
		endpoint = parsed.String()
	}

	var raw json.RawMessage
	if err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, endpoint, nil, &raw)
	}); err != nil {
		return nil, err
	}

	entries, err := decodeArticles(raw)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(entries))
	for _, entry := range entries {
		article, ok := toArticle(entry)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// Summarize requests a short summary of text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &domain.SummarizationError{Err: errors.New("empty content")}
	}

	payload := map[string]any{"content": text}
	if c.maxLength > 0 {
		payload["maxLength"] = c.maxLength
	}

	var resp struct {
		Summary string `json:"summary"`
	}
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, c.baseURL+summarizePath, payload, &resp)
	})
	if err != nil {
		return "", &domain.SummarizationError{Err: err}
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		return "", &domain.SummarizationError{Err: errors.New("empty summary")}
	}
	return summary, nil
}

func decodeArticles(raw json.RawMessage) ([]wireArticle, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []wireArticle
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode article list: %w", err)
		}
		return list, nil
	}

	var envelope struct {
		Articles []wireArticle `json:"articles"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode article envelope: %w", err)
	}
	return envelope.Articles, nil
}

func toArticle(w wireArticle) (domain.Article, bool) {
	link := strings.TrimSpace(w.URL)
	title := strings.TrimSpace(w.Title)
	if link == "" || title == "" {
		return domain.Article{}, false
	}

	id := strings.TrimSpace(w.ID)
	if id == "" {
		id = link
	}

	return domain.Article{
		ID:          id,
		Title:       title,
		Content:     w.Content,
		URL:         link,
		ImageURL:    strings.TrimSpace(w.ImageURL),
		Source:      strings.TrimSpace(w.Source),
		PublishedAt: parseTime(w.PublishedAt),
	}, true
}

var timeLayouts = []string{time.RFC3339, time.RFC3339Nano, time.RFC1123Z, time.RFC1123}

// parseTime returns the zero time when value is empty or unparseable.
func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

func (c *Client) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryWait
	policy.MaxInterval = 10 * c.retryWait
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return backoff.Permanent(err)
		}
		var decodeErr *decodeError
		if errors.As(err, &decodeErr) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return fmt.Sprintf("decode response: %v", e.err) }

func (e *decodeError) Unwrap() error { return e.err }

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, v any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("marshal payload: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyPreview))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(preview))}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

package parser

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsRelay/internal/config"
	"NewsRelay/internal/content"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/scanner"
)

// PageExtractor pulls readable text out of an article page.
type PageExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// SentChecker reports whether an article URL was already delivered.
type SentChecker interface {
	IsSent(ctx context.Context, url string) (bool, error)
}

// RSSScanner reads RSS/Atom feeds and normalises their items into articles.
type RSSScanner struct {
	client           *http.Client
	feedParser       *gofeed.Parser
	userAgent        string
	extractor        PageExtractor
	extractContent   bool
	minContentLength int
	sent             SentChecker
	logger           *slog.Logger
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client from cfg. extractor may be nil.
func NewRSSScanner(cfg config.RSSConfig, extractor PageExtractor, log *slog.Logger) *RSSScanner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &RSSScanner{
		client:           &http.Client{Timeout: timeout},
		feedParser:       gofeed.NewParser(),
		userAgent:        cfg.UserAgent,
		extractor:        extractor,
		extractContent:   cfg.ExtractContent,
		minContentLength: cfg.MinContentLength,
		logger:           log,
	}
}

// WithSentChecker skips page extraction for articles that were already
// delivered. Lookup errors fall through to extraction.
func (s *RSSScanner) WithSentChecker(c SentChecker) *RSSScanner {
	s.sent = c
	return s
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches req.URL and returns its items in feed order.
// Options: "limit" caps the number of items, "extractContent" overrides the global switch.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no feed url provided for site %s", req.SiteName)
	}

	feed, err := s.fetchFeed(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	limit := 0
	if raw := req.Option("limit", ""); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	extract := s.extractContent
	if raw := req.Option("extractContent", ""); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			extract = v
		}
	}

	articles := make([]domain.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(articles) >= limit {
			break
		}
		article, ok := normalizeItem(item)
		if !ok {
			continue
		}
		article.Source = req.SiteName
		if extract {
			s.enrich(ctx, &article)
		}
		articles = append(articles, article)
	}

	s.logger.Debug("feed scanned", "site", req.SiteName, "items", len(feed.Items), "articles", len(articles))
	return articles, nil
}

func (s *RSSScanner) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	feed, err := s.feedParser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (s *RSSScanner) enrich(ctx context.Context, article *domain.Article) {
	if s.extractor == nil || len(article.Content) >= s.minContentLength {
		return
	}
	if s.sent != nil {
		if sent, err := s.sent.IsSent(ctx, article.URL); err == nil && sent {
			return
		}
	}
	text, err := s.extractor.Extract(ctx, article.URL)
	if err != nil {
		s.logger.Debug("content extraction failed", "url", article.URL, "error", err)
		return
	}
	if len(text) > len(article.Content) {
		article.Content = text
	}
}

// normalizeItem converts a feed item; items without link or title are dropped.
func normalizeItem(item *gofeed.Item) (domain.Article, bool) {
	if item == nil {
		return domain.Article{}, false
	}
	link := strings.TrimSpace(item.Link)
	title := strings.TrimSpace(content.PlainText(item.Title))
	if link == "" || title == "" {
		return domain.Article{}, false
	}

	raw := cmp.Or(item.Content, item.Description)

	article := domain.Article{
		ID:       cmp.Or(strings.TrimSpace(item.GUID), link),
		Title:    title,
		Content:  content.PlainText(raw),
		URL:      link,
		ImageURL: itemImage(item, raw),
	}

	switch {
	case item.PublishedParsed != nil:
		article.PublishedAt = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		article.PublishedAt = *item.UpdatedParsed
	}

	return article, true
}

// itemImage picks the item image, then an image enclosure, then the first
// <img> in the content. Candidates are resolved against the item link and
// dropped unless they end up absolute http(s).
func itemImage(item *gofeed.Item, raw string) string {
	if item.Image != nil {
		if img := content.ResolveURL(item.Image.URL, item.Link); img != "" {
			return img
		}
	}
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || !strings.HasPrefix(enclosure.Type, "image/") {
			continue
		}
		if img := content.ResolveURL(enclosure.URL, item.Link); img != "" {
			return img
		}
	}
	return content.FirstImage(raw, item.Link)
}

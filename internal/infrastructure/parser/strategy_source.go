package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsRelay/internal/config"
	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
	"NewsRelay/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	if log == nil {
		log = slog.Default()
	}
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchLatest polls every configured site in order. A failing site is
// skipped; the call fails only when no site could be read. Articles are
// de-duplicated by URL, keeping the first occurrence.
func (s *StrategySource) FetchLatest(ctx context.Context) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, &domain.FetchError{Err: errors.New("scanner registry is not configured")}
	}
	if len(s.sites) == 0 {
		return nil, &domain.FetchError{Err: errors.New("no sites configured")}
	}

	s.logger.Debug("fetch latest", "sites", len(s.sites))

	var (
		aggregated []domain.Article
		failures   []error
		seen       = map[string]struct{}{}
	)
	for _, site := range s.sites {
		if err := ctx.Err(); err != nil {
			return nil, &domain.FetchError{Err: err}
		}

		results, err := s.scanSite(ctx, site)
		if err != nil {
			s.logger.Warn("site fetch failed", "site", site.Name, "scanner", site.Scanner, "error", err)
			failures = append(failures, &domain.FetchError{Source: site.Name, Err: err})
			continue
		}

		added := 0
		for _, article := range results {
			if _, dup := seen[article.URL]; dup {
				continue
			}
			seen[article.URL] = struct{}{}
			if article.Source == "" {
				article.Source = site.Name
			}
			aggregated = append(aggregated, article)
			added++
		}
		s.logger.Debug("site produced articles", "site", site.Name, "count", len(results), "added", added)
	}

	if len(failures) == len(s.sites) {
		return nil, &domain.FetchError{Err: errors.Join(failures...)}
	}

	s.logger.Debug("strategy source done", "total_articles", len(aggregated))
	if aggregated == nil {
		aggregated = []domain.Article{}
	}
	return aggregated, nil
}

func (s *StrategySource) scanSite(ctx context.Context, site config.SiteConfig) ([]domain.Article, error) {
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, err
	}

	results, err := strategy.Scan(ctx, scanner.Request{
		SiteName: site.Name,
		URL:      site.URL,
		Options:  site.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
	}
	return results, nil
}

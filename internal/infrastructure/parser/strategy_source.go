package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ThreatIngest/internal/config"
	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/ports"
	"ThreatIngest/internal/scanner"
)

// StrategySource exposes one configured site as a RecordSource backed by the
// scanner strategy the site names.
type StrategySource struct {
	strategy scanner.Scanner
	site     config.SiteConfig
	request  scanner.Request
	logger   *slog.Logger
}

var _ ports.RecordSource = (*StrategySource)(nil)

// NewStrategySources resolves a scanner for every site that lists a category
// named newsType (any category when newsType is empty). Sites without a
// matching category are left out.
func NewStrategySources(reg *scanner.Registry, sites []config.SiteConfig, newsType string, limit int, log *slog.Logger) ([]ports.RecordSource, error) {
	if reg == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	sources := make([]ports.RecordSource, 0, len(sites))
	for _, site := range sites {
		strategy, err := reg.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		categories := matchCategories(site.Categories, newsType)
		if len(categories) == 0 {
			if log != nil {
				log.Debug("site has no matching category", "site", site.Name, "news_type", newsType)
			}
			continue
		}

		sources = append(sources, &StrategySource{
			strategy: strategy,
			site:     site,
			request: scanner.Request{
				SiteName:   site.Name,
				Categories: categories,
				Options:    site.Options,
				Limit:      limit,
			},
			logger: log,
		})
	}

	return sources, nil
}

// Name returns the configured site name.
func (s *StrategySource) Name() string {
	return s.site.Name
}

// Origin is decided by the scanner: html listings are CyberNews-shaped, feeds are not.
func (s *StrategySource) Origin() string {
	return s.strategy.Origin()
}

// Fetch runs the scanner over the selected categories.
func (s *StrategySource) Fetch(ctx context.Context) ([]domain.ExternalRecord, error) {
	s.debug("scan site", "site", s.site.Name, "scanner", s.strategy.Name(), "categories", len(s.request.Categories))

	records, err := s.strategy.Scan(ctx, s.request)
	if err != nil {
		return nil, fmt.Errorf("scan site %s: %w", s.site.Name, err)
	}

	s.debug("site produced records", "site", s.site.Name, "count", len(records))
	return records, nil
}

func matchCategories(cfg []config.CategoryConfig, newsType string) []scanner.Category {
	newsType = strings.TrimSpace(newsType)
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		if newsType != "" && !strings.EqualFold(cat.Name, newsType) {
			continue
		}
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

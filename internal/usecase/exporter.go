package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/normalizer"
	"ThreatIngest/internal/ports"
)

// Export layouts.
const (
	LayoutFull    = "full"
	LayoutCompact = "compact"
)

// FullArticle is the complete exported article shape.
type FullArticle struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
	Date    string `json:"date"`
	Image   string `json:"image"`
	Source  string `json:"source"`
}

// CompactArticle is the trimmed shape stamped with the export time.
type CompactArticle struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Link      string `json:"link"`
	FetchedAt string `json:"fetched_at"`
}

// ExporterDeps wires the sources and artifact writer for a news export.
type ExporterDeps struct {
	Sources     []ports.RecordSource
	Writer      ports.ArtifactWriter
	Limit       int
	Logger      *slog.Logger
	SourceLabel string
	Now         func() time.Time
}

// Exporter fetches articles, normalizes them and writes one JSON artifact.
type Exporter struct {
	sources     []ports.RecordSource
	writer      ports.ArtifactWriter
	limit       int
	logger      *slog.Logger
	sourceLabel string
	now         func() time.Time
}

// NewExporter constructs an exporter; Now defaults to time.Now.
func NewExporter(deps ExporterDeps) *Exporter {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Exporter{
		sources:     deps.Sources,
		writer:      deps.Writer,
		limit:       deps.Limit,
		logger:      deps.Logger,
		sourceLabel: deps.SourceLabel,
		now:         now,
	}
}

// Fetch returns the normalized articles of all sources, truncated to the limit,
// without writing anything.
func (e *Exporter) Fetch(ctx context.Context) ([]domain.NormalizedRecord, error) {
	if len(e.sources) == 0 {
		return nil, fmt.Errorf("exporter has no source configured")
	}

	articles := make([]domain.NormalizedRecord, 0)
	for _, src := range e.sources {
		records, err := src.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", src.Name(), err)
		}
		articles = append(articles, normalizer.NormalizeAll(records, src.Origin(), e.sourceLabel)...)
		if e.limit > 0 && len(articles) >= e.limit {
			return articles[:e.limit], nil
		}
	}
	return articles, nil
}

// Export writes the rendered articles to path and returns them.
func (e *Exporter) Export(ctx context.Context, path, layout string) ([]domain.NormalizedRecord, error) {
	if e.writer == nil {
		return nil, fmt.Errorf("exporter has no writer configured")
	}

	articles, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	document, err := Render(articles, layout, e.now())
	if err != nil {
		return nil, err
	}

	if err := e.writer.WriteArtifact(ctx, path, document); err != nil {
		return nil, fmt.Errorf("write artifact %s: %w", path, err)
	}

	if e.logger != nil {
		e.logger.Info("articles exported", "path", path, "layout", layout, "count", len(articles))
	}
	return articles, nil
}

// Render converts normalized records into the document for layout.
func Render(records []domain.NormalizedRecord, layout string, fetchedAt time.Time) (any, error) {
	switch layout {
	case "", LayoutFull:
		out := make([]FullArticle, 0, len(records))
		for _, r := range records {
			out = append(out, FullArticle{
				ID:      r.ID,
				Title:   r.Title,
				Summary: r.Summary,
				URL:     r.URL,
				Date:    r.Date,
				Image:   r.Image,
				Source:  r.Source,
			})
		}
		return out, nil
	case LayoutCompact:
		stamp := fetchedAt.UTC().Format("2006-01-02T15:04:05.999999") + "Z"
		out := make([]CompactArticle, 0, len(records))
		for _, r := range records {
			out = append(out, CompactArticle{
				Title:     r.Title,
				Summary:   r.Summary,
				Link:      r.URL,
				FetchedAt: stamp,
			})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown export layout %q", layout)
	}
}

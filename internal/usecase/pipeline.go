package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/normalizer"
	"ThreatIngest/internal/ports"
)

// CategoryFunc picks the category label for a source; empty means the target default.
type CategoryFunc func(source ports.RecordSource) string

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Dispatcher  *Dispatcher
	Metrics     ports.MetricsRecorder
	Logger      *slog.Logger
	Category    CategoryFunc
	SourceLabel string
	Progress    func(format string, args ...any)
}

// Pipeline implements source enumeration, fetch, normalize and deliver.
type Pipeline struct {
	dispatcher  *Dispatcher
	metrics     ports.MetricsRecorder
	logger      *slog.Logger
	category    CategoryFunc
	sourceLabel string
	progress    func(format string, args ...any)
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		category:    deps.Category,
		sourceLabel: deps.SourceLabel,
		progress:    deps.Progress,
	}
}

// Run processes every source in order. Missing sources are skipped and fetch
// errors are reported per source; only a target setup failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, sources []ports.RecordSource, target domain.DeliveryTarget) ([]domain.SourceReport, error) {
	if p.dispatcher == nil {
		return nil, fmt.Errorf("pipeline has no dispatcher configured")
	}

	reports := make([]domain.SourceReport, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		report := domain.SourceReport{Source: src.Name()}

		records, err := src.Fetch(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrSourceNotFound) {
				p.printf("Warning: %s not found, skipping.", src.Name())
				p.warn("source skipped", "source", src.Name(), "error", err)
				report.Skipped = true
				if p.metrics != nil {
					p.metrics.ObserveSkipped(src.Name())
				}
			} else {
				p.printf("Error importing %s: %v", src.Name(), err)
				p.warn("source fetch failed", "source", src.Name(), "error", err)
				report.Err = err
			}
			reports = append(reports, report)
			continue
		}

		sourceTarget := target
		if p.category != nil {
			if category := p.category(src); category != "" {
				sourceTarget.Category = category
			}
		}

		p.printf("Importing %s into %s...", src.Name(), target.Name)
		normalized := normalizer.NormalizeAll(records, src.Origin(), p.sourceLabel)

		result, err := p.dispatcher.Deliver(ctx, normalized, sourceTarget)
		if err != nil {
			return reports, fmt.Errorf("deliver %s: %w", src.Name(), err)
		}
		report.Result = result
		reports = append(reports, report)

		p.printf("Imported %d/%d events from %s", result.Succeeded, result.Attempted, src.Name())
		p.debug("source delivered", "source", src.Name(), "attempted", result.Attempted, "succeeded", result.Succeeded, "failed", result.Failed())
	}

	return reports, nil
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.progress != nil {
		p.progress(format, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/ports"
)

// DispatcherDeps wires the sink and optional collaborators into a Dispatcher.
type DispatcherDeps struct {
	Sink        ports.Sink
	Encoder     Encoder
	Metrics     ports.MetricsRecorder
	Logger      *slog.Logger
	Concurrency int
}

// Dispatcher delivers normalized records one at a time and isolates per-record failures.
type Dispatcher struct {
	sink        ports.Sink
	encode      Encoder
	metrics     ports.MetricsRecorder
	logger      *slog.Logger
	concurrency int
}

// NewDispatcher builds a dispatcher; nil encoder means normalized JSON payloads.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	encode := deps.Encoder
	if encode == nil {
		encode = EncodeNormalized
	}
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		sink:        deps.Sink,
		encode:      encode,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		concurrency: concurrency,
	}
}

// Deliver ensures the target exists once and then submits every record in input order.
// Only a failure to prepare the target is returned as an error.
func (d *Dispatcher) Deliver(ctx context.Context, records []domain.NormalizedRecord, target domain.DeliveryTarget) (domain.BatchResult, error) {
	result := domain.BatchResult{Target: target.Name, Failures: []domain.Failure{}}
	if d.sink == nil {
		return result, fmt.Errorf("dispatcher has no sink configured")
	}

	if err := d.sink.EnsureTarget(ctx, target.Name); err != nil {
		return result, fmt.Errorf("ensure target %s: %w", target.Name, err)
	}

	outcomes := make([]error, len(records))
	if d.concurrency == 1 || len(records) < 2 {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				outcomes[i] = err
				continue
			}
			outcomes[i] = d.deliverOne(ctx, rec, target)
		}
	} else {
		d.deliverPipelined(ctx, records, target, outcomes)
	}

	result.Attempted = len(records)
	for i, err := range outcomes {
		if err == nil {
			result.Succeeded++
			continue
		}
		result.Failures = append(result.Failures, domain.Failure{
			Index:  i,
			Ref:    records[i].Ref(),
			Reason: err.Error(),
		})
		d.debug("record delivery failed", "target", target.Name, "index", i, "ref", records[i].Ref(), "error", err)
	}

	if d.metrics != nil {
		d.metrics.ObserveBatch(result)
	}

	return result, nil
}

// deliverPipelined keeps outcomes indexed by input position; arrival order at the sink is not guaranteed.
func (d *Dispatcher) deliverPipelined(ctx context.Context, records []domain.NormalizedRecord, target domain.DeliveryTarget, outcomes []error) {
	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for i := range records {
		i := i // per-iteration copy (go < 1.22 loop semantics)
		if err := ctx.Err(); err != nil {
			outcomes[i] = err
			continue
		}
		g.Go(func() error {
			outcomes[i] = d.deliverOne(ctx, records[i], target)
			return nil
		})
	}

	_ = g.Wait()
}

func (d *Dispatcher) deliverOne(ctx context.Context, rec domain.NormalizedRecord, target domain.DeliveryTarget) error {
	payload, err := d.encode(rec)
	if err != nil {
		return err
	}
	if err := d.sink.Submit(ctx, target.Name, payload, target.Category); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

func (d *Dispatcher) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

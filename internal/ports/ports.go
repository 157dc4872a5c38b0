package ports

import (
	"context"
	"time"

	"ThreatIngest/internal/domain"
)

// RecordSource produces a finite list of external records (a file, a site, a feed).
type RecordSource interface {
	Name() string
	Origin() string
	Fetch(ctx context.Context) ([]domain.ExternalRecord, error)
}

// Sink accepts one payload at a time for a named destination.
type Sink interface {
	// EnsureTarget creates the destination when it does not exist yet.
	EnsureTarget(ctx context.Context, name string) error
	Submit(ctx context.Context, target string, payload []byte, category string) error
}

// ArtifactWriter persists a fully rendered export document.
type ArtifactWriter interface {
	WriteArtifact(ctx context.Context, path string, document any) error
}

// MetricsRecorder observes delivery outcomes.
type MetricsRecorder interface {
	ObserveBatch(result domain.BatchResult)
	ObserveSkipped(source string)
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

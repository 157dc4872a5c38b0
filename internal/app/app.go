package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"ThreatIngest/internal/config"
	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/infrastructure/filestore"
	"ThreatIngest/internal/infrastructure/parser"
	"ThreatIngest/internal/infrastructure/scheduler"
	"ThreatIngest/internal/infrastructure/splunk"
	"ThreatIngest/internal/infrastructure/storage"
	"ThreatIngest/internal/infrastructure/streams"
	"ThreatIngest/internal/infrastructure/telegram"
	"ThreatIngest/internal/logging"
	"ThreatIngest/internal/metrics"
	"ThreatIngest/internal/normalizer"
	"ThreatIngest/internal/ports"
	"ThreatIngest/internal/scanner"
	"ThreatIngest/internal/usecase"
)

const (
	categoryPrefix = "threathunter"
	newsCategory   = categoryPrefix + ":news"
)

// SinkFactory opens the sink of the given kind; the returned func releases it.
type SinkFactory func(ctx context.Context, kind string) (ports.Sink, func(), error)

// Option customizes an Application.
type Option func(*Application)

// WithFS replaces the filesystem used for sample files, artifacts and JSONL sinks.
func WithFS(fs afero.Fs) Option {
	return func(a *Application) { a.fs = fs }
}

// WithStdout redirects progress lines and "-" artifacts.
func WithStdout(w io.Writer) Option {
	return func(a *Application) { a.stdout = w }
}

// WithHTTPClient sets the client used by site scanners.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Application) { a.httpClient = client }
}

// WithSinkFactory overrides how sinks are opened.
func WithSinkFactory(factory SinkFactory) Option {
	return func(a *Application) { a.openSink = factory }
}

// WithNow fixes the export clock.
func WithNow(now func() time.Time) Option {
	return func(a *Application) { a.now = now }
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	runID      string
	fs         afero.Fs
	stdout     io.Writer
	httpClient *http.Client
	now        func() time.Time
	metrics    *metrics.Recorder
	notifier   ports.Notifier
	openSink   SinkFactory
}

// New builds an application instance; every run gets its own id in the logs.
func New(cfg config.Config, baseLogger *slog.Logger, opts ...Option) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	runID := uuid.NewString()
	a := &Application{
		cfg:     cfg,
		logger:  baseLogger.With("run_id", runID),
		runID:   runID,
		fs:      afero.NewOsFs(),
		stdout:  os.Stdout,
		now:     time.Now,
		metrics: metrics.NewRecorder(),
	}
	a.openSink = a.defaultSink

	tg := cfg.Notifications.Telegram
	if tg.BotToken != "" && tg.ChatID != "" {
		a.notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.APIURL)
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunID identifies this application run.
func (a *Application) RunID() string {
	return a.runID
}

// Metrics exposes the delivery counters of this run.
func (a *Application) Metrics() *metrics.Recorder {
	return a.metrics
}

// Import delivers the configured sample files to the import sink.
func (a *Application) Import(ctx context.Context) ([]domain.SourceReport, error) {
	sink, release, err := a.openSink(ctx, a.cfg.Import.Sink)
	if err != nil {
		return nil, err
	}
	defer release()

	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Sink:        sink,
		Encoder:     usecase.EncoderFor(a.cfg.Import.Encoding),
		Metrics:     a.metrics,
		Logger:      a.logger.With("component", "dispatcher"),
		Concurrency: a.cfg.Import.Concurrency,
	})
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Dispatcher: dispatcher,
		Metrics:    a.metrics,
		Logger:     a.logger.With("component", "pipeline"),
		Category:   sampleCategory,
		Progress:   a.printf,
	})

	sources := make([]ports.RecordSource, 0, len(a.cfg.Import.Files))
	for _, name := range a.cfg.Import.Files {
		path := filepath.Join(a.cfg.Import.DataDir, name)
		sources = append(sources, filestore.NewFileSource(a.fs, path, normalizer.OriginEvent))
	}

	target := domain.DeliveryTarget{Name: a.cfg.ImportTarget(), Category: categoryPrefix}
	reports, err := pipeline.Run(ctx, sources, target)
	if err != nil {
		return reports, err
	}

	a.finish(ctx, "import", reports)
	a.printf("Sample data import completed.")
	return reports, nil
}

// FetchNews exports articles of the configured sites and optionally delivers them.
func (a *Application) FetchNews(ctx context.Context) ([]domain.NormalizedRecord, error) {
	registry := scanner.NewRegistry()
	registry.Register(parser.NewHTMLScanner(a.httpClient, a.logger.With("component", "scanner.html")))
	registry.Register(parser.NewJSONScanner(a.httpClient, parser.RetryPolicy{MaxRetries: 3}, a.logger.With("component", "scanner.json")))

	news := a.cfg.News
	sources, err := parser.NewStrategySources(registry, a.cfg.Sites, news.Type, news.Limit, a.logger.With("component", "source"))
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no site offers news type %q", news.Type)
	}

	exporter := usecase.NewExporter(usecase.ExporterDeps{
		Sources: sources,
		Writer:  filestore.NewArtifactWriter(a.fs, a.stdout),
		Limit:   news.Limit,
		Logger:  a.logger.With("component", "exporter"),
		Now:     a.now,
	})

	articles, err := exporter.Export(ctx, news.Output, news.Layout)
	if err != nil {
		return nil, err
	}
	if news.Output != filestore.StdoutPath {
		a.printf("✓ Exported %d articles to: %s", len(articles), news.Output)
	}

	if news.Sink == "" {
		return articles, nil
	}

	result, err := a.deliverNews(ctx, articles)
	if err != nil {
		return articles, err
	}
	a.finish(ctx, "fetch-news", []domain.SourceReport{{Source: news.Type + " news", Result: result}})
	return articles, nil
}

// ScheduleNews runs FetchNews once and then on the configured cron expression
// until ctx is cancelled.
func (a *Application) ScheduleNews(ctx context.Context) error {
	loc := a.cfg.Scheduler.Location()
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, loc)
	sched := usecase.NewScheduler(driver, func(ctx context.Context, _ time.Time) error {
		_, err := a.FetchNews(ctx)
		return err
	}, a.logger.With("component", "scheduler"))

	if _, err := a.FetchNews(ctx); err != nil {
		a.logger.Error("initial news export failed", "error", err)
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("news export scheduled", "cron", a.cfg.Scheduler.CronExpression, "next", driver.Next().In(loc).Format(time.RFC3339))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

func (a *Application) deliverNews(ctx context.Context, articles []domain.NormalizedRecord) (domain.BatchResult, error) {
	sink, release, err := a.openSink(ctx, a.cfg.News.Sink)
	if err != nil {
		return domain.BatchResult{}, err
	}
	defer release()

	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Sink:    sink,
		Encoder: usecase.EncoderFor(a.cfg.News.Encoding),
		Metrics: a.metrics,
		Logger:  a.logger.With("component", "dispatcher"),
	})

	target := domain.DeliveryTarget{Name: a.cfg.NewsTarget(), Category: newsCategory}
	result, err := dispatcher.Deliver(ctx, articles, target)
	if err != nil {
		return result, err
	}
	a.printf("Delivered %d/%d articles to %s", result.Succeeded, result.Attempted, target.Name)
	return result, nil
}

// finish prints the run report, dumps metrics and notifies; none of it is fatal.
func (a *Application) finish(ctx context.Context, command string, reports []domain.SourceReport) {
	summary := usecase.RenderReport(reports)
	a.printf("%s", summary)

	if path := a.cfg.Metrics.File; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			a.logger.Warn("metrics not written", "error", err)
		}
	}

	if a.notifier != nil {
		message := fmt.Sprintf("threatingest %s (%s)\n%s", command, a.runID, summary)
		if err := a.notifier.PublishSummary(ctx, message); err != nil {
			a.logger.Warn("summary not sent", "error", err)
		}
	}
}

func (a *Application) defaultSink(ctx context.Context, kind string) (ports.Sink, func(), error) {
	noop := func() {}

	switch kind {
	case config.SinkSplunk:
		sc := a.cfg.Splunk
		client := splunk.NewClient(splunk.Options{
			Scheme:             sc.Scheme,
			Host:               sc.Host,
			Port:               sc.Port,
			Username:           sc.Username,
			Password:           sc.Password,
			InsecureSkipVerify: sc.InsecureSkipVerify,
			ConnectRetries:     sc.ConnectRetries,
		}, a.logger.With("component", "splunk"))

		a.printf("Connecting to Splunk at %s:%d...", sc.Host, sc.Port)
		if err := client.Connect(ctx); err != nil {
			return nil, noop, err
		}
		a.printf("Connected to Splunk version %s", client.Version())
		return client, noop, nil

	case config.SinkPostgres:
		pool, err := storage.Connect(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, noop, err
		}
		return storage.NewPostgresSink(pool), pool.Close, nil

	case config.SinkRedis:
		rc := a.cfg.Redis
		client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("connect to redis at %s: %w", rc.Addr, err)
		}
		release := func() { _ = client.Close() }
		return streams.NewRedisSink(client, rc.Group, rc.MaxLen), release, nil

	case config.SinkJSONL:
		return filestore.NewJSONLSink(a.fs), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown sink %q", kind)
	}
}

// sampleCategory labels events the way Splunk searches expect:
// threathunter:<file name without extension>.
func sampleCategory(src ports.RecordSource) string {
	name := src.Name()
	return categoryPrefix + ":" + strings.TrimSuffix(name, filepath.Ext(name))
}

func (a *Application) printf(format string, args ...any) {
	if a.stdout == nil {
		return
	}
	_, _ = fmt.Fprintf(a.stdout, format+"\n", args...)
}

// IsFatal reports whether err should stop the process with a non-zero code.
// Context cancellation on shutdown is not.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

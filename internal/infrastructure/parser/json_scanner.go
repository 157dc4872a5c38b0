package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/normalizer"
	"ThreatIngest/internal/scanner"
)

// OptItemsPath names the gjson path of the article array in a feed response.
const OptItemsPath = "items_path"

var defaultItemsPaths = []string{"articles", "items", "data", "results"}

// RetryPolicy bounds retries of transient feed failures.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// JSONScanner reads JSON news APIs returning a bounded list of articles.
type JSONScanner struct {
	client *resty.Client
	retry  RetryPolicy
	logger *slog.Logger
}

var _ scanner.Scanner = (*JSONScanner)(nil)

// NewJSONScanner wraps httpClient (nil means a 20s timeout client) in resty.
func NewJSONScanner(httpClient *http.Client, policy RetryPolicy, logger *slog.Logger) *JSONScanner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}
	client := resty.NewWithClient(httpClient).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	return &JSONScanner{client: client, retry: policy, logger: logger}
}

// Name identifies the strategy inside the registry.
func (j *JSONScanner) Name() string {
	return "json"
}

// Origin selects the normalizer key table for produced records.
func (j *JSONScanner) Origin() string {
	return normalizer.OriginNewsFeed
}

// Scan requests every category endpoint and flattens the returned arrays.
func (j *JSONScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.ExternalRecord, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	var results []domain.ExternalRecord
	for _, cat := range req.Categories {
		body, err := j.fetch(ctx, cat.URL)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}

		items, err := itemsOf(body, req.Options[OptItemsPath])
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}
		j.debug("feed scanned", "site", req.SiteName, "category", cat.Name, "items", len(items))

		for _, item := range items {
			results = append(results, domain.NewExternalRecord([]byte(item.Raw)))
			if req.Limit > 0 && len(results) >= req.Limit {
				return results, nil
			}
		}
	}

	return results, nil
}

func (j *JSONScanner) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	var body []byte
	backoff := retry.WithMaxRetries(j.retry.MaxRetries, retry.NewExponential(j.retry.BaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := j.client.R().SetContext(ctx).Get(endpoint)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request feed: %w", err))
		}

		code := resp.StatusCode()
		if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("feed returned %s", resp.Status()))
		}
		if resp.IsError() {
			return fmt.Errorf("feed returned %s", resp.Status())
		}

		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func itemsOf(body []byte, path string) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("feed response is not valid json")
	}

	root := gjson.ParseBytes(body)
	if path != "" {
		res := root.Get(path)
		if !res.IsArray() {
			return nil, fmt.Errorf("feed path %q is not an array", path)
		}
		return res.Array(), nil
	}

	if root.IsArray() {
		return root.Array(), nil
	}
	for _, candidate := range defaultItemsPaths {
		if res := root.Get(candidate); res.IsArray() {
			return res.Array(), nil
		}
	}
	return nil, fmt.Errorf("feed response holds no article array")
}

func (j *JSONScanner) debug(msg string, args ...any) {
	if j.logger != nil {
		j.logger.Debug(msg, args...)
	}
}

package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"ThreatIngest/internal/domain"
	"ThreatIngest/internal/normalizer"
	"ThreatIngest/internal/scanner"
)

const userAgent = "ThreatIngest/1.0"

// Selector option keys understood by HTMLScanner.
const (
	OptItem     = "item"
	OptHeadline = "headline"
	OptSummary  = "summary"
	OptLink     = "link"
	OptDate     = "date"
	OptImage    = "image"
	OptAuthor   = "author"
)

// Defaults match the listing markup of thehackernews.com.
var defaultSelectors = map[string]string{
	OptItem:     "div.body-post",
	OptHeadline: "h2.home-title",
	OptSummary:  "div.home-desc",
	OptLink:     "a.story-link",
	OptDate:     "span.h-datetime",
	OptImage:    "img",
	OptAuthor:   "span.h-author",
}

// HTMLScanner scrapes news listing pages and emits CyberNews-shaped records.
type HTMLScanner struct {
	client *http.Client
	logger *slog.Logger
}

var _ scanner.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires an HTTP client; nil means a client with a 20s timeout.
func NewHTMLScanner(client *http.Client, logger *slog.Logger) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client, logger: logger}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Origin selects the normalizer key table for produced records.
func (h *HTMLScanner) Origin() string {
	return normalizer.OriginCyberNews
}

// Scan walks through each category page and collects listed articles.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.ExternalRecord, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	sel := selectors(req.Options)
	results := make([]domain.ExternalRecord, 0)
	seen := map[string]struct{}{}
	nextID := 1

	for _, cat := range req.Categories {
		pageURL, err := url.Parse(cat.URL)
		if err != nil {
			return nil, fmt.Errorf("category %s: invalid url %s: %w", cat.Name, cat.URL, err)
		}

		doc, err := h.fetchDocument(ctx, pageURL.String())
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}

		items := extractItems(doc, sel, pageURL)
		h.debug("category scanned", "site", req.SiteName, "category", cat.Name, "items", len(items))

		for _, item := range items {
			key := item["newsURL"].(string)
			if key == "" {
				key = item["headlines"].(string)
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			item["id"] = nextID
			nextID++
			results = append(results, domain.RecordFromMap(item))

			if req.Limit > 0 && len(results) >= req.Limit {
				return results, nil
			}
		}
	}

	return results, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractItems returns one key/value set per listed article; items without a
// headline and a link are ignored.
func extractItems(doc *goquery.Document, sel map[string]string, base *url.URL) []map[string]any {
	var items []map[string]any

	doc.Find(sel[OptItem]).Each(func(_ int, s *goquery.Selection) {
		headline := text(s, sel[OptHeadline])
		link := attr(s, sel[OptLink], "href")
		if link == "" && s.Is("a") {
			link, _ = s.Attr("href")
		}
		if headline == "" && link == "" {
			return
		}

		image := attr(s, sel[OptImage], "data-src")
		if image == "" {
			image = attr(s, sel[OptImage], "src")
		}

		items = append(items, map[string]any{
			"headlines":  headline,
			"fullNews":   text(s, sel[OptSummary]),
			"newsURL":    resolve(base, link),
			"newsDate":   cleanDate(text(s, sel[OptDate])),
			"newsImgURL": resolve(base, image),
			"author":     text(s, sel[OptAuthor]),
		})
	})

	return items
}

func selectors(options map[string]string) map[string]string {
	sel := make(map[string]string, len(defaultSelectors))
	for k, v := range defaultSelectors {
		sel[k] = v
	}
	for k, v := range options {
		if _, known := defaultSelectors[k]; known && strings.TrimSpace(v) != "" {
			sel[k] = v
		}
	}
	return sel
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(s.Find(selector).First().Text()), " ")
}

func attr(s *goquery.Selection, selector, name string) string {
	if selector == "" {
		return ""
	}
	value, _ := s.Find(selector).First().Attr(name)
	return strings.TrimSpace(value)
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// cleanDate drops the icon-font glyphs some listings prefix to the date text.
func cleanDate(value string) string {
	return strings.TrimLeftFunc(value, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.Is(unicode.Co, r)
	})
}

func (h *HTMLScanner) debug(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, args...)
	}
}

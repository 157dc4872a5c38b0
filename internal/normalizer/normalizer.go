// Package normalizer maps loosely shaped external records onto domain.NormalizedRecord.
package normalizer

import (
	"strings"

	"github.com/tidwall/gjson"

	"ThreatIngest/internal/domain"
)

// Normalize maps record with the table of its origin. It never fails: missing or
// malformed values become empty strings.
func Normalize(record domain.ExternalRecord, origin, sourceLabel string) domain.NormalizedRecord {
	return NormalizeWith(record, KeyMapFor(origin), origin, sourceLabel)
}

// NormalizeWith maps record with an explicit key table.
func NormalizeWith(record domain.ExternalRecord, km KeyMap, origin, sourceLabel string) domain.NormalizedRecord {
	out := domain.NormalizedRecord{
		ID:      lookupString(record, km.ID),
		Title:   lookupString(record, km.Title),
		Summary: lookupString(record, km.Summary),
		URL:     lookupString(record, km.URL),
		Date:    lookupString(record, km.Date),
		Image:   lookupString(record, km.Image),
		Source:  lookupString(record, km.Source),
		Origin:  origin,
		Raw:     record.Raw(),
	}

	if out.Source == "" {
		out.Source = strings.TrimSpace(sourceLabel)
	}
	if out.Source == "" {
		out.Source = km.DefaultSource
	}

	return out
}

// NormalizeAll keeps a one-to-one, order-preserving mapping between input and output.
func NormalizeAll(records []domain.ExternalRecord, origin, sourceLabel string) []domain.NormalizedRecord {
	km := KeyMapFor(origin)
	out := make([]domain.NormalizedRecord, len(records))
	for i, rec := range records {
		out[i] = NormalizeWith(rec, km, origin, sourceLabel)
	}
	return out
}

func lookupString(record domain.ExternalRecord, paths []string) string {
	for _, path := range paths {
		res := record.Lookup(path)
		if !res.Exists() || res.Type == gjson.Null {
			continue
		}
		if value := stringify(res); value != "" {
			return value
		}
	}
	return ""
}

func stringify(res gjson.Result) string {
	switch res.Type {
	case gjson.String:
		return strings.TrimSpace(res.Str)
	case gjson.Number:
		return res.String()
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.JSON:
		return strings.TrimSpace(res.Raw)
	default:
		return ""
	}
}

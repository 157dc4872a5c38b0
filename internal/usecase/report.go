package usecase

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"ThreatIngest/internal/domain"
)

const (
	refWidth        = 40
	maxListedErrors = 5
)

// Totals aggregates all source reports of a run.
type Totals struct {
	Sources   int
	Skipped   int
	Errored   int
	Attempted int
	Succeeded int
	Failed    int
}

// Summarize adds up per-source results.
func Summarize(reports []domain.SourceReport) Totals {
	t := Totals{Sources: len(reports)}
	for _, r := range reports {
		switch {
		case r.Skipped:
			t.Skipped++
		case r.Err != nil:
			t.Errored++
		}
		t.Attempted += r.Result.Attempted
		t.Succeeded += r.Result.Succeeded
		t.Failed += r.Result.Failed()
	}
	return t
}

// RenderReport formats a human-readable run summary.
func RenderReport(reports []domain.SourceReport) string {
	var b strings.Builder
	for _, r := range reports {
		switch {
		case r.Skipped:
			fmt.Fprintf(&b, "%s: skipped (not found)\n", r.Source)
		case r.Err != nil:
			fmt.Fprintf(&b, "%s: error: %v\n", r.Source, r.Err)
		default:
			fmt.Fprintf(&b, "%s: %d/%d delivered to %s\n", r.Source, r.Result.Succeeded, r.Result.Attempted, r.Result.Target)
			for i, f := range r.Result.Failures {
				if i == maxListedErrors {
					fmt.Fprintf(&b, "  ... %d more failures\n", len(r.Result.Failures)-maxListedErrors)
					break
				}
				fmt.Fprintf(&b, "  #%d %s: %s\n", f.Index, runewidth.Truncate(f.Ref, refWidth, "..."), f.Reason)
			}
		}
	}

	t := Summarize(reports)
	fmt.Fprintf(&b, "total: %d sources, %d skipped, %d errored, %d/%d records delivered, %d failed",
		t.Sources, t.Skipped, t.Errored, t.Succeeded, t.Attempted, t.Failed)
	return b.String()
}

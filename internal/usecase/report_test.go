package usecase

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ThreatIngest/internal/domain"
)

func TestRenderReport(t *testing.T) {
	t.Parallel()

	failures := make([]domain.Failure, 0, 7)
	for i := 0; i < 7; i++ {
		failures = append(failures, domain.Failure{Index: i, Ref: fmt.Sprintf("ref-%d", i), Reason: "rejected"})
	}
	failures[0].Ref = strings.Repeat("x", 60)

	reports := []domain.SourceReport{
		{Source: "security_events.json", Result: domain.BatchResult{Target: "main", Attempted: 10, Succeeded: 3, Failures: failures}},
		{Source: "network_traffic.json", Skipped: true},
		{Source: "endpoint_data.json", Err: errors.New("invalid character")},
	}

	out := RenderReport(reports)

	assert.Contains(t, out, "security_events.json: 3/10 delivered to main")
	assert.Contains(t, out, "... 2 more failures")
	assert.Contains(t, out, strings.Repeat("x", 37)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 41))
	assert.Contains(t, out, "network_traffic.json: skipped (not found)")
	assert.Contains(t, out, "endpoint_data.json: error: invalid character")
	assert.True(t, strings.HasSuffix(out, "total: 3 sources, 1 skipped, 1 errored, 3/10 records delivered, 7 failed"))
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Totals{}, Summarize(nil))
	assert.Equal(t, "total: 0 sources, 0 skipped, 0 errored, 0/0 records delivered, 0 failed", RenderReport(nil))
}

package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ThreatIngest/internal/scanner"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
}

func TestJSONScannerRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","articles":[{"title":"A","source":{"name":"Wire"}},{"title":"B"},{"title":"C"}]}`))
	}))
	defer server.Close()

	sc := NewJSONScanner(server.Client(), fastRetry(), nil)
	records, err := sc.Scan(context.Background(), scanner.Request{
		SiteName:   "newsapi",
		Categories: []scanner.Category{{Name: "security", URL: server.URL}},
		Limit:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Lookup("title").String())
	assert.Equal(t, "Wire", records[0].Lookup("source.name").String())
}

func TestJSONScannerDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	sc := NewJSONScanner(server.Client(), fastRetry(), nil)
	_, err := sc.Scan(context.Background(), scanner.Request{
		SiteName:   "newsapi",
		Categories: []scanner.Category{{Name: "security", URL: server.URL}},
	})

	assert.ErrorContains(t, err, "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestItemsOf(t *testing.T) {
	t.Parallel()

	items, err := itemsOf([]byte(`[{"a":1},{"a":2}]`), "")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = itemsOf([]byte(`{"feed":{"entries":[{"a":1}]}}`), "feed.entries")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = itemsOf([]byte(`{"items":[]}`), "")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = itemsOf([]byte(`{"message":"nope"}`), "")
	assert.Error(t, err)

	_, err = itemsOf([]byte(`<html>`), "")
	assert.Error(t, err)

	_, err = itemsOf([]byte(`{"feed":{}}`), "feed")
	assert.Error(t, err)
}

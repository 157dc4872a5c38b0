package filestore

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLSinkAppends(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	sink := NewJSONLSink(fs)
	ctx := context.Background()
	target := "spool/events.jsonl"

	require.NoError(t, sink.EnsureTarget(ctx, target))
	require.NoError(t, sink.Submit(ctx, target, []byte(`{"event_id": "1"}`), "threathunter:security_events"))
	require.NoError(t, sink.EnsureTarget(ctx, target), "ensure on an existing file keeps its content")
	require.NoError(t, sink.Submit(ctx, target, []byte(`{"event_id":"2"}`), "threathunter:security_events"))

	raw, err := afero.ReadFile(fs, target)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"category":"threathunter:security_events","payload":{"event_id":"1"}}`, lines[0])
	assert.Equal(t, `{"category":"threathunter:security_events","payload":{"event_id":"2"}}`, lines[1])
}

func TestJSONLSinkRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	sink := NewJSONLSink(fs)
	ctx := context.Background()
	require.NoError(t, sink.EnsureTarget(ctx, "out.jsonl"))

	err := sink.Submit(ctx, "out.jsonl", []byte(`{not json`), "c")
	assert.ErrorContains(t, err, "encode line")

	raw, err := afero.ReadFile(fs, "out.jsonl")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestJSONLSinkSubmitWithoutEnsure(t *testing.T) {
	t.Parallel()

	err := NewJSONLSink(afero.NewMemMapFs()).Submit(context.Background(), "missing.jsonl", []byte(`{}`), "c")
	assert.ErrorContains(t, err, "open missing.jsonl")
}

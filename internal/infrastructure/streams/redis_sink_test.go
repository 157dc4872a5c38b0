package streams

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSinkEnsureCreatesStreamAndGroup(t *testing.T) {
	t.Parallel()

	_, client := newClient(t)
	sink := NewRedisSink(client, "", 0)
	ctx := context.Background()

	require.NoError(t, sink.EnsureTarget(ctx, "threathunter:events"))
	require.NoError(t, sink.EnsureTarget(ctx, "threathunter:events"))

	err := client.XGroupCreate(ctx, "threathunter:events", DefaultGroup, "$").Err()
	assert.ErrorContains(t, err, "BUSYGROUP")
}

func TestRedisSinkSubmit(t *testing.T) {
	t.Parallel()

	_, client := newClient(t)
	sink := NewRedisSink(client, "analysts", 0)
	ctx := context.Background()

	require.NoError(t, sink.EnsureTarget(ctx, "events"))
	require.NoError(t, sink.Submit(ctx, "events", []byte(`{"event_id":"1"}`), "threathunter:endpoint_data"))
	require.NoError(t, sink.Submit(ctx, "events", []byte(`{"event_id":"2"}`), "threathunter:endpoint_data"))

	entries, err := client.XRange(ctx, "events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "threathunter:endpoint_data", entries[0].Values["category"])
	assert.Equal(t, `{"event_id":"1"}`, entries[0].Values["payload"])
	assert.Equal(t, `{"event_id":"2"}`, entries[1].Values["payload"])
}

func TestRedisSinkEnsureKeepsExistingStream(t *testing.T) {
	t.Parallel()

	_, client := newClient(t)
	ctx := context.Background()
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "events", Values: map[string]any{"k": "v"}}).Err())

	sink := NewRedisSink(client, "", 0)
	require.NoError(t, sink.EnsureTarget(ctx, "events"))

	n, err := client.XLen(ctx, "events").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisSinkErrors(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	sink := NewRedisSink(client, "", 0)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "plain", "string", 0).Err())
	err := sink.Submit(ctx, "plain", []byte(`{}`), "c")
	assert.ErrorContains(t, err, "append to stream plain")

	mr.Close()
	assert.ErrorContains(t, sink.EnsureTarget(ctx, "events"), "lookup stream events")
}

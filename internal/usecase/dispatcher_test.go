package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ThreatIngest/internal/domain"
)

func normalizedBatch(n int) []domain.NormalizedRecord {
	out := make([]domain.NormalizedRecord, n)
	for i := range out {
		out[i] = domain.NormalizedRecord{
			ID:     fmt.Sprintf("r%d", i),
			Title:  fmt.Sprintf("title-%d", i),
			Source: "CyberNews",
			Raw:    []byte(fmt.Sprintf(`{"n":%d}`, i)),
		}
	}
	return out
}

func TestDispatcherDeliverEmptyBatch(t *testing.T) {
	t.Parallel()

	sink := newFakeSink()
	d := NewDispatcher(DispatcherDeps{Sink: sink})

	res, err := d.Deliver(context.Background(), nil, domain.DeliveryTarget{Name: "main"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Attempted)
	assert.Equal(t, 0, res.Succeeded)
	assert.NotNil(t, res.Failures)
	assert.Empty(t, res.Failures)
}

func TestDispatcherCreatesMissingTargetOnce(t *testing.T) {
	t.Parallel()

	sink := newFakeSink()
	d := NewDispatcher(DispatcherDeps{Sink: sink})

	res, err := d.Deliver(context.Background(), normalizedBatch(4), domain.DeliveryTarget{Name: "threats", Category: "threathunter:test"})
	require.NoError(t, err)

	assert.Equal(t, []string{"threats"}, sink.ensured)
	assert.Equal(t, []string{"threats"}, sink.created)
	assert.Equal(t, 4, res.Succeeded)
	require.Len(t, sink.submitted, 4)
	assert.Equal(t, "threathunter:test", sink.submitted[0].category)
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	t.Parallel()

	sink := newFakeSink("main")
	sink.failWhen = failContaining(`"title-1"`)
	records := normalizedBatch(5)
	records[3].Title = "title-1"

	d := NewDispatcher(DispatcherDeps{Sink: sink})
	res, err := d.Deliver(context.Background(), records, domain.DeliveryTarget{Name: "main"})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Attempted)
	assert.Equal(t, 3, res.Succeeded)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, "r1", res.Failures[0].Ref)
	assert.Contains(t, res.Failures[0].Reason, "rejected by destination")
	assert.Equal(t, 3, res.Failures[1].Index)
	assert.Equal(t, res.Attempted, res.Succeeded+res.Failed())
}

func TestDispatcherPreservesInputOrder(t *testing.T) {
	t.Parallel()

	sink := newFakeSink("main")
	d := NewDispatcher(DispatcherDeps{Sink: sink, Encoder: EncodeRaw})

	_, err := d.Deliver(context.Background(), normalizedBatch(6), domain.DeliveryTarget{Name: "main"})
	require.NoError(t, err)

	require.Len(t, sink.submitted, 6)
	for i, sub := range sink.submitted {
		assert.Equal(t, fmt.Sprintf(`{"n":%d}`, i), sub.payload)
	}
}

func TestDispatcherMalformedRawPayload(t *testing.T) {
	t.Parallel()

	sink := newFakeSink("main")
	records := normalizedBatch(3)
	records[1].Raw = []byte(`{"broken":`)

	d := NewDispatcher(DispatcherDeps{Sink: sink, Encoder: EncodeRaw})
	res, err := d.Deliver(context.Background(), records, domain.DeliveryTarget{Name: "main"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0].Reason, ErrMalformedPayload.Error())
}

func TestDispatcherEnsureFailureIsFatal(t *testing.T) {
	t.Parallel()

	sink := newFakeSink()
	sink.ensureErr = errors.New("401 unauthorized")

	d := NewDispatcher(DispatcherDeps{Sink: sink})
	_, err := d.Deliver(context.Background(), normalizedBatch(2), domain.DeliveryTarget{Name: "main"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure target main")
	assert.Empty(t, sink.submitted)
}

func TestDispatcherPipelinedKeepsCounts(t *testing.T) {
	t.Parallel()

	sink := newFakeSink("main")
	records := normalizedBatch(20)
	for i := range records {
		if i%4 == 0 {
			records[i].Title = "poison"
		}
	}
	sink.failWhen = failContaining("poison")
	metrics := &fakeMetrics{}

	d := NewDispatcher(DispatcherDeps{Sink: sink, Concurrency: 4, Metrics: metrics})
	res, err := d.Deliver(context.Background(), records, domain.DeliveryTarget{Name: "main"})
	require.NoError(t, err)

	assert.Equal(t, 20, res.Attempted)
	assert.Equal(t, 15, res.Succeeded)
	require.Len(t, res.Failures, 5)
	for i, f := range res.Failures {
		assert.Equal(t, i*4, f.Index)
	}
	require.Len(t, metrics.batches, 1)
	assert.Equal(t, 15, metrics.batches[0].Succeeded)
}

func TestDispatcherCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newFakeSink("main")
	d := NewDispatcher(DispatcherDeps{Sink: sink})
	res, err := d.Deliver(ctx, normalizedBatch(3), domain.DeliveryTarget{Name: "main"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 0, res.Succeeded)
	assert.Len(t, res.Failures, 3)
	assert.Empty(t, sink.submitted)
}

func TestDispatcherWithoutSink(t *testing.T) {
	t.Parallel()

	_, err := NewDispatcher(DispatcherDeps{}).Deliver(context.Background(), nil, domain.DeliveryTarget{Name: "x"})
	assert.Error(t, err)
}

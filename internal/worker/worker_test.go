package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsight/spectral-etl/internal/adapter/kafka"
	"github.com/fieldsight/spectral-etl/internal/domain"
	"github.com/fieldsight/spectral-etl/internal/observability"
	"github.com/fieldsight/spectral-etl/internal/worker"
)

// --- mocks ---

type mockSource struct {
	units   []kafka.Unit
	index   atomic.Int64
	commits atomic.Int64
}

func (m *mockSource) Fetch(ctx context.Context) (kafka.Unit, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.units) {
		// Block until cancelled, simulating an idle partition.
		<-ctx.Done()
		return kafka.Unit{}, ctx.Err()
	}
	return m.units[i], nil
}

func (m *mockSource) Commit(_ context.Context, _ kafka.Unit) error {
	m.commits.Add(1)
	return nil
}

type mockSink struct {
	written []domain.Outcome
	err     error
}

func (m *mockSink) Write(_ context.Context, outcome domain.Outcome) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, outcome)
	return nil
}

type mockEngine struct {
	err error
}

func (m *mockEngine) Materialize(_ context.Context, key domain.PartitionKey, kind domain.IndexKind) (domain.Outcome, error) {
	if m.err != nil {
		return domain.Outcome{}, m.err
	}
	return domain.NewSucceededOutcome(key, kind, "k.parquet", "s3://b/k.parquet", "catalog/items/x.json"), nil
}

func unitFor(key string) kafka.Unit {
	parsed, err := domain.ParsePartitionKey(key)
	if err != nil {
		panic(err)
	}
	return kafka.Unit{Key: parsed}
}

// --- tests ---

func TestWorker_Run_ProcessesEveryIndexKind(t *testing.T) {
	src := &mockSource{units: []kafka.Unit{unitFor("2025-06-01|field-7")}}
	sink := &mockSink{}
	metrics := observability.NewMetricsForTesting()

	w := worker.New(src, sink, &mockEngine{}, domain.AllIndexKinds, slog.Default(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx))

	require.Len(t, sink.written, 2)
	assert.Equal(t, domain.Vegetation, sink.written[0].Index)
	assert.Equal(t, domain.Moisture, sink.written[1].Index)
	assert.Equal(t, int64(1), src.commits.Load())
	assert.NoError(t, w.CheckReadiness(context.Background()))
}

func TestWorker_Run_ContextCancellation(t *testing.T) {
	src := &mockSource{}
	sink := &mockSink{}

	w := worker.New(src, sink, &mockEngine{}, domain.AllIndexKinds, slog.Default(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, w.Run(ctx))
	assert.Empty(t, sink.written)
	assert.Error(t, w.CheckReadiness(context.Background()))
}

func TestWorker_Run_ConfigFaultStillCommits(t *testing.T) {
	src := &mockSource{units: []kafka.Unit{unitFor("2025-06-01|ghost")}}
	sink := &mockSink{}

	w := worker.New(src, sink, &mockEngine{err: errors.New("field not found: ghost")},
		domain.AllIndexKinds, slog.Default(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx))

	assert.Empty(t, sink.written)
	assert.Equal(t, int64(1), src.commits.Load())
}

func TestWorker_Run_SinkFailureLeavesUnitUncommitted(t *testing.T) {
	src := &mockSource{units: []kafka.Unit{unitFor("2025-06-01|field-7")}}
	sink := &mockSink{err: errors.New("broker unavailable")}

	w := worker.New(src, sink, &mockEngine{}, domain.AllIndexKinds, slog.Default(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, int64(0), src.commits.Load())
}

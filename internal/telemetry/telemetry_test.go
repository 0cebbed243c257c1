package telemetry

import (
	"context"
	"testing"
)

func TestIncCounterDoesNotPanicWithoutAMeterProviderInstalled(t *testing.T) {
	m := New()
	m.IncCounter(context.Background(), ChunksEmbedded, map[string]string{"project": "/a"})
	m.AddCounter(context.Background(), ChunksFailed, 3, nil)
	m.ObserveHistogram(context.Background(), IndexerDurationMs, 12.5, nil)
}

func TestNilMetricsIsANoOp(t *testing.T) {
	var m *Metrics
	m.IncCounter(context.Background(), ChunksEmbedded, nil)
	m.ObserveHistogram(context.Background(), IndexerDurationMs, 1, nil)
}

func TestInstrumentsAreCachedAcrossCalls(t *testing.T) {
	m := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m.IncCounter(ctx, BatchesUpserted, nil)
	}
	if _, ok := m.counters[BatchesUpserted]; !ok {
		t.Fatal("expected counter to be cached after first use")
	}
}

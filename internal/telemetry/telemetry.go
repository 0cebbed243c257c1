// Package telemetry is a thin, lazily-instrument-caching adapter over
// OpenTelemetry metrics, grounded on the teacher's internal/rag/obs.OtelMetrics.
// Unlike the teacher, steward has no service layer to define a Metrics
// interface for; this package is called directly from the indexer. The two
// outbound HTTP clients record nothing through it.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics caches OTel instruments by name so call sites don't need to hold
// onto a typed handle. With no MeterProvider installed by the caller, the
// global API falls back to a no-op implementation, so this is always safe
// to use unconditionally.
type Metrics struct {
	meter metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// New constructs a Metrics instance reading from the global MeterProvider
// under the "steward" instrumentation name.
func New() *Metrics {
	return &Metrics{
		meter:      otel.Meter("steward"),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// IncCounter increments a named counter by one, creating it on first use.
func (m *Metrics) IncCounter(ctx context.Context, name string, labels map[string]string) {
	if m == nil {
		return
	}
	c, ok := m.getCounter(name)
	if !ok {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(toAttrs(labels)...))
}

// AddCounter adds n to a named counter, creating it on first use.
func (m *Metrics) AddCounter(ctx context.Context, name string, n int64, labels map[string]string) {
	if m == nil {
		return
	}
	c, ok := m.getCounter(name)
	if !ok {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(toAttrs(labels)...))
}

// ObserveHistogram records one value into a named histogram, creating it on
// first use.
func (m *Metrics) ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string) {
	if m == nil {
		return
	}
	h, ok := m.getHistogram(name)
	if !ok {
		return
	}
	h.Record(ctx, value, metric.WithAttributes(toAttrs(labels)...))
}

func (m *Metrics) getCounter(name string) (metric.Int64Counter, bool) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.counters[name]; ok {
		return c, true
	}
	ctr, err := m.meter.Int64Counter(name)
	if err != nil {
		return ctr, false
	}
	m.counters[name] = ctr
	return ctr, true
}

func (m *Metrics) getHistogram(name string) (metric.Float64Histogram, bool) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if ok {
		return h, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok = m.histograms[name]; ok {
		return h, true
	}
	hist, err := m.meter.Float64Histogram(name)
	if err != nil {
		return hist, false
	}
	m.histograms[name] = hist
	return hist, true
}

func toAttrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}

// Instrument names recorded by the indexer.
const (
	ChunksEmbedded    = "steward.chunks.embedded"
	ChunksFailed      = "steward.chunks.failed"
	BatchesUpserted   = "steward.batches.upserted"
	IndexerDurationMs = "steward.indexer.duration_ms"
)

package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the int64 sum data point carrying key=value.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	t.Fatalf("metric %q: no data point with %s=%s", name, key, value)
	return 0
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordReload(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordReload(ctx, "quotes", 120*time.Millisecond, nil)
	m.RecordReload(ctx, "quotes", 80*time.Millisecond, nil)
	m.RecordReload(ctx, "clips", time.Millisecond, errors.New("gone"))

	rm := collect(t, reader)
	if got := sumFor(t, rm, "citabot.reload.count", "status", StatusOK); got != 2 {
		t.Errorf("ok reloads = %d, want 2", got)
	}
	if got := sumFor(t, rm, "citabot.reload.count", "status", StatusError); got != 1 {
		t.Errorf("failed reloads = %d, want 1", got)
	}

	met := findMetric(rm, "citabot.reload.duration")
	if met == nil {
		t.Fatal("citabot.reload.duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("citabot.reload.duration is not a histogram")
	}
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	if total != 3 {
		t.Errorf("reload duration samples = %d, want 3", total)
	}
}

func TestQuotesLoadedGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.QuotesLoaded.Record(ctx, 12)
	m.QuotesLoaded.Record(ctx, 7)

	met := findMetric(collect(t, reader), "citabot.quotes.loaded")
	if met == nil {
		t.Fatal("citabot.quotes.loaded not found")
	}
	g, ok := met.Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatal("citabot.quotes.loaded is not an int64 gauge")
	}
	if len(g.DataPoints) != 1 || g.DataPoints[0].Value != 7 {
		t.Errorf("gauge points = %+v, want single value 7", g.DataPoints)
	}
}

func TestRecordPlaybackAndCommand(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordPlayback(ctx, "completed")
	m.RecordPlayback(ctx, "busy")
	m.RecordPlayback(ctx, "completed")
	m.RecordCommand(ctx, "citation", nil)
	m.RecordCommand(ctx, "citation", errors.New("boom"))
	m.ActivePlayback.Add(ctx, 1)
	m.ActivePlayback.Add(ctx, -1)

	rm := collect(t, reader)
	if got := sumFor(t, rm, "citabot.playback.sessions", "outcome", "completed"); got != 2 {
		t.Errorf("completed sessions = %d, want 2", got)
	}
	if got := sumFor(t, rm, "citabot.commands", "status", StatusError); got != 1 {
		t.Errorf("failed commands = %d, want 1", got)
	}

	met := findMetric(rm, "citabot.playback.active")
	if met == nil {
		t.Fatal("citabot.playback.active not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 0 {
		t.Errorf("active playback = %+v, want 0", sum.DataPoints)
	}
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}

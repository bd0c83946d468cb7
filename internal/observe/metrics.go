// Package observe provides application-wide observability primitives for
// citabot: OpenTelemetry metrics, tracing, trace-aware logging and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed to
// Prometheus through the exporter bridge set up by [InitProvider]. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all citabot metrics.
const meterName = "github.com/MrWong99/citabot"

// Status attribute values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Quotes ---

	// QuotesLoaded is the number of records in the current quote snapshot.
	QuotesLoaded metric.Int64Gauge

	// --- Reloads ---

	// Reloads counts reload attempts. Attributes: kind (quotes|clips), status.
	Reloads metric.Int64Counter

	// ReloadDuration tracks reload latency. Attributes: kind.
	ReloadDuration metric.Float64Histogram

	// --- Playback ---

	// PlaybackSessions counts finished playback requests. Attributes: outcome.
	PlaybackSessions metric.Int64Counter

	// PlaybackConnectDuration tracks time from connect start to first frame.
	PlaybackConnectDuration metric.Float64Histogram

	// PlaybackDuration tracks wall-clock time spent streaming a clip.
	PlaybackDuration metric.Float64Histogram

	// ActivePlayback is the number of sessions not yet closed.
	ActivePlayback metric.Int64UpDownCounter

	// --- Discord ---

	// Commands counts handled commands and interactions. Attributes:
	// command, status.
	Commands metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks ops endpoint latency. Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// channel history scans and voice handshakes.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// playbackBuckets covers typical clip lengths in seconds.
var playbackBuckets = []float64{
	0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.QuotesLoaded, err = m.Int64Gauge("citabot.quotes.loaded",
		metric.WithDescription("Number of quotes in the current snapshot."),
	); err != nil {
		return nil, err
	}

	if met.Reloads, err = m.Int64Counter("citabot.reload.count",
		metric.WithDescription("Total reloads by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ReloadDuration, err = m.Float64Histogram("citabot.reload.duration",
		metric.WithDescription("Latency of quote and clip reloads."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.PlaybackSessions, err = m.Int64Counter("citabot.playback.sessions",
		metric.WithDescription("Total playback requests by outcome."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackConnectDuration, err = m.Float64Histogram("citabot.playback.connect.duration",
		metric.WithDescription("Time from voice connect to the first frame sent."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("citabot.playback.duration",
		metric.WithDescription("Time spent streaming a clip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(playbackBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActivePlayback, err = m.Int64UpDownCounter("citabot.playback.active",
		metric.WithDescription("Number of playback sessions not yet closed."),
	); err != nil {
		return nil, err
	}

	if met.Commands, err = m.Int64Counter("citabot.commands",
		metric.WithDescription("Total commands and interactions by name and status."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("citabot.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordReload records one reload attempt of kind ("quotes" or "clips").
func (m *Metrics) RecordReload(ctx context.Context, kind string, d time.Duration, err error) {
	m.Reloads.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status(err)),
		),
	)
	m.ReloadDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordPlayback records the outcome of one playback request, e.g.
// "completed", "not_in_voice", "busy" or "connect_timeout".
func (m *Metrics) RecordPlayback(ctx context.Context, outcome string) {
	m.PlaybackSessions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordCommand records one handled command or interaction.
func (m *Metrics) RecordCommand(ctx context.Context, command string, err error) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("status", status(err)),
		),
	)
}

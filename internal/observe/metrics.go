// Package observe holds the OpenTelemetry instruments recorded by the
// translation pipeline and the Prometheus bridge that exposes them on /metrics.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/satriahrh/vaani"

// Metrics holds the instruments used by the pipeline and the transports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// StageDuration tracks latency of each remote stage. Attributes: stage, status.
	StageDuration metric.Float64Histogram

	// Runs counts finished pipeline runs. Attributes: status, kind.
	Runs metric.Int64Counter

	// ActiveSessions tracks live translator sessions.
	ActiveSessions metric.Int64UpDownCounter

	// LiveAudioHandles tracks playable handles currently held by sessions.
	LiveAudioHandles metric.Int64UpDownCounter

	// HTTPRequestDuration tracks API latency. Attributes: method, route, code.
	HTTPRequestDuration metric.Float64Histogram
}

// stage latencies are dominated by remote AI services
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60,
}

// NewMetrics creates all instruments from the given provider
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("vaani.stage.duration",
		metric.WithDescription("Latency of transcription, translation and synthesis calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("vaani.pipeline.runs",
		metric.WithDescription("Finished pipeline runs by status and error kind."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("vaani.active_sessions",
		metric.WithDescription("Number of open translator sessions."),
	); err != nil {
		return nil, err
	}
	if met.LiveAudioHandles, err = m.Int64UpDownCounter("vaani.audio.live_handles",
		metric.WithDescription("Number of playable audio handles held by sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("vaani.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status code."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// NewNoopMetrics returns instruments that discard every measurement
func NewNoopMetrics() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return met
}

// RecordStage records how long a stage took and whether it failed
func (m *Metrics) RecordStage(ctx context.Context, stage string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StageDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordRun counts a finished run
func (m *Metrics) RecordRun(ctx context.Context, status, kind string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("status", status)}
	if kind != "" {
		attrs = append(attrs, attribute.String("kind", kind))
	}
	m.Runs.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// SessionOpened increments the active session gauge
func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionClosed decrements the active session gauge
func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}

// HandleAcquired increments the live handle gauge
func (m *Metrics) HandleAcquired(ctx context.Context) {
	if m == nil {
		return
	}
	m.LiveAudioHandles.Add(ctx, 1)
}

// HandleReleased decrements the live handle gauge
func (m *Metrics) HandleReleased(ctx context.Context) {
	if m == nil {
		return
	}
	m.LiveAudioHandles.Add(ctx, -1)
}

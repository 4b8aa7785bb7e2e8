package observe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

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

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

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

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "transcribe", 120*time.Millisecond, nil)
	m.RecordStage(ctx, "transcribe", 80*time.Millisecond, errors.New("boom"))
	m.RecordStage(ctx, "translate", 40*time.Millisecond, nil)

	met := findMetric(collect(t, reader), "vaani.stage.duration")
	if met == nil {
		t.Fatal("vaani.stage.duration not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("vaani.stage.duration is not a histogram")
	}
	if len(hist.DataPoints) != 3 {
		t.Errorf("Expected 3 attribute sets, got %d", len(hist.DataPoints))
	}
}

func TestRecordRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, "succeeded", "")
	m.RecordRun(ctx, "succeeded", "")
	m.RecordRun(ctx, "failed", "service")

	met := findMetric(collect(t, reader), "vaani.pipeline.runs")
	if met == nil {
		t.Fatal("vaani.pipeline.runs not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("vaani.pipeline.runs is not a sum")
	}

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("Expected 3 runs, got %d", total)
	}
}

func TestGauges(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionOpened(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)
	m.HandleAcquired(ctx)
	m.HandleAcquired(ctx)
	m.HandleReleased(ctx)
	m.HandleReleased(ctx)

	rm := collect(t, reader)

	tests := []struct {
		name string
		want int64
	}{
		{"vaani.active_sessions", 1},
		{"vaani.audio.live_handles", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			met := findMetric(rm, tt.name)
			if met == nil {
				t.Fatalf("%s not found", tt.name)
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not a sum", tt.name)
			}
			if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != tt.want {
				t.Errorf("Expected %d, got %+v", tt.want, sum.DataPoints)
			}
		})
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordStage(ctx, "translate", time.Second, nil)
	m.RecordRun(ctx, "failed", "format")
	m.SessionOpened(ctx)
	m.HandleReleased(ctx)
}

func TestNoopMetrics(t *testing.T) {
	m := NewNoopMetrics()
	m.RecordStage(context.Background(), "synthesize", time.Millisecond, nil)
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	m, reader := newTestMetrics(t)

	e := echo.New()
	e.Use(Middleware(m))
	e.GET("/api/v1/audio/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "audio not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audio/abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	met := findMetric(collect(t, reader), "vaani.http.request.duration")
	if met == nil {
		t.Fatal("vaani.http.request.duration not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 {
		t.Fatalf("Expected 1 data point, got %d", len(hist.DataPoints))
	}
	attrs := hist.DataPoints[0].Attributes
	if v, _ := attrs.Value("route"); v.AsString() != "/api/v1/audio/:id" {
		t.Errorf("Unexpected route attribute %q", v.AsString())
	}
	if v, _ := attrs.Value("code"); v.AsString() != "404" {
		t.Errorf("Unexpected code attribute %q", v.AsString())
	}
}

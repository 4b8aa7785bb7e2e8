package observe

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitProvider installs a MeterProvider backed by the Prometheus exporter as the
// global provider and returns its shutdown function.
func InitProvider() (*sdkmetric.MeterProvider, func(context.Context) error, error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	return mp, mp.Shutdown, nil
}

// Handler serves the default Prometheus registry the exporter writes to
func Handler() http.Handler {
	return promhttp.Handler()
}

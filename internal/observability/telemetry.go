package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterName scopes the instruments this binary creates.
const meterName = "github.com/Sumatoshi-tech/gitpulse"

// Telemetry wires an OTel MeterProvider to a private Prometheus registry,
// so run instruments end up on the /metrics scrape endpoint.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler
}

// NewTelemetry builds the metric pipeline. Each call uses an independent
// registry, so repeated construction never causes collector conflicts.
func NewTelemetry() (*Telemetry, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return &Telemetry{
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// Meter returns the meter run instruments are created from.
func (t *Telemetry) Meter() metric.Meter {
	return t.provider.Meter(meterName)
}

// Handler returns the /metrics scrape handler.
func (t *Telemetry) Handler() http.Handler {
	return t.handler
}

// Shutdown flushes and stops the metric pipeline.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	err := t.provider.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}

	return nil
}

package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsServer serves Prometheus metrics on a separate port.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics HTTP server serving the Prometheus handler
// at the given path on the given port.
func NewMetricsServer(port int, path string, provider *Provider) *MetricsServer {
	mux := http.NewServeMux()

	if provider != nil && provider.promExporter != nil {
		mux.Handle(path, promhttp.Handler())
	}

	return &MetricsServer{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

// Start begins serving metrics in a blocking call.
// Returns http.ErrServerClosed on graceful shutdown.
func (ms *MetricsServer) Start() error {
	slog.Info("Starting metrics server", "addr", ms.server.Addr)
	return ms.server.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// Metrics holds the service's enforcement counters. It implements the
// recorder interfaces consumed by the dispatch middleware and the webhook
// handler. All methods are safe for concurrent use.
type Metrics struct {
	rateDecisions     metric.Int64Counter
	webhookAccepted   metric.Int64Counter
	webhookRejections metric.Int64Counter
}

// NewMetrics creates the enforcement counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("noteguard/enforcement")

	rateDecisions, err := meter.Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Number of rate limit admission decisions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	webhookAccepted, err := meter.Int64Counter(
		"webhook.accepted",
		metric.WithDescription("Number of accepted webhook deliveries"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	webhookRejections, err := meter.Int64Counter(
		"webhook.rejections",
		metric.WithDescription("Number of rejected webhook deliveries by reason"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		rateDecisions:     rateDecisions,
		webhookAccepted:   webhookAccepted,
		webhookRejections: webhookRejections,
	}, nil
}

// RecordRateDecision counts one admission decision for a route class.
func (m *Metrics) RecordRateDecision(ctx context.Context, class string, allowed bool) {
	m.rateDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route_class", class),
		attribute.Bool("allowed", allowed),
	))
}

// RecordWebhookAccepted counts one accepted webhook delivery.
func (m *Metrics) RecordWebhookAccepted(ctx context.Context, eventType string) {
	m.webhookAccepted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordWebhookRejection counts one rejected webhook delivery. The reason
// carries the failing check (signature, timestamp, shape, configuration) and
// stays internal to metrics and logs.
func (m *Metrics) RecordWebhookRejection(ctx context.Context, reason string) {
	m.webhookRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

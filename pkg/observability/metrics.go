package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics and their Prometheus
// exposition for the execution engine.
type MetricsProvider struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	registry      *prometheus.Registry

	ordersSubmittedTotal  metric.Int64Counter
	ordersCompletedTotal  metric.Int64Counter
	ordersFailedTotal     metric.Int64Counter
	quoteFetchDuration    metric.Float64Histogram
	swapExecutionDuration metric.Float64Histogram
	jobQueueDepth         metric.Int64UpDownCounter
	workerPoolActive      metric.Int64UpDownCounter
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string
	Namespace      string
	Port           int
	Enabled        bool
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(cfg MetricsConfig) (*MetricsProvider, error) {
	if !cfg.Enabled {
		return &MetricsProvider{}, nil
	}

	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithNamespace(cfg.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)
	meter := meterProvider.Meter(cfg.ServiceName)

	mp := &MetricsProvider{
		meterProvider: meterProvider,
		meter:         meter,
		registry:      registry,
	}

	if err := mp.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return mp, nil
}

func (mp *MetricsProvider) initializeMetrics() error {
	var err error

	mp.ordersSubmittedTotal, err = mp.meter.Int64Counter(
		"orders_submitted_total",
		metric.WithDescription("Total number of orders submitted for execution"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create orders_submitted_total counter: %w", err)
	}

	mp.ordersCompletedTotal, err = mp.meter.Int64Counter(
		"orders_completed_total",
		metric.WithDescription("Total number of orders that completed successfully"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create orders_completed_total counter: %w", err)
	}

	mp.ordersFailedTotal, err = mp.meter.Int64Counter(
		"orders_failed_total",
		metric.WithDescription("Total number of orders that failed terminally"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create orders_failed_total counter: %w", err)
	}

	mp.quoteFetchDuration, err = mp.meter.Float64Histogram(
		"quote_fetch_duration_seconds",
		metric.WithDescription("Time to fan a quote request out across all enabled venues"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return fmt.Errorf("failed to create quote_fetch_duration histogram: %w", err)
	}

	mp.swapExecutionDuration, err = mp.meter.Float64Histogram(
		"swap_execution_duration_seconds",
		metric.WithDescription("Time to execute a swap on the selected venue"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20),
	)
	if err != nil {
		return fmt.Errorf("failed to create swap_execution_duration histogram: %w", err)
	}

	mp.jobQueueDepth, err = mp.meter.Int64UpDownCounter(
		"job_queue_depth",
		metric.WithDescription("Number of execution jobs currently pending in the queue"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create job_queue_depth gauge: %w", err)
	}

	mp.workerPoolActive, err = mp.meter.Int64UpDownCounter(
		"worker_pool_active",
		metric.WithDescription("Number of worker pool goroutines currently processing a job"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create worker_pool_active gauge: %w", err)
	}

	return nil
}

// RecordOrderSubmitted records a newly enqueued order.
func (mp *MetricsProvider) RecordOrderSubmitted(ctx context.Context, tokenIn, tokenOut string) {
	if mp == nil || mp.ordersSubmittedTotal == nil {
		return
	}
	mp.ordersSubmittedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("token_in", tokenIn),
		attribute.String("token_out", tokenOut),
	))
}

// RecordOrderTerminal records an order reaching completed or failed.
func (mp *MetricsProvider) RecordOrderTerminal(ctx context.Context, venue string, success bool) {
	if mp == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("venue", venue))
	if success {
		if mp.ordersCompletedTotal != nil {
			mp.ordersCompletedTotal.Add(ctx, 1, attrs)
		}
		return
	}
	if mp.ordersFailedTotal != nil {
		mp.ordersFailedTotal.Add(ctx, 1, attrs)
	}
}

// RecordQuoteFetch records how long a venue fan-out took.
func (mp *MetricsProvider) RecordQuoteFetch(ctx context.Context, venueCount int, duration time.Duration) {
	if mp == nil || mp.quoteFetchDuration == nil {
		return
	}
	mp.quoteFetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Int("venue_count", venueCount),
	))
}

// RecordSwapExecution records how long a single venue swap took.
func (mp *MetricsProvider) RecordSwapExecution(ctx context.Context, venue string, success bool, duration time.Duration) {
	if mp == nil || mp.swapExecutionDuration == nil {
		return
	}
	mp.swapExecutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("venue", venue),
		attribute.Bool("success", success),
	))
}

// IncJobQueueDepth adjusts the pending-job gauge by delta.
func (mp *MetricsProvider) IncJobQueueDepth(ctx context.Context, delta int64) {
	if mp == nil || mp.jobQueueDepth == nil {
		return
	}
	mp.jobQueueDepth.Add(ctx, delta)
}

// SetWorkerActive adjusts the active-worker gauge by delta.
func (mp *MetricsProvider) SetWorkerActive(ctx context.Context, delta int64) {
	if mp == nil || mp.workerPoolActive == nil {
		return
	}
	mp.workerPoolActive.Add(ctx, delta)
}

// StartMetricsServer starts the Prometheus metrics HTTP server.
func (mp *MetricsProvider) StartMetricsServer(port int) error {
	if mp.registry == nil {
		return fmt.Errorf("metrics not enabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics provider.
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp.meterProvider == nil {
		return nil
	}
	return mp.meterProvider.Shutdown(ctx)
}

package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.uber.org/zap"

	"github.com/fonsecaaso/tinylink/config"
	"github.com/fonsecaaso/tinylink/internal/tracing"
)

// Observability holds the tracing and metrics components started for a process
type Observability struct {
	tracerShutdown  func(ctx context.Context) error
	metricsShutdown func(ctx context.Context) error
	initialized     ObservabilityStatus
}

// ObservabilityStatus tracks which components are initialized
type ObservabilityStatus struct {
	TracingEnabled bool
	MetricsEnabled bool
}

// Shutdown flushes spans and stops the metrics listener
func (o *Observability) Shutdown(ctx context.Context) error {
	var errs []error

	if o.tracerShutdown != nil {
		if err := o.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}

	if o.metricsShutdown != nil {
		if err := o.metricsShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// GetStatus returns the current observability status
func (o *Observability) GetStatus() ObservabilityStatus {
	return o.initialized
}

// Setup installs the trace propagator and, when configured, an OTLP span
// exporter and a Prometheus listener. Both are off by default.
func Setup(ctx context.Context, cfg *config.Config) (*Observability, error) {
	obs := &Observability{}
	logger := zap.L().With(zap.String("component", "observability"))

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	if cfg.OTLPEndpoint != "" {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(cfg.ServiceName),
				semconv.DeploymentEnvironment(cfg.Environment),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}

		tracerShutdown, err := initTracing(ctx, cfg.OTLPEndpoint, res, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		obs.tracerShutdown = tracerShutdown
		obs.initialized.TracingEnabled = true
	}

	if cfg.MetricsAddr != "" {
		obs.metricsShutdown = serveMetrics(cfg.MetricsAddr, logger)
		obs.initialized.MetricsEnabled = true
	}

	return obs, nil
}

// initTracing initializes OpenTelemetry tracing
func initTracing(ctx context.Context, endpoint string, res *resource.Resource, logger *zap.Logger) (func(context.Context) error, error) {
	// The exporter's own requests go through the logging transport so export
	// failures show up in the client log
	httpClient := &http.Client{
		Transport: tracing.NewLoggingTransport(http.DefaultTransport, logger),
	}

	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(stripProtocol(endpoint)),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	logger.Info("OTLP trace exporter initialized", zap.String("endpoint", endpoint))

	bsp := sdktrace.NewBatchSpanProcessor(
		exporter,
		sdktrace.WithMaxExportBatchSize(512),
		sdktrace.WithMaxQueueSize(2048),
		sdktrace.WithBatchTimeout(5*time.Second),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tracerProvider)

	return tracerProvider.Shutdown, nil
}

// serveMetrics exposes the default Prometheus registry on addr
func serveMetrics(addr string, logger *zap.Logger) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server.Shutdown
}

// stripProtocol reduces an endpoint to host:port, the form OTLP exporters
// expect; they append the standard paths like /v1/traces themselves
func stripProtocol(endpoint string) string {
	endpoint = strings.TrimSpace(strings.Trim(endpoint, `"`))

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			return endpoint[:idx]
		}
		return endpoint
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		endpoint = strings.TrimPrefix(endpoint, "https://")
		return strings.TrimPrefix(endpoint, "http://")
	}

	return parsedURL.Host
}

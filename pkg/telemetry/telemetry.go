package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hypemind/hypemind/pkg/config"
	"github.com/hypemind/hypemind/pkg/logging"
)

var (
	tracer trace.Tracer
	meter  otelmetric.Meter
)

// Init initializes OpenTelemetry with Jaeger and Prometheus exporters
func Init(cfg *config.TelemetryConfig) (func(), error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Telemetry disabled")
		return func() {}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("0.1.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdownFuncs []func(context.Context) error

	if cfg.JaegerURL != "" {
		shutdownTraces, err := initTraces(cfg, res)
		if err != nil {
			return nil, err
		}
		shutdownFuncs = append(shutdownFuncs, shutdownTraces)
	}
	if cfg.PrometheusEnabled {
		shutdownMetrics, err := initMetrics(cfg, res)
		if err != nil {
			return nil, err
		}
		shutdownFuncs = append(shutdownFuncs, shutdownMetrics)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer = otel.Tracer(cfg.ServiceName)
	meter = otel.Meter(cfg.ServiceName)

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				logging.GetLogger().Error("Error shutting down telemetry", zap.Error(err))
			}
		}
	}

	return shutdown, nil
}

func initTraces(cfg *config.TelemetryConfig, res *resource.Resource) (func(context.Context) error, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerURL)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logging.GetLogger().Info("Jaeger exporter initialized", zap.String("url", cfg.JaegerURL))
	return tp.Shutdown, nil
}

func initMetrics(cfg *config.TelemetryConfig, res *resource.Resource) (func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logging.GetLogger().Info("Prometheus exporter initialized", zap.Int("port", cfg.PrometheusPort))
	return mp.Shutdown, nil
}

// Tracer returns the global tracer
func Tracer() trace.Tracer {
	if tracer == nil {
		// Fallback to no-op tracer
		return trace.NewNoopTracerProvider().Tracer("hypemind")
	}
	return tracer
}

// Meter returns the global meter
func Meter() otelmetric.Meter {
	if meter == nil {
		return otel.Meter("hypemind")
	}
	return meter
}

// StartSpan starts a new span
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// RowCounter returns a monotonic counter for pipeline row counts. It
// never returns nil; a rejected name yields a no-op instrument.
func RowCounter(name string) otelmetric.Int64Counter {
	counter, err := Meter().Int64Counter(name, otelmetric.WithUnit("{row}"))
	if err != nil {
		logging.GetLogger().Warn("Failed to create counter",
			zap.String("name", name),
			zap.Error(err))
		counter, _ = noop.NewMeterProvider().Meter("hypemind").Int64Counter(name)
	}
	return counter
}

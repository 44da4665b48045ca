package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"registration-service/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Telemetry struct {
	// nil when no collector endpoint is configured
	MeterProvider *metric.MeterProvider
	Meter         otelmetric.Meter
	Metrics       *metrics.Metrics
	Health        *metrics.HealthMetrics
}

// Init sets up the OTLP meter provider when endpoint is non-empty and builds
// the service metrics on the global meter. Without an endpoint the global
// no-op provider is used and all recordings are dropped.
func Init(ctx context.Context, endpoint, serviceName, serviceVersion, env string, logger *slog.Logger) (*Telemetry, error) {
	t := &Telemetry{}

	if endpoint != "" {
		mp, err := initMeterProvider(ctx, endpoint, serviceName, serviceVersion, logger)
		if err != nil {
			return nil, err
		}
		t.MeterProvider = mp
	} else {
		logger.Info("OTel endpoint not configured, metrics disabled")
	}

	meter := otel.Meter(serviceName)
	m, err := metrics.New(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	t.Metrics = m
	t.Meter = meter

	health, err := metrics.NewHealthMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize health metrics: %w", err)
	}
	t.Health = health

	if _, err := metrics.NewRuntimeMetrics(meter); err != nil {
		logger.Warn("failed to register runtime metrics", "error", err)
	}

	if err := registerServiceInfo(meter, serviceName, serviceVersion, env); err != nil {
		logger.Warn("failed to register service info", "error", err)
	}

	return t, nil
}

func initMeterProvider(ctx context.Context, endpoint, serviceName, serviceVersion string, logger *slog.Logger) (*metric.MeterProvider, error) {
	logger.Info("initializing OTel metrics", "endpoint", endpoint)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter,
			metric.WithInterval(10*time.Second))),
	)

	otel.SetMeterProvider(mp)
	logger.Info("OTel metrics initialized successfully")

	return mp, nil
}

func registerServiceInfo(meter otelmetric.Meter, serviceName, version, env string) error {
	info, err := meter.Int64ObservableGauge(
		"service.info",
		otelmetric.WithDescription("Service metadata information"),
		otelmetric.WithUnit("{info}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, observer otelmetric.Observer) error {
			observer.ObserveInt64(info, 1, otelmetric.WithAttributes(
				attribute.String("service_name", serviceName),
				attribute.String("version", version),
				attribute.String("environment", env),
			))
			return nil
		},
		info,
	)
	return err
}

func (t *Telemetry) Shutdown(ctx context.Context, logger *slog.Logger) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	logger.Info("shutting down OTel meter provider")
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

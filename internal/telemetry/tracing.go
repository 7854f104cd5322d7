// Пакет telemetry — трассировка OpenTelemetry с экспортом по OTLP/HTTP.
// Если endpoint не задан, используется глобальный no-op провайдер.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc сбрасывает накопленные span'ы и останавливает экспорт.
type ShutdownFunc func(ctx context.Context) error

// Setup настраивает глобальный TracerProvider.
// endpoint — полный URL OTLP/HTTP (например, http://otel-collector:4318).
func Setup(ctx context.Context, endpoint, serviceName, version string, logger *slog.Logger) (ShutdownFunc, error) {
	if endpoint == "" {
		logger.Info("Трассировка отключена (DC_OTEL_ENDPOINT не задан)")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("создание OTLP exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Трассировка включена", slog.String("endpoint", endpoint))
	return tp.Shutdown, nil
}

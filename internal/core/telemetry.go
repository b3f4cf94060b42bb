// AngelaMos | 2026
// telemetry.go

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/carterperez-dev/storefront/backend/internal/config"
)

const (
	exportTimeout       = 5 * time.Second
	metricInterval      = 30 * time.Second
	telemetryFlushLimit = 10 * time.Second
	defaultSampleRate   = 0.1
)

// Telemetry owns the process tracer and meter providers. Packages obtain
// tracers and meters through the otel globals, so installing the providers
// is enough to route auth spans and counters to the collector.
type Telemetry struct {
	provider    *sdktrace.TracerProvider
	meters      *sdkmetric.MeterProvider
	serviceName string
}

func NewTelemetry(
	ctx context.Context,
	otelCfg config.OtelConfig,
	appCfg config.AppConfig,
) (*Telemetry, error) {
	name := serviceName(otelCfg, appCfg)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !otelCfg.Enabled || otelCfg.Endpoint == "" {
		return &Telemetry{
			provider:    sdktrace.NewTracerProvider(),
			serviceName: name,
		}, nil
	}

	res, err := newResource(ctx, name, appCfg)
	if err != nil {
		return nil, err
	}

	exporter, err := traceExporterFactory(ctx, otelCfg)
	if err != nil {
		return nil, err
	}

	metricExporter, err := metricExporterFactory(ctx, otelCfg)
	if err != nil {
		if shutdownErr := exporter.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown trace exporter: %w", shutdownErr))
		}
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(exportTimeout),
			sdktrace.WithMaxExportBatchSize(512),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(otelCfg, appCfg)),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(metricInterval),
		)),
	)
	otel.SetMeterProvider(mp)

	return &Telemetry{provider: tp, meters: mp, serviceName: name}, nil
}

func (t *Telemetry) Tracer() trace.Tracer {
	return t.provider.Tracer(t.serviceName)
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	flushCtx, cancel := context.WithTimeout(ctx, telemetryFlushLimit)
	defer cancel()

	var errs []error
	if t.provider != nil {
		if err := t.provider.Shutdown(flushCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if t.meters != nil {
		if err := t.meters.Shutdown(flushCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}

	return errors.Join(errs...)
}

var (
	traceExporterFactory  = newTraceExporter
	metricExporterFactory = newMetricExporter
)

func transportCredentials(cfg config.OtelConfig) credentials.TransportCredentials {
	if cfg.Insecure {
		return insecure.NewCredentials()
	}
	return credentials.NewClientTLSFromCert(nil, "")
}

func newTraceExporter(
	ctx context.Context,
	cfg config.OtelConfig,
) (sdktrace.SpanExporter, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(exportTimeout),
		otlptracegrpc.WithTLSCredentials(transportCredentials(cfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}

	return exporter, nil
}

func newMetricExporter(
	ctx context.Context,
	cfg config.OtelConfig,
) (sdkmetric.Exporter, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithTimeout(exportTimeout),
		otlpmetricgrpc.WithTLSCredentials(transportCredentials(cfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	return exporter, nil
}

func newResource(
	ctx context.Context,
	name string,
	appCfg config.AppConfig,
) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(appCfg.Version),
			semconv.DeploymentEnvironment(appCfg.Environment),
			attribute.String("storefront.component", "api"),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	return res, nil
}

// samplerFor keeps every trace in development so auth flows can be
// followed end to end locally.
func samplerFor(otelCfg config.OtelConfig, appCfg config.AppConfig) sdktrace.Sampler {
	if appCfg.Environment == "development" {
		return sdktrace.AlwaysSample()
	}

	rate := otelCfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = defaultSampleRate
	}

	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func serviceName(otelCfg config.OtelConfig, appCfg config.AppConfig) string {
	if otelCfg.ServiceName != "" {
		return otelCfg.ServiceName
	}
	return strings.ToLower(strings.ReplaceAll(appCfg.Name, " ", "-"))
}

func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// FailSpan marks span as errored with err as its description.
func FailSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

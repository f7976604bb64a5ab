package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOTELHook_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	hook := OTELHook{}
	event := logger.Info().Ctx(context.Background())
	hook.Run(event, zerolog.InfoLevel, "test message")
	event.Msg("test")

	assert.NotContains(t, buf.String(), "trace_id")
	assert.NotContains(t, buf.String(), "span_id")
}

func TestOTELHook_WithSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")
	ctx, _ := tracer.Start(context.Background(), "test-span")

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	hook := OTELHook{}
	event := logger.Info().Ctx(ctx)
	hook.Run(event, zerolog.InfoLevel, "test message")
	event.Msg("test")

	assert.Contains(t, buf.String(), "trace_id")
	assert.Contains(t, buf.String(), "span_id")
}

func TestOTELHook_ErrorSetsSpanStatus(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	hook := OTELHook{}
	event := logger.Error().Ctx(ctx)
	hook.Run(event, zerolog.ErrorLevel, "error message")
	event.Msg("test error")

	span.End()
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "error message", spans[0].Status.Description)
}

func TestLoggerConvenienceMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{Logger: zerolog.New(&buf)}
	ctx := context.Background()

	logger.LogFetchStart(ctx, "prod:us-east-1:ec2", "ec2", "instances")
	assert.Contains(t, buf.String(), "scanning resource")
	assert.Contains(t, buf.String(), "prod:us-east-1:ec2")

	buf.Reset()
	logger.LogFetchDone(ctx, "ec2", "instances", 42)
	assert.Contains(t, buf.String(), "scan complete")
	assert.Contains(t, buf.String(), "42")

	buf.Reset()
	logger.LogThrottle(ctx, "prod:us-east-1:ec2", "DescribeInstances", 3)
	assert.Contains(t, buf.String(), "rate limited")
	assert.Contains(t, buf.String(), "DescribeInstances")
	assert.Contains(t, buf.String(), "3")
}

func TestInitMetrics(t *testing.T) {
	provider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(provider)
	Meter = provider.Meter("test")

	err := initMetrics()
	require.NoError(t, err)

	assert.NotNil(t, ResourcesSurveyed)
	assert.NotNil(t, PagesFetched)
	assert.NotNil(t, ThrottleRetries)
	assert.NotNil(t, UnitsCompleted)
	assert.NotNil(t, ScanDuration)
	assert.NotNil(t, ChecksEvaluated)

	ctx := context.Background()
	ResourcesSurveyed.Add(ctx, 10)
	PagesFetched.Add(ctx, 2)
	ScanDuration.Record(ctx, 1.5)
}

func TestInstrumentsUsableBeforeInit(t *testing.T) {
	// the package init wires instruments against the global meter, so
	// recording before InitOTEL must not panic
	assert.NotNil(t, ResourcesSurveyed)
	ResourcesSurveyed.Add(context.Background(), 1)
}

func TestInitOTELPrometheusOnly(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	shutdown, err := InitOTEL(ctx, Config{ServiceName: "test-service"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NotNil(t, PrometheusRegistry)

	_ = shutdown(context.Background())
}

package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger scoped to one component
func NewLogger(component string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("component", component).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Crawl-specific convenience methods

// LogFetchStart logs the start of one fetch unit scan
func (l *Logger) LogFetchStart(ctx context.Context, scanContext, service, resource string) {
	l.WithContext(ctx).Debug().
		Str("context", scanContext).
		Str("service", service).
		Str("resource", resource).
		Msg("scanning resource")
}

// LogFetchDone logs completion of one fetch unit scan
func (l *Logger) LogFetchDone(ctx context.Context, service, resource string, count int) {
	l.WithContext(ctx).Info().
		Str("service", service).
		Str("resource", resource).
		Int("resources", count).
		Msg("scan complete")
}

// LogThrottle logs a rate-limit retry
func (l *Logger) LogThrottle(ctx context.Context, scanContext, operation string, attempt int) {
	l.WithContext(ctx).Warn().
		Str("context", scanContext).
		Str("operation", operation).
		Int("attempt", attempt).
		Msg("rate limited, backing off")
}

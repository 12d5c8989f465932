// Package telemetry owns the process-wide tracing setup. Init runs once at
// startup; the returned *Tracing is passed to every component that records
// spans and is read-only afterwards.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/agentoven/catalog-assistant/internal/config"
)

const instrumentationName = "github.com/agentoven/catalog-assistant"

// SpanType mirrors MLflow's span type vocabulary.
type SpanType string

const (
	SpanAgent     SpanType = "AGENT"
	SpanLLM       SpanType = "LLM"
	SpanChatModel SpanType = "CHAT_MODEL"
	SpanTool      SpanType = "TOOL"
)

// Attribute keys understood by the MLflow trace UI.
const (
	AttrSpanType        = attribute.Key("mlflow.spanType")
	AttrExperimentID    = attribute.Key("mlflow.experimentId")
	AttrRequestPreview  = attribute.Key("mlflow.trace.requestPreview")
	AttrResponsePreview = attribute.Key("mlflow.trace.responsePreview")
)

// Tracing is the process-wide tracing context.
type Tracing struct {
	provider     trace.TracerProvider
	tracer       trace.Tracer
	shutdown     func(context.Context) error
	experimentID string
	autolog      bool
	closed       atomic.Bool
}

// TokenSource yields a bearer token for the workspace. It is called before
// every export so refreshed OAuth tokens are picked up.
type TokenSource func(ctx context.Context) (string, error)

// Option configures Init.
type Option func(*initOptions)

type initOptions struct {
	mlflowEndpoint string
	token          TokenSource
}

// WithMLflowEndpoint sends spans over OTLP/HTTP to the workspace's MLflow
// traces endpoint, authenticated with tokens from ts.
func WithMLflowEndpoint(endpointURL string, ts TokenSource) Option {
	return func(o *initOptions) {
		o.mlflowEndpoint = endpointURL
		o.token = ts
	}
}

// Init builds the tracer provider. With an experiment id and an MLflow
// endpoint, spans are exported to that experiment over OTLP/HTTP. A
// separate OTLP gRPC collector can be enabled on top.
func Init(ctx context.Context, cfg config.TracingConfig, options ...Option) (*Tracing, error) {
	var o initOptions
	for _, opt := range options {
		opt(&o)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			AttrExperimentID.String(cfg.ExperimentID),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	switch {
	case !cfg.ExportToMLflow || cfg.ExperimentID == "":
		log.Info().Msg("MLflow trace export disabled")
	case o.mlflowEndpoint == "" || o.token == nil:
		log.Warn().Msg("MLflow trace export skipped: workspace host is unknown")
	default:
		opts = append(opts, sdktrace.WithBatcher(newMLflowExporter(o.mlflowEndpoint, cfg.ExperimentID, o.token)))
		log.Info().
			Str("endpoint", o.mlflowEndpoint).
			Str("experiment_id", cfg.ExperimentID).
			Msg("MLflow trace export enabled")
	}

	if cfg.OTLPEnabled && cfg.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		log.Info().
			Str("endpoint", cfg.OTLPEndpoint).
			Str("service", cfg.ServiceName).
			Msg("OTLP collector export enabled")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("experiment_id", cfg.ExperimentID).
		Bool("autolog", cfg.Autolog).
		Msg("Tracing initialized")

	return newTracing(tp, tp.Shutdown, cfg.ExperimentID, cfg.Autolog), nil
}

// New wraps an existing SDK provider. Tests use it with a span recorder.
func New(tp *sdktrace.TracerProvider, experimentID string, autolog bool) *Tracing {
	return newTracing(tp, tp.Shutdown, experimentID, autolog)
}

// Nop returns a Tracing that records nothing. Trace ids are empty.
func Nop() *Tracing {
	return newTracing(noop.NewTracerProvider(), func(context.Context) error { return nil }, "", false)
}

func newTracing(tp trace.TracerProvider, shutdown func(context.Context) error, experimentID string, autolog bool) *Tracing {
	return &Tracing{
		provider:     tp,
		tracer:       tp.Tracer(instrumentationName),
		shutdown:     shutdown,
		experimentID: experimentID,
		autolog:      autolog,
	}
}

// Tracer returns the application tracer.
func (t *Tracing) Tracer() trace.Tracer {
	return t.tracer
}

// ExperimentID is the configured experiment, possibly empty.
func (t *Tracing) ExperimentID() string {
	return t.experimentID
}

// Autolog reports whether LLM, tool and executor spans are captured.
func (t *Tracing) Autolog() bool {
	return t.autolog
}

// Status returns the experiment id, or an error once tracing is shut down.
func (t *Tracing) Status() (string, error) {
	if t.closed.Load() {
		return "", fmt.Errorf("tracing has been shut down")
	}
	return t.experimentID, nil
}

// Shutdown flushes pending spans. Safe to call more than once.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return t.shutdown(ctx)
}

// Start opens a span of the given type.
func (t *Tracing) Start(ctx context.Context, name string, typ SpanType, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, AttrSpanType.String(string(typ)))
	if t.experimentID != "" {
		attrs = append(attrs, AttrExperimentID.String(t.experimentID))
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartAuto opens a span only when autologging is enabled.
func (t *Tracing) StartAuto(ctx context.Context, name string, typ SpanType, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !t.autolog {
		return ctx, noop.Span{}
	}
	return t.Start(ctx, name, typ, attrs...)
}

// TraceID returns the MLflow-style id ("tr-<hex>") of the trace in ctx,
// or "" when ctx carries no valid span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return "tr-" + sc.TraceID().String()
}

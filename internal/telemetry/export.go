package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// HeaderExperimentID routes OTLP spans to an MLflow experiment.
const HeaderExperimentID = "x-mlflow-experiment-id"

// mlflowExporter sends spans to MLflow's OTLP/HTTP endpoint. The inner
// exporter carries static headers, so it is rebuilt whenever the bearer
// token changes.
type mlflowExporter struct {
	endpoint     string
	experimentID string
	token        TokenSource

	mu      sync.Mutex
	current sdktrace.SpanExporter
	bearer  string
}

func newMLflowExporter(endpoint, experimentID string, token TokenSource) *mlflowExporter {
	return &mlflowExporter{endpoint: endpoint, experimentID: experimentID, token: token}
}

func (e *mlflowExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	exp, err := e.exporter(ctx)
	if err != nil {
		return fmt.Errorf("mlflow trace export: %w", err)
	}
	return exp.ExportSpans(ctx, spans)
}

func (e *mlflowExporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	err := e.current.Shutdown(ctx)
	e.current = nil
	return err
}

func (e *mlflowExporter) exporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	token, err := e.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("workspace token: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil && token == e.bearer {
		return e.current, nil
	}

	next, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(e.endpoint),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization":    "Bearer " + token,
			HeaderExperimentID: e.experimentID,
		}),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP/HTTP exporter: %w", err)
	}
	if e.current != nil {
		_ = e.current.Shutdown(ctx)
	}
	e.current, e.bearer = next, token
	return next, nil
}

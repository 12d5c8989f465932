package telemetry_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/agentoven/catalog-assistant/internal/config"
	"github.com/agentoven/catalog-assistant/internal/telemetry"
	"github.com/agentoven/catalog-assistant/internal/telemetry/otlptest"
)

func newRecorded(t *testing.T, autolog bool) (*telemetry.Tracing, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tr := telemetry.New(tp, "123", autolog)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	return tr, sr
}

func attr(s sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestStart_SetsSpanTypeAndTraceID(t *testing.T) {
	tr, sr := newRecorded(t, true)

	ctx, span := tr.Start(context.Background(), "agent", telemetry.SpanAgent)
	id := telemetry.TraceID(ctx)
	span.End()

	require.True(t, strings.HasPrefix(id, "tr-"), id)
	require.Len(t, id, len("tr-")+32)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "AGENT", attr(ended[0], "mlflow.spanType"))
	require.Equal(t, "123", attr(ended[0], "mlflow.experimentId"))
}

func TestStartAuto_RespectsAutolog(t *testing.T) {
	tr, sr := newRecorded(t, false)

	ctx, root := tr.Start(context.Background(), "agent", telemetry.SpanAgent)
	_, child := tr.StartAuto(ctx, "llm", telemetry.SpanChatModel)
	child.End()
	root.End()

	require.Len(t, sr.Ended(), 1, "autolog disabled: only the explicit span is recorded")
}

func TestUpdatePreviews(t *testing.T) {
	tr, sr := newRecorded(t, true)

	require.Error(t, telemetry.UpdatePreviews(context.Background(), "q", "a"))

	ctx, span := tr.Start(context.Background(), "agent", telemetry.SpanAgent)
	long := strings.Repeat("x", telemetry.PreviewLimit+50)
	require.NoError(t, telemetry.UpdatePreviews(ctx, "what catalogs?", long))
	span.End()

	ended := sr.Ended()
	require.Equal(t, "what catalogs?", attr(ended[0], "mlflow.trace.requestPreview"))
	require.Len(t, attr(ended[0], "mlflow.trace.responsePreview"), telemetry.PreviewLimit)
}

func TestStatus_AfterShutdown(t *testing.T) {
	tr, _ := newRecorded(t, true)

	id, err := tr.Status()
	require.NoError(t, err)
	require.Equal(t, "123", id)

	require.NoError(t, tr.Shutdown(context.Background()))
	require.NoError(t, tr.Shutdown(context.Background()))
	_, err = tr.Status()
	require.Error(t, err)
}

func TestInit_WithoutExporter(t *testing.T) {
	tr, err := telemetry.Init(context.Background(), config.TracingConfig{
		ExperimentID: "77",
		Autolog:      true,
		ServiceName:  "catalog-assistant-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })

	ctx, span := tr.Start(context.Background(), "llm", telemetry.SpanLLM)
	defer span.End()
	require.NotEmpty(t, telemetry.TraceID(ctx))
	require.Equal(t, "77", tr.ExperimentID())
	require.True(t, tr.Autolog())
}

func TestInit_MLflowExportNeedsExperiment(t *testing.T) {
	rcv := otlptest.NewReceiver()
	defer rcv.Close()
	tokens := func(context.Context) (string, error) { return "dapi-test", nil }

	tr, err := telemetry.Init(context.Background(), config.TracingConfig{
		ExportToMLflow: true,
		Autolog:        true,
		ServiceName:    "catalog-assistant-test",
	}, telemetry.WithMLflowEndpoint(rcv.URL+"/v1/traces", tokens))
	require.NoError(t, err)

	_, span := tr.Start(context.Background(), "agent", telemetry.SpanAgent)
	span.End()
	require.NoError(t, tr.Shutdown(context.Background()))
	require.Empty(t, rcv.Requests())
}

func TestInit_MLflowExport(t *testing.T) {
	rcv := otlptest.NewReceiver()
	defer rcv.Close()
	tokens := func(context.Context) (string, error) { return "dapi-test", nil }

	tr, err := telemetry.Init(context.Background(), config.TracingConfig{
		ExperimentID:   "77",
		ExportToMLflow: true,
		Autolog:        true,
		ServiceName:    "catalog-assistant-test",
	}, telemetry.WithMLflowEndpoint(rcv.URL+"/v1/traces", tokens))
	require.NoError(t, err)

	ctx, span := tr.Start(context.Background(), "agent", telemetry.SpanAgent)
	id := telemetry.TraceID(ctx)
	span.End()
	require.NoError(t, tr.Shutdown(context.Background()))

	spans := rcv.Spans()
	require.Len(t, spans, 1)
	require.Equal(t, id, spans[0].TraceID)
	require.Equal(t, "agent", spans[0].Name)
}

func TestNop(t *testing.T) {
	tr := telemetry.Nop()
	ctx, span := tr.Start(context.Background(), "x", telemetry.SpanAgent)
	defer span.End()
	require.Empty(t, telemetry.TraceID(ctx))
}

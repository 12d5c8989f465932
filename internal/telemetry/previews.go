package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/agentoven/catalog-assistant/pkg/models"
)

// PreviewLimit caps request/response previews attached to a trace.
const PreviewLimit = 1000

// UpdatePreviews attaches request and response previews to the span in ctx.
func UpdatePreviews(ctx context.Context, request, response string) error {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return fmt.Errorf("no active trace")
	}
	span.SetAttributes(
		AttrRequestPreview.String(models.Preview(request, PreviewLimit)),
		AttrResponsePreview.String(models.Preview(response, PreviewLimit)),
	)
	return nil
}

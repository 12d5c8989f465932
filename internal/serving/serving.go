// Package serving forwards chat conversations to a named model-serving
// endpoint and reshapes the reply into the chat-completion envelope.
package serving

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agentoven/catalog-assistant/internal/llm"
	"github.com/agentoven/catalog-assistant/internal/telemetry"
	"github.com/agentoven/catalog-assistant/pkg/models"
)

// Fixed generation parameters for passthrough calls.
const (
	MaxTokens   = 1000
	Temperature = 0.1
)

// Service invokes serving endpoints. One attempt per call, no retries.
type Service struct {
	clients llm.Factory
	tracing *telemetry.Tracing
}

// NewService creates a passthrough service.
func NewService(clients llm.Factory, tr *telemetry.Tracing) *Service {
	if tr == nil {
		tr = telemetry.Nop()
	}
	return &Service{clients: clients, tracing: tr}
}

// Invoke sends messages to endpoint. Errors are returned unchanged in
// meaning so the HTTP layer can answer with a 500.
func (s *Service) Invoke(ctx context.Context, endpoint string, msgs []models.Message) (models.Envelope, error) {
	ctx, span := s.tracing.Start(ctx, "invoke_endpoint", telemetry.SpanLLM,
		attribute.String("llm.endpoint", endpoint),
	)
	defer span.End()

	env, err := s.invoke(ctx, endpoint, msgs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.Envelope{}, err
	}

	query, _ := models.LastUserContent(msgs)
	if err := telemetry.UpdatePreviews(ctx, query, env.Content()); err != nil {
		log.Warn().Err(err).Msg("Failed to update trace previews")
	}
	return env, nil
}

func (s *Service) invoke(ctx context.Context, endpoint string, msgs []models.Message) (models.Envelope, error) {
	client, err := s.clients(ctx)
	if err != nil {
		return models.Envelope{}, err
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       endpoint,
		Messages:    llm.ToOpenAI(msgs),
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	})
	if err != nil {
		return models.Envelope{}, fmt.Errorf("invoke endpoint %s: %w", endpoint, err)
	}
	if len(resp.Choices) == 0 {
		return models.Envelope{}, fmt.Errorf("invoke endpoint %s: response has no choices", endpoint)
	}

	log.Info().
		Str("endpoint", endpoint).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("Endpoint invoked")

	return Reshape(resp), nil
}

// Reshape converts a vendor response to the envelope, keeping only the
// first choice.
func Reshape(resp openai.ChatCompletionResponse) models.Envelope {
	c := resp.Choices[0]
	return models.Envelope{
		Choices: []models.Choice{{
			Message: models.ChoiceMessage{
				Role:    c.Message.Role,
				Content: c.Message.Content,
			},
			Index:        c.Index,
			FinishReason: string(c.FinishReason),
		}},
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model:   resp.Model,
		ID:      resp.ID,
		Object:  models.ObjectChatCompletion,
		Created: resp.Created,
	}
}

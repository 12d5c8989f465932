// Package llm builds OpenAI-compatible chat clients for Databricks model
// serving endpoints.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/agentoven/catalog-assistant/internal/auth"
	"github.com/agentoven/catalog-assistant/pkg/models"
)

// ChatClient is the subset of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Factory returns a client bound to freshly resolved credentials.
type Factory func(ctx context.Context) (ChatClient, error)

// ServingBaseURL is the OpenAI-compatible root of a workspace's serving
// endpoints.
func ServingBaseURL(host string) string {
	return "https://" + strings.TrimSuffix(auth.StripScheme(host), "/") + "/serving-endpoints"
}

// FromResolver resolves credentials on every call, same as the catalog
// tools.
func FromResolver(r *auth.Resolver) Factory {
	return func(ctx context.Context) (ChatClient, error) {
		ws, err := r.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		token, err := ws.BearerToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("serving credentials: %w", err)
		}

		cfg := openai.DefaultConfig(token)
		cfg.BaseURL = ServingBaseURL(ws.Host())

		log.Debug().
			Str("base_url", cfg.BaseURL).
			Str("strategy", string(ws.Strategy())).
			Msg("Serving client resolved")

		return openai.NewClientWithConfig(cfg), nil
	}
}

// Static always returns c. Used when the base URL is fixed.
func Static(c ChatClient) Factory {
	return func(context.Context) (ChatClient, error) { return c, nil }
}

// NewClient builds a client for an explicit base URL and token.
func NewClient(baseURL, token string) ChatClient {
	cfg := openai.DefaultConfig(token)
	cfg.BaseURL = baseURL
	return openai.NewClientWithConfig(cfg)
}

// ToOpenAI converts validated chat messages to the wire type.
func ToOpenAI(msgs []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

package serving_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/catalog-assistant/internal/llm"
	"github.com/agentoven/catalog-assistant/internal/serving"
	"github.com/agentoven/catalog-assistant/internal/telemetry"
	"github.com/agentoven/catalog-assistant/pkg/models"
)

func newService(t *testing.T, h http.HandlerFunc) *serving.Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return serving.NewService(llm.Static(llm.NewClient(srv.URL, "t")), telemetry.Nop())
}

func TestInvoke_Reshapes(t *testing.T) {
	var got openai.ChatCompletionRequest
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "pong"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	})

	env, err := svc.Invoke(context.Background(), "llama-endpoint", []models.Message{
		{Role: models.RoleUser, Content: "ping"},
	})
	require.NoError(t, err)

	require.Equal(t, "llama-endpoint", got.Model)
	require.Equal(t, serving.MaxTokens, got.MaxTokens)
	require.InDelta(t, serving.Temperature, got.Temperature, 1e-6)
	require.Equal(t, "ping", got.Messages[0].Content)

	require.Equal(t, models.Envelope{
		Choices: []models.Choice{{
			Message:      models.ChoiceMessage{Role: "assistant", Content: "pong"},
			Index:        0,
			FinishReason: "stop",
		}},
		Usage:   models.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4},
		Model:   "llama",
		ID:      "chatcmpl-1",
		Object:  "chat.completion",
		Created: 1700000000,
	}, env)
}

func TestInvoke_RemoteErrorNoRetry(t *testing.T) {
	var calls int
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"endpoint scaling up"}}`))
	})

	_, err := svc.Invoke(context.Background(), "busy", []models.Message{{Role: models.RoleUser, Content: "hi"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "busy")
	require.Equal(t, 1, calls)
}

func TestInvoke_NoChoices(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	})

	_, err := svc.Invoke(context.Background(), "empty", nil)
	require.ErrorContains(t, err, "no choices")
}

package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/databricks/databricks-sdk-go"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/catalog-assistant/internal/auth"
	"github.com/agentoven/catalog-assistant/internal/llm"
	"github.com/agentoven/catalog-assistant/pkg/models"
)

func TestServingBaseURL(t *testing.T) {
	tests := map[string]string{
		"https://foo.cloud.databricks.com":  "https://foo.cloud.databricks.com/serving-endpoints",
		"foo.cloud.databricks.com":          "https://foo.cloud.databricks.com/serving-endpoints",
		"https://foo.cloud.databricks.com/": "https://foo.cloud.databricks.com/serving-endpoints",
	}
	for in, want := range tests {
		require.Equal(t, want, llm.ServingBaseURL(in), in)
	}
}

func TestToOpenAI(t *testing.T) {
	got := llm.ToOpenAI([]models.Message{
		{Role: models.RoleSystem, Content: "be brief"},
		{Role: models.RoleUser, Content: "hi"},
	})
	require.Equal(t, []openai.ChatCompletionMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, got)
}

func TestFromResolver_PropagatesCredentialFailure(t *testing.T) {
	r := auth.NewResolver(auth.Credentials{Host: "foo", Token: "t"}).
		WithClientFactory(func(*databricks.Config) (*databricks.WorkspaceClient, error) {
			return nil, context.DeadlineExceeded
		})

	_, err := llm.FromResolver(r)(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_SendsBearerToken(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: "assistant", Content: "ok"},
			}},
		})
	}))
	defer srv.Close()

	c := llm.NewClient(srv.URL, "dapi-123")
	resp, err := c.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    "my-endpoint",
		Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Choices[0].Message.Content)
	require.Equal(t, "Bearer dapi-123", gotAuth)
	require.Equal(t, "my-endpoint", gotModel)
}

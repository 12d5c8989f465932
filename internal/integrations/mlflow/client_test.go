package mlflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/databricks/databricks-sdk-go/apierr"
	sdkconfig "github.com/databricks/databricks-sdk-go/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agentoven/catalog-assistant/internal/integrations/mlflow"
)

func clientFor(t *testing.T, host string) *mlflow.Client {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return mlflow.NewClient(mlflow.ConfigConnector(&sdkconfig.Config{Host: host, Token: "dapi-test"}))
}

func TestLogFeedback_Posts(t *testing.T) {
	var (
		path, authz, requestID string
		body                   map[string]map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authz = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := clientFor(t, srv.URL).LogFeedback(context.Background(), mlflow.Assessment{
		TraceID: "tr-abc",
		Name:    "thumbs",
		Value:   true,
	})
	require.NoError(t, err)

	require.Equal(t, "/api/3.0/mlflow/traces/tr-abc/assessments", path)
	require.Equal(t, "Bearer dapi-test", authz)
	_, err = uuid.Parse(requestID)
	require.NoError(t, err, "X-Request-Id should be a UUID, got %q", requestID)

	a := body["assessment"]
	require.Equal(t, "tr-abc", a["trace_id"])
	require.Equal(t, "thumbs", a["assessment_name"])
	require.Equal(t, map[string]any{"source_type": "LLM_JUDGE", "source_id": "user_feedback"}, a["source"])
	require.Equal(t, map[string]any{"value": true}, a["feedback"])
}

func TestLogFeedback_Non2xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST","message":"trace not found"}`))
	}))
	defer srv.Close()

	err := clientFor(t, srv.URL).LogFeedback(context.Background(), mlflow.Assessment{TraceID: "tr-x", Name: "n", Value: "good"})
	require.ErrorContains(t, err, "trace not found")

	var apiErr *apierr.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.EqualValues(t, 1, calls.Load())
}

func TestLogFeedback_ServerErrorSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error_code":"INTERNAL_ERROR","message":"boom"}`))
	}))
	defer srv.Close()

	err := clientFor(t, srv.URL).LogFeedback(context.Background(), mlflow.Assessment{TraceID: "tr-x", Name: "n", Value: 1.0})
	require.ErrorContains(t, err, "boom")
	require.EqualValues(t, 1, calls.Load())
}

func TestLogFeedback_Rejects(t *testing.T) {
	c := clientFor(t, "http://unused.invalid")
	ctx := context.Background()

	require.Error(t, c.LogFeedback(ctx, mlflow.Assessment{Name: "n", Value: "v"}))
	require.Error(t, c.LogFeedback(ctx, mlflow.Assessment{TraceID: "tr", Name: "n", Value: []string{"x"}}))

	failing := mlflow.NewClient(func(context.Context) (mlflow.Doer, error) {
		return nil, errors.New("no credentials")
	})
	require.ErrorContains(t, failing.LogFeedback(ctx, mlflow.Assessment{TraceID: "tr", Name: "n", Value: 1.0}), "no credentials")

	require.Error(t, mlflow.NewClient(mlflow.ConfigConnector(nil)).LogFeedback(ctx, mlflow.Assessment{TraceID: "tr", Name: "n", Value: 1.0}))
}

func TestExperimentLink(t *testing.T) {
	require.Equal(t, "", mlflow.ExperimentLink("", "42"))
	require.Equal(t,
		"https://foo.cloud.databricks.com/ml/experiments/42?compareRunsMode=TRACES",
		mlflow.ExperimentLink("foo.cloud.databricks.com", "42"))
	require.Equal(t,
		"https://foo.cloud.databricks.com/ml/experiments/42?compareRunsMode=TRACES",
		mlflow.ExperimentLink("https://foo.cloud.databricks.com/", "42"))
}

func TestTracesURL(t *testing.T) {
	require.Equal(t, "", mlflow.TracesURL("", "/v1/traces"))
	require.Equal(t, "https://foo.cloud.databricks.com/v1/traces", mlflow.TracesURL("foo.cloud.databricks.com", "/v1/traces"))
	require.Equal(t, "http://127.0.0.1:9/v1/traces", mlflow.TracesURL("http://127.0.0.1:9/", "v1/traces"))
}

func TestValidValue(t *testing.T) {
	for _, v := range []any{"x", 1.5, true, false, 3} {
		require.True(t, mlflow.ValidValue(v), "%v", v)
	}
	for _, v := range []any{nil, map[string]any{}, []any{1}} {
		require.False(t, mlflow.ValidValue(v), "%v", v)
	}
}

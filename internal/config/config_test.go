package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentoven/catalog-assistant/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"UVICORN_HOST", "UVICORN_PORT", "IS_DEV", "MLFLOW_EXPERIMENT_ID", "AGENT_MAX_ITERATIONS", "AGENT_ENDPOINT", "MLFLOW_TRACE_EXPORT", "MLFLOW_OTLP_TRACES_PATH", "OTEL_ENABLED"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := config.FromEnv()
	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, 8000, cfg.Port)
	require.False(t, cfg.Dev)
	require.Equal(t, "production", cfg.Environment())
	require.Equal(t, "0.0.0.0:8000", cfg.Addr())
	require.Empty(t, cfg.Tracing.ExperimentID)
	require.True(t, cfg.Tracing.Autolog)
	require.True(t, cfg.Tracing.ExportToMLflow)
	require.Equal(t, "/v1/traces", cfg.Tracing.MLflowTracesPath)
	require.False(t, cfg.Tracing.OTLPEnabled)
	require.Equal(t, "databricks-claude-sonnet-4", cfg.Agent.Endpoint)
	require.Equal(t, 5, cfg.Agent.MaxIterations)
	require.Equal(t, 1000, cfg.Agent.MaxTokens)
	require.InDelta(t, 0.1, cfg.Agent.Temperature, 1e-9)
	require.Equal(t, "client/build", cfg.Frontend.BuildDir)
	require.Equal(t, "http://localhost:3000", cfg.Frontend.DevServerURL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("UVICORN_PORT", "9001")
	t.Setenv("IS_DEV", "true")
	t.Setenv("DATABRICKS_HOST", "https://foo.cloud.databricks.com")
	t.Setenv("DATABRICKS_TOKEN", "dapi-123")
	t.Setenv("MLFLOW_EXPERIMENT_ID", "42")

	cfg := config.FromEnv()
	require.Equal(t, 9001, cfg.Port)
	require.True(t, cfg.Dev)
	require.Equal(t, "development", cfg.Environment())
	require.Equal(t, "https://foo.cloud.databricks.com", cfg.Databricks.Host)
	require.Equal(t, "dapi-123", cfg.Databricks.Token)
	require.Equal(t, "42", cfg.Tracing.ExperimentID)
	require.True(t, cfg.Tracing.ExportToMLflow, "an experiment id turns MLflow export on")
}

func TestFromEnv_MLflowExportOptOut(t *testing.T) {
	t.Setenv("MLFLOW_EXPERIMENT_ID", "42")
	t.Setenv("MLFLOW_TRACE_EXPORT", "false")
	t.Setenv("MLFLOW_OTLP_TRACES_PATH", "/api/2.0/otel/v1/traces")

	cfg := config.FromEnv()
	require.False(t, cfg.Tracing.ExportToMLflow)
	require.Equal(t, "/api/2.0/otel/v1/traces", cfg.Tracing.MLflowTracesPath)
}

func TestLoadEnvFile_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.local")
	content := "DATABRICKS_HOST=file-host\nMLFLOW_EXPERIMENT_ID=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("DATABRICKS_HOST", "env-host")
	t.Setenv("MLFLOW_EXPERIMENT_ID", "")
	os.Unsetenv("MLFLOW_EXPERIMENT_ID")

	require.NoError(t, config.LoadEnvFile(path))

	cfg := config.FromEnv()
	require.Equal(t, "env-host", cfg.Databricks.Host)
	require.Equal(t, "from-file", cfg.Tracing.ExperimentID)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	require.NoError(t, config.LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}
